package main

import (
	"errors"

	"github.com/matsen/citegraph/internal/breaker"
	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/database"
	"github.com/matsen/citegraph/internal/paper"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (runtime failure, I/O)
	ExitConfigError = 2 // Configuration error (invalid option, identifier or credentials)
	ExitDataError   = 3 // Data error (root paper unknown to the database)
	ExitBlocked     = 4 // Circuit breaker tripped, the database is probably blocking us
)

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	var blocked *breaker.BlockSuspectedError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &blocked):
		return ExitBlocked
	case errors.Is(err, config.ErrInvalidOption),
		errors.Is(err, paper.ErrInvalidIdentifier),
		errors.Is(err, database.ErrUnknownDatabase),
		errors.Is(err, database.ErrAuthError):
		return ExitConfigError
	case database.IsNotFound(err):
		return ExitDataError
	default:
		return ExitError
	}
}

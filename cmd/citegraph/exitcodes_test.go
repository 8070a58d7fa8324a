package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/matsen/citegraph/internal/breaker"
	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/database"
	"github.com/matsen/citegraph/internal/paper"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"blocked", fmt.Errorf("run: %w", &breaker.BlockSuspectedError{Consecutive: 3}), ExitBlocked},
		{"invalid option", fmt.Errorf("%w: max_depth", config.ErrInvalidOption), ExitConfigError},
		{"invalid identifier", fmt.Errorf("root paper: %w", paper.ErrInvalidIdentifier), ExitConfigError},
		{"unknown database", database.ErrUnknownDatabase, ExitConfigError},
		{"auth", database.ErrAuthError, ExitConfigError},
		{"root not found", fmt.Errorf("fetching root paper: %w", database.ErrNotFound), ExitDataError},
		{"other", errors.New("disk full"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

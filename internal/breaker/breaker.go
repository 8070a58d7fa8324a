// Package breaker implements the consecutive-failure circuit breaker that
// stops a traversal when the remote database appears to block the client.
package breaker

import (
	"fmt"

	"github.com/matsen/citegraph/internal/paper"
)

// DefaultMaxErrors is the default number of tolerated consecutive failures.
const DefaultMaxErrors = 10

// State of the monitor.
type State int

const (
	Healthy State = iota
	Tripped
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Tripped:
		return "tripped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BlockSuspectedError is returned once the monitor trips. It is fatal for
// the run.
type BlockSuspectedError struct {
	LastID      paper.Identifier // identifier of the last attempted request
	Consecutive int              // consecutive failures observed
	Cause       error            // error of the last failed request
}

func (e *BlockSuspectedError) Error() string {
	return fmt.Sprintf("%d consecutive request errors (last request for %s: %v); "+
		"the database is probably blocking requests, wait and retry with a larger politeness factor",
		e.Consecutive, e.LastID, e.Cause)
}

func (e *BlockSuspectedError) Unwrap() error {
	return e.Cause
}

// Monitor counts consecutive request failures. It is not safe for
// concurrent use; the traversal is strictly sequential.
type Monitor struct {
	maxErrors   int
	consecutive int
	state       State
	tripErr     *BlockSuspectedError
}

// New creates a monitor that trips once more than maxErrors consecutive
// failures have been recorded.
func New(maxErrors int) (*Monitor, error) {
	if maxErrors < 1 {
		return nil, fmt.Errorf("max request errors must be >= 1, got %d", maxErrors)
	}
	return &Monitor{maxErrors: maxErrors}, nil
}

// Success resets the consecutive failure counter. It has no effect once tripped.
func (m *Monitor) Success() {
	if m.state == Tripped {
		return
	}
	m.consecutive = 0
}

// Failure records a failed request for id. It returns a
// *BlockSuspectedError when this failure trips the monitor, and the same
// error on every later call.
func (m *Monitor) Failure(id paper.Identifier, cause error) error {
	if m.state == Tripped {
		return m.tripErr
	}

	m.consecutive++
	if m.consecutive > m.maxErrors {
		m.state = Tripped
		m.tripErr = &BlockSuspectedError{LastID: id, Consecutive: m.consecutive, Cause: cause}
		return m.tripErr
	}
	return nil
}

// Err returns the trip error, or nil while healthy.
func (m *Monitor) Err() error {
	if m.tripErr == nil {
		return nil
	}
	return m.tripErr
}

// State returns the current state.
func (m *Monitor) State() State {
	return m.state
}

// Consecutive returns the current consecutive failure count.
func (m *Monitor) Consecutive() int {
	return m.consecutive
}

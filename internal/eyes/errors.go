package eyes

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned by operations that need a running session.
	ErrNotOpen = errors.New("eyes session is not open")
	// ErrAlreadyOpen is returned by Open on a client with a running session.
	ErrAlreadyOpen = errors.New("eyes session is already open")
)

// TestFailedError reports a closed session with mismatched or missing steps.
type TestFailedError struct {
	Test    string
	App     string
	Results *TestResults
}

func (e *TestFailedError) Error() string {
	return fmt.Sprintf("test '%s' of '%s' detected differences (%d mismatches, %d missing); see details at %s",
		e.Test, e.App, e.Results.Mismatches, e.Results.Missing, e.Results.URL)
}

// NewTestError reports a session that created a new baseline.
type NewTestError struct {
	Test    string
	App     string
	Results *TestResults
}

func (e *NewTestError) Error() string {
	return fmt.Sprintf("'%s' of '%s' is a new test; please approve the new baseline at %s",
		e.Test, e.App, e.Results.URL)
}

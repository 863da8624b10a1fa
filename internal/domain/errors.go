package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the run-level taxonomy.
var (
	// ErrConfiguration marks malformed input surfaced before any trial
	// runs: bad quoting, a predicate without a placeholder, and similar.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInfra marks an oracle that could not execute meaningfully even
	// after the configured retries.
	ErrInfra = errors.New("oracle infrastructure failure")
)

// errBudget stops the search when the trial budget is spent. It never
// escapes the engine; it is translated into the EXHAUSTED status.
var errBudget = errors.New("trial budget exhausted")

// RunError wraps a failure with its taxonomy kind so callers can match on
// the sentinel via errors.Is.
type RunError struct {
	Kind error
	Msg  string
}

func (e *RunError) Error() string {
	if e == nil {
		return ""
	}

	if e.Msg == "" {
		return e.Kind.Error()
	}

	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *RunError) Unwrap() error { return e.Kind }

func configf(format string, args ...any) error {
	return &RunError{Kind: ErrConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func infraf(format string, args ...any) error {
	return &RunError{Kind: ErrInfra, Msg: fmt.Sprintf(format, args...)}
}

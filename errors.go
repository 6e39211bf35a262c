package servicer

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by servicer operations
var (
	// ErrNotFound indicates the target file, unit file or process does not exist
	ErrNotFound = errors.New("servicer: not found")

	// ErrAlreadyExists indicates a unit file with the requested name is already present
	ErrAlreadyExists = errors.New("servicer: already exists")

	// ErrInvalidName indicates a service name that cannot be turned into a unit name
	ErrInvalidName = errors.New("servicer: invalid name")

	// ErrInterpreterNotFound indicates the interpreter could not be resolved
	// on the invoking user's search path
	ErrInterpreterNotFound = errors.New("servicer: interpreter not found")

	// ErrPrivilege indicates the unprivileged invoking identity could not be
	// recovered, or the process lacks the privileges to mutate units
	ErrPrivilege = errors.New("servicer: privilege")

	// ErrAdapter indicates the init system rejected or failed a request
	ErrAdapter = errors.New("servicer: init system")

	// ErrPartialFailure indicates a multi-step operation stopped part way
	ErrPartialFailure = errors.New("servicer: partial failure")

	// ErrInvalidState indicates the unit is not in a state the operation accepts
	ErrInvalidState = errors.New("servicer: invalid state")

	// ErrInvalidEnvironment indicates a malformed KEY=VALUE token
	ErrInvalidEnvironment = errors.New("servicer: invalid environment")

	// ErrMalformedProcessStat indicates a process statistics file could not be parsed
	ErrMalformedProcessStat = errors.New("servicer: malformed process stat")
)

// OpError represents an error from a servicer operation
type OpError struct {
	// Op is the operation that failed
	Op Action
	// Unit is the unit name or file path involved in the operation
	Unit string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("servicer %s %q: %v", e.Op.String(), e.Unit, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports a multi-step operation that completed some of
// its steps before failing. Nothing is rolled back.
type PartialFailureError struct {
	// Op is the operation that was interrupted
	Op Action
	// Unit is the unit the operation targeted
	Unit string
	// Completed lists the steps that took effect before the failure
	Completed []Step
	// Err is the failure that ended the operation
	Err error
}

// Error returns a formatted error message naming the completed steps
func (e *PartialFailureError) Error() string {
	done := make([]string, 0, len(e.Completed))
	for _, s := range e.Completed {
		done = append(done, s.Action.String()+" "+s.Unit)
	}
	if len(done) == 0 {
		return fmt.Sprintf("servicer %s %q: partial failure: %v", e.Op.String(), e.Unit, e.Err)
	}
	return fmt.Sprintf("servicer %s %q: partial failure after [%s]: %v",
		e.Op.String(), e.Unit, strings.Join(done, ", "), e.Err)
}

// Is reports ErrPartialFailure as part of the chain
func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

// Unwrap returns the failure that ended the operation
func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors from bulk or best-effort operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(m.Errors), strings.Join(msgs, "; "))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

package engine

import (
	"errors"
	"fmt"
)

// ErrMockNotFound is returned by Lookup/Replace for unknown mock ids.
var ErrMockNotFound = errors.New("mock not found")

// PortConflictError reports a register attempt against a port some other
// process already owns. Nothing is created; the caller must pick another
// port, there is no retry.
type PortConflictError struct {
	Port int
}

func (e *PortConflictError) Error() string {
	return fmt.Sprintf("port %d is already in use", e.Port)
}

// BindError reports an OS-level listen failure other than a conflict.
type BindError struct {
	Port int
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind port %d: %v", e.Port, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// CloseTimeoutError reports a listener teardown that exceeded the close
// budget. The registry entry is dropped regardless, so the OS resource
// may linger, but the caller is never blocked past the budget.
type CloseTimeoutError struct {
	Port int
}

func (e *CloseTimeoutError) Error() string {
	return fmt.Sprintf("listener on port %d did not close within %s", e.Port, closeTimeout)
}

// ConditionScriptError reports a condition script that threw during
// evaluation. The selection loop stops immediately; it does not advance
// to the next candidate.
type ConditionScriptError struct {
	Name   string
	Script string
	Err    error
}

func (e *ConditionScriptError) Error() string {
	return fmt.Sprintf("condition script %q failed: %v", e.Name, e.Err)
}

func (e *ConditionScriptError) Unwrap() error { return e.Err }

// ConditionsUnsatisfiedError reports that every response declined. The
// scripts are carried so the failure payload can list them for debugging.
type ConditionsUnsatisfiedError struct {
	Scripts []string
}

func (e *ConditionsUnsatisfiedError) Error() string {
	return fmt.Sprintf("no response condition satisfied (%d evaluated)", len(e.Scripts))
}

package haycaf

import (
	"errors"
	"fmt"

	"github.com/SethEden/Hay-CAF/sockets"
	"github.com/SethEden/Hay-CAF/types"
)

// RuntimeError is a run that produced no usable verdict: the socket could
// not be opened, the configuration was rejected or the harness never
// reported in time. It maps to exit code 2.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	if e.ResultTimeout() {
		return fmt.Sprintf("no test result: %v", e.Err)
	}
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ResultTimeout reports whether the harness failed to report before the
// result timeout.
func (e *RuntimeError) ResultTimeout() bool {
	return errors.Is(e.Err, sockets.ErrResultTimeout)
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError is a harness verdict of fail, including a harness that
// hung up without reporting. It maps to exit code 1.
type TestFailureError struct {
	RunID  string
	Result types.TestResult
}

func (e *TestFailureError) Error() string {
	if !e.Result.IsSet() {
		return fmt.Sprintf("harness ended run %s without a test result", e.RunID)
	}
	return fmt.Sprintf("harness reported %s for run %s", e.Result, e.RunID)
}

func NewTestFailureError(runID string, result types.TestResult) *TestFailureError {
	return &TestFailureError{RunID: runID, Result: result}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

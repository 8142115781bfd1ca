package pipeline

import (
	"errors"
	"fmt"
)

// StageError reports which stage ended a run.
type StageError struct {
	Stage string
	RunID string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (run=%s): %v", e.Stage, e.RunID, e.Err)
}

// Unwrap returns the stage's own error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the name of the stage that failed, or "" if err
// did not come from a stage. Uses errors.As to handle wrapped errors.
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// HookError reports a before-stage hook failure. No stage ran.
type HookError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("before-stage hook %d: %v", e.Index, e.Err)
}

// Unwrap returns the hook's own error.
func (e *HookError) Unwrap() error {
	return e.Err
}

package pipeline

import (
	"errors"
	"fmt"
)

// ErrTransformPanic wraps a panic raised inside a transformation. The run
// fails with a StepError instead of taking the process down.
var ErrTransformPanic = errors.New("transformation panicked")

// StepError identifies the configuration entry that aborted a run. Err is the
// transformation's error, usually a *config.ValidationError.
type StepError struct {
	Index int
	Key   string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Key, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// UnknownKeyError is returned under RejectUnknown when a configuration key
// names no registered transformation.
type UnknownKeyError struct {
	Index int
	Key   string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("step %d: unknown transformation %q", e.Index, e.Key)
}

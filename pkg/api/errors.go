package api

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// CyclicDependencyError reports the steps that could not be ordered
	// because their dependencies form a cycle
	CyclicDependencyError struct {
		Steps []StepName
	}

	permanentError struct {
		err error
	}
)

// Configuration errors, detected before any step executes
var (
	ErrNoSteps           = errors.New("workflow has no steps")
	ErrStepNameEmpty     = errors.New("step name empty")
	ErrStepFuncNil       = errors.New("step function is nil")
	ErrDuplicateStep     = errors.New("duplicate step name")
	ErrSelfDependency    = errors.New("step depends on itself")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrCyclicDependency  = errors.New("cyclic dependency")
	ErrInvalidMaxRetries = errors.New("max retries cannot be negative")
	ErrInvalidTimeout    = errors.New("step timeout cannot be negative")
)

// Step errors, recorded in the workflow result rather than returned
var (
	ErrStepTimeout      = errors.New("step timed out")
	ErrStepPanicked     = errors.New("step panicked")
	ErrDependencyFailed = errors.New("dependency failed")
	ErrStepsFailed      = errors.New("one or more steps failed")
)

// Error implements the error interface
func (e *CyclicDependencyError) Error() string {
	if len(e.Steps) == 0 {
		return ErrCyclicDependency.Error()
	}
	names := make([]string, len(e.Steps))
	for i, name := range e.Steps {
		names[i] = string(name)
	}
	return fmt.Sprintf("%s: %s",
		ErrCyclicDependency, strings.Join(names, ", "))
}

// Unwrap allows errors.Is to match ErrCyclicDependency
func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// Permanent marks an error as not worth retrying. The step executor stops
// retrying as soon as a step function returns a permanent error
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether any error in the chain was marked Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

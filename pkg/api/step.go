package api

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

type (
	// Step is the immutable definition of one unit of work in a graph
	Step struct {
		Func         StepFunc      `json:"-"`
		Name         StepName      `json:"name"`
		Dependencies []StepName    `json:"dependencies,omitempty"`
		MaxRetries   int           `json:"max_retries,omitempty"`
		Timeout      time.Duration `json:"timeout,omitempty"`
	}

	// StepFunc performs the work of a step. The input is the caller-supplied
	// shared context, and prior holds a snapshot of the results of steps that
	// have already completed. The returned value becomes this step's result
	StepFunc func(
		ctx context.Context, h Handle, input any, prior Results,
	) (any, error)

	// Handle gives a running step access to its execution identity
	Handle interface {
		RunID() RunID
		Step() StepName
		Attempt() int
		Logger() *slog.Logger
	}
)

// Validate checks the parts of a step definition that do not depend on the
// rest of the graph
func (s *Step) Validate() error {
	if s.Name == "" {
		return ErrStepNameEmpty
	}
	if s.Func == nil {
		return fmt.Errorf("%w: %s", ErrStepFuncNil, s.Name)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidMaxRetries, s.Name)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, s.Name)
	}
	if s.DependsOn(s.Name) {
		return fmt.Errorf("%w: %s", ErrSelfDependency, s.Name)
	}
	return nil
}

// DependsOn reports whether the step declares the named dependency
func (s *Step) DependsOn(name StepName) bool {
	return slices.Contains(s.Dependencies, name)
}

// WithDefaults returns a copy of the step with zero-valued retry and timeout
// settings filled in from the provided defaults
func (s *Step) WithDefaults(maxRetries int, timeout time.Duration) Step {
	res := *s
	if res.MaxRetries == 0 {
		res.MaxRetries = maxRetries
	}
	if res.Timeout == 0 {
		res.Timeout = timeout
	}
	res.Dependencies = slices.Clone(s.Dependencies)
	return res
}

package builder

import (
	"slices"
	"time"

	"github.com/kode4food/stepflow/pkg/api"
)

// Step accumulates the settings of a single step definition
type Step struct {
	fn         api.StepFunc
	name       api.StepName
	deps       []api.StepName
	maxRetries int
	timeout    time.Duration
}

// NewStep creates a new step builder with the specified name
func NewStep(name api.StepName) *Step {
	return &Step{name: name}
}

func (s *Step) WithFunc(fn api.StepFunc) *Step {
	res := *s
	res.fn = fn
	return &res
}

// DependsOn appends dependencies, ignoring names that are already declared
func (s *Step) DependsOn(names ...api.StepName) *Step {
	res := *s
	res.deps = slices.Clone(s.deps)
	for _, name := range names {
		if !slices.Contains(res.deps, name) {
			res.deps = append(res.deps, name)
		}
	}
	return &res
}

func (s *Step) WithMaxRetries(n int) *Step {
	res := *s
	res.maxRetries = n
	return &res
}

func (s *Step) WithTimeout(d time.Duration) *Step {
	res := *s
	res.timeout = d
	return &res
}

// Name returns the name of the step being built
func (s *Step) Name() api.StepName {
	return s.name
}

// Build validates and returns the step definition
func (s *Step) Build() (api.Step, error) {
	step := api.Step{
		Name:         s.name,
		Func:         s.fn,
		Dependencies: slices.Clone(s.deps),
		MaxRetries:   s.maxRetries,
		Timeout:      s.timeout,
	}
	if err := step.Validate(); err != nil {
		return api.Step{}, err
	}
	return step, nil
}

// Steps builds every provided step, stopping on the first invalid one
func Steps(steps ...*Step) ([]api.Step, error) {
	res := make([]api.Step, 0, len(steps))
	for _, s := range steps {
		step, err := s.Build()
		if err != nil {
			return nil, err
		}
		res = append(res, step)
	}
	return res, nil
}

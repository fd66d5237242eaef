package plan

import (
	"fmt"

	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/util"
)

// ResolveOrder returns a linear execution order in which every step follows
// all of its dependencies. Steps become eligible in passes, and steps that
// become eligible in the same pass keep their declaration order, so the same
// input always yields the same order
func ResolveOrder(steps []api.Step) ([]api.StepName, error) {
	levels, err := Levels(steps)
	if err != nil {
		return nil, err
	}
	order := make([]api.StepName, 0, len(steps))
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

// Levels groups steps by the pass in which they become eligible. Every step
// in a level depends only on steps from earlier levels
func Levels(steps []api.Step) ([][]api.StepName, error) {
	if err := Validate(steps); err != nil {
		return nil, err
	}

	ordered := util.Set[api.StepName]{}
	remaining := make([]*api.Step, len(steps))
	for i := range steps {
		remaining[i] = &steps[i]
	}

	var levels [][]api.StepName
	for len(remaining) > 0 {
		var level []api.StepName
		var blocked []*api.Step
		for _, step := range remaining {
			if ordered.ContainsAll(step.Dependencies...) {
				level = append(level, step.Name)
			} else {
				blocked = append(blocked, step)
			}
		}
		if len(level) == 0 {
			return nil, cycleError(blocked)
		}
		for _, name := range level {
			ordered.Add(name)
		}
		levels = append(levels, level)
		remaining = blocked
	}
	return levels, nil
}

// Validate checks every step definition and the references between them.
// It does not detect cycles
func Validate(steps []api.Step) error {
	if len(steps) == 0 {
		return api.ErrNoSteps
	}

	names := make(util.Set[api.StepName], len(steps))
	for i := range steps {
		step := &steps[i]
		if err := step.Validate(); err != nil {
			return err
		}
		if names.Contains(step.Name) {
			return fmt.Errorf("%w: %s", api.ErrDuplicateStep, step.Name)
		}
		names.Add(step.Name)
	}

	for i := range steps {
		step := &steps[i]
		for _, dep := range step.Dependencies {
			if !names.Contains(dep) {
				return fmt.Errorf("%w: %s referenced by %s",
					api.ErrUnknownDependency, dep, step.Name)
			}
		}
	}
	return nil
}

func cycleError(blocked []*api.Step) error {
	names := make([]api.StepName, len(blocked))
	for i, step := range blocked {
		names[i] = step.Name
	}
	return &api.CyclicDependencyError{Steps: names}
}

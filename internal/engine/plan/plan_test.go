package plan_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/stepflow/internal/engine/plan"
	"github.com/kode4food/stepflow/pkg/api"
)

func noop(context.Context, api.Handle, any, api.Results) (any, error) {
	return nil, nil
}

func step(name api.StepName, deps ...api.StepName) api.Step {
	return api.Step{Name: name, Func: noop, Dependencies: deps}
}

func TestResolveOrderLinear(t *testing.T) {
	order, err := plan.ResolveOrder([]api.Step{
		step("optimizeRoute", "estimatePrices"),
		step("estimatePrices", "normalizeIngredients"),
		step("normalizeIngredients", "extractIngredients"),
		step("extractIngredients"),
	})
	require.NoError(t, err)
	assert.Equal(t, []api.StepName{
		"extractIngredients",
		"normalizeIngredients",
		"estimatePrices",
		"optimizeRoute",
	}, order)
}

func TestResolveOrderDeclarationTieBreak(t *testing.T) {
	order, err := plan.ResolveOrder([]api.Step{
		step("formScore"),
		step("synthesize", "formScore", "adherence", "nutrition"),
		step("adherence"),
		step("nutrition"),
	})
	require.NoError(t, err)
	assert.Equal(t, []api.StepName{
		"formScore", "adherence", "nutrition", "synthesize",
	}, order)
}

func TestLevels(t *testing.T) {
	levels, err := plan.Levels([]api.Step{
		step("a"),
		step("b", "a"),
		step("c"),
		step("d", "b", "c"),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]api.StepName{
		{"a", "c"},
		{"b"},
		{"d"},
	}, levels)
}

func TestResolveOrderCycle(t *testing.T) {
	_, err := plan.ResolveOrder([]api.Step{
		step("root"),
		step("a", "b"),
		step("b", "a"),
		step("after", "a"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrCyclicDependency)

	var cyc *api.CyclicDependencyError
	require.True(t, errors.As(err, &cyc))
	assert.Equal(t, []api.StepName{"a", "b", "after"}, cyc.Steps)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name     string
		steps    []api.Step
		expected error
	}{
		{
			name:     "no steps",
			steps:    nil,
			expected: api.ErrNoSteps,
		},
		{
			name:     "duplicate",
			steps:    []api.Step{step("a"), step("a")},
			expected: api.ErrDuplicateStep,
		},
		{
			name:     "unknown dependency",
			steps:    []api.Step{step("a", "ghost")},
			expected: api.ErrUnknownDependency,
		},
		{
			name:     "self dependency",
			steps:    []api.Step{step("a", "a")},
			expected: api.ErrSelfDependency,
		},
		{
			name:     "nil function",
			steps:    []api.Step{{Name: "a"}},
			expected: api.ErrStepFuncNil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.ResolveOrder(tt.steps)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestResolveOrderRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for i := range 50 {
		steps := randomDAG(rng, 2+rng.IntN(12))

		first, err := plan.ResolveOrder(steps)
		require.NoError(t, err)
		second, err := plan.ResolveOrder(steps)
		require.NoError(t, err)
		assert.Equal(t, first, second, "graph %d not deterministic", i)

		assert.Len(t, first, len(steps))
		pos := map[api.StepName]int{}
		for idx, name := range first {
			pos[name] = idx
		}
		for _, s := range steps {
			for _, dep := range s.Dependencies {
				assert.Less(t, pos[dep], pos[s.Name],
					"graph %d: %s must precede %s", i, dep, s.Name)
			}
		}
	}
}

// randomDAG only adds edges from lower to higher indexes, then shuffles the
// declaration order so the resolver cannot rely on it
func randomDAG(rng *rand.Rand, n int) []api.Step {
	steps := make([]api.Step, n)
	for i := range n {
		steps[i] = step(api.StepName(fmt.Sprintf("s%d", i)))
		for j := range i {
			if rng.IntN(3) == 0 {
				steps[i].Dependencies = append(
					steps[i].Dependencies, steps[j].Name,
				)
			}
		}
	}
	rng.Shuffle(n, func(i, j int) {
		steps[i], steps[j] = steps[j], steps[i]
	})
	return steps
}

package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/stepflow/pkg/api"
)

func noopStep(
	context.Context, api.Handle, any, api.Results,
) (any, error) {
	return nil, nil
}

func TestStepValidate(t *testing.T) {
	tests := []struct {
		name     string
		step     api.Step
		expected error
	}{
		{
			name: "valid",
			step: api.Step{
				Name:         "normalize",
				Func:         noopStep,
				Dependencies: []api.StepName{"extract"},
			},
		},
		{
			name:     "empty name",
			step:     api.Step{Func: noopStep},
			expected: api.ErrStepNameEmpty,
		},
		{
			name:     "nil func",
			step:     api.Step{Name: "extract"},
			expected: api.ErrStepFuncNil,
		},
		{
			name: "negative retries",
			step: api.Step{
				Name: "extract", Func: noopStep, MaxRetries: -1,
			},
			expected: api.ErrInvalidMaxRetries,
		},
		{
			name: "negative timeout",
			step: api.Step{
				Name: "extract", Func: noopStep, Timeout: -time.Second,
			},
			expected: api.ErrInvalidTimeout,
		},
		{
			name: "self dependency",
			step: api.Step{
				Name:         "extract",
				Func:         noopStep,
				Dependencies: []api.StepName{"extract"},
			},
			expected: api.ErrSelfDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestStepWithDefaults(t *testing.T) {
	deps := []api.StepName{"a"}
	step := api.Step{Name: "b", Func: noopStep, Dependencies: deps}

	res := step.WithDefaults(3, 30*time.Second)
	assert.Equal(t, 3, res.MaxRetries)
	assert.Equal(t, 30*time.Second, res.Timeout)

	res.Dependencies[0] = "changed"
	assert.Equal(t, api.StepName("a"), deps[0])

	step.MaxRetries = 5
	step.Timeout = time.Second
	res = step.WithDefaults(3, 30*time.Second)
	assert.Equal(t, 5, res.MaxRetries)
	assert.Equal(t, time.Second, res.Timeout)
}

func TestStepDependsOn(t *testing.T) {
	step := api.Step{
		Name:         "synthesize",
		Dependencies: []api.StepName{"formScore", "nutrition"},
	}
	assert.True(t, step.DependsOn("nutrition"))
	assert.False(t, step.DependsOn("adherence"))
}

func TestIsValidBackoffType(t *testing.T) {
	assert.True(t, api.IsValidBackoffType(api.BackoffTypeFixed))
	assert.True(t, api.IsValidBackoffType(api.BackoffTypeLinear))
	assert.True(t, api.IsValidBackoffType(api.BackoffTypeExponential))
	assert.False(t, api.IsValidBackoffType("quadratic"))
	assert.False(t, api.IsValidBackoffType(""))
}

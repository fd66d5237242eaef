package builder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/builder"
)

func echo(
	_ context.Context, h api.Handle, _ any, _ api.Results,
) (any, error) {
	return string(h.Step()), nil
}

func TestNewStep(t *testing.T) {
	step, err := builder.NewStep("extractIngredients").
		WithFunc(echo).
		WithMaxRetries(3).
		WithTimeout(30 * time.Second).
		Build()

	require.NoError(t, err)
	assert.Equal(t, api.StepName("extractIngredients"), step.Name)
	assert.Equal(t, 3, step.MaxRetries)
	assert.Equal(t, 30*time.Second, step.Timeout)
	assert.Empty(t, step.Dependencies)
	assert.NotNil(t, step.Func)
}

func TestDependsOnDeduplicates(t *testing.T) {
	step, err := builder.NewStep("synthesize").
		WithFunc(echo).
		DependsOn("formScore", "adherence").
		DependsOn("adherence", "nutrition").
		Build()

	require.NoError(t, err)
	assert.Equal(t,
		[]api.StepName{"formScore", "adherence", "nutrition"},
		step.Dependencies,
	)
}

func TestBuilderImmutable(t *testing.T) {
	base := builder.NewStep("analysis").WithFunc(echo)
	withDeps := base.DependsOn("input")
	withTimeout := base.WithTimeout(time.Second)

	b, err := base.Build()
	require.NoError(t, err)
	assert.Empty(t, b.Dependencies)
	assert.Zero(t, b.Timeout)

	d, err := withDeps.Build()
	require.NoError(t, err)
	assert.Equal(t, []api.StepName{"input"}, d.Dependencies)
	assert.Zero(t, d.Timeout)

	tm, err := withTimeout.Build()
	require.NoError(t, err)
	assert.Equal(t, time.Second, tm.Timeout)
	assert.Equal(t, api.StepName("analysis"), withTimeout.Name())
}

func TestBuildInvalid(t *testing.T) {
	_, err := builder.NewStep("missing-func").Build()
	assert.ErrorIs(t, err, api.ErrStepFuncNil)

	_, err = builder.NewStep("loop").WithFunc(echo).DependsOn("loop").Build()
	assert.ErrorIs(t, err, api.ErrSelfDependency)
}

func TestSteps(t *testing.T) {
	steps, err := builder.Steps(
		builder.NewStep("a").WithFunc(echo),
		builder.NewStep("b").WithFunc(echo).DependsOn("a"),
	)
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	_, err = builder.Steps(
		builder.NewStep("a").WithFunc(echo),
		builder.NewStep("").WithFunc(echo),
	)
	assert.ErrorIs(t, err, api.ErrStepNameEmpty)
}

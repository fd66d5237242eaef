package api_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/stepflow/pkg/api"
)

func TestStepTransitions(t *testing.T) {
	tr := api.StepTransitions

	assert.True(t, tr.CanTransition(api.StepPending, api.StepRunning))
	assert.True(t, tr.CanTransition(api.StepPending, api.StepSkipped))
	assert.True(t, tr.CanTransition(api.StepRunning, api.StepRetrying))
	assert.True(t, tr.CanTransition(api.StepRetrying, api.StepRunning))
	assert.True(t, tr.CanTransition(api.StepRunning, api.StepCompleted))
	assert.True(t, tr.CanTransition(api.StepRetrying, api.StepFailed))

	assert.False(t, tr.CanTransition(api.StepPending, api.StepCompleted))
	assert.False(t, tr.CanTransition(api.StepRetrying, api.StepCompleted))
	assert.False(t, tr.CanTransition(api.StepSkipped, api.StepRunning))
	assert.False(t, tr.CanTransition(api.StepCompleted, api.StepFailed))

	for _, st := range []api.StepStatus{
		api.StepCompleted, api.StepFailed, api.StepSkipped,
	} {
		assert.True(t, tr.IsTerminal(st), st)
	}
}

func TestStepStateSetError(t *testing.T) {
	st := api.NewStepState()
	assert.Equal(t, api.StepPending, st.Status)
	assert.False(t, st.IsTerminal())

	err := errors.New("boom")
	st.SetError(err)
	assert.Equal(t, "boom", st.Error)
	assert.Same(t, err, st.Err)

	st.SetError(nil)
	assert.Empty(t, st.Error)
	assert.Nil(t, st.Err)
}

func TestWorkflowResultAccessors(t *testing.T) {
	res := &api.WorkflowResult{
		Results: api.Results{"a": 1},
		Steps: map[api.StepName]*api.StepState{
			"a": {Status: api.StepCompleted, Result: 1},
		},
		DurationMs: 250,
	}

	assert.Equal(t, api.StepCompleted, res.Status("a"))
	assert.Equal(t, api.StepStatus(""), res.Status("b"))
	assert.Equal(t, int64(250), res.Duration().Milliseconds())

	cl := res.Clone()
	cl.Steps["a"].Status = api.StepFailed
	cl.Results["b"] = 2
	assert.Equal(t, api.StepCompleted, res.Status("a"))
	assert.False(t, res.Results.Has("b"))
}

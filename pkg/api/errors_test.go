package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/stepflow/pkg/api"
)

func TestCyclicDependencyError(t *testing.T) {
	err := error(&api.CyclicDependencyError{
		Steps: []api.StepName{"a", "b"},
	})

	assert.ErrorIs(t, err, api.ErrCyclicDependency)
	assert.Equal(t, "cyclic dependency: a, b", err.Error())

	var cyc *api.CyclicDependencyError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &cyc))
	assert.Equal(t, []api.StepName{"a", "b"}, cyc.Steps)

	empty := &api.CyclicDependencyError{}
	assert.Equal(t, "cyclic dependency", empty.Error())
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad request")

	assert.Nil(t, api.Permanent(nil))
	assert.False(t, api.IsPermanent(base))

	perm := api.Permanent(base)
	assert.True(t, api.IsPermanent(perm))
	assert.ErrorIs(t, perm, base)
	assert.Equal(t, "bad request", perm.Error())

	wrapped := fmt.Errorf("completion: %w", perm)
	assert.True(t, api.IsPermanent(wrapped))
}

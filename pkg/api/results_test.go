package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/stepflow/pkg/api"
)

type analysis struct {
	Score float64
}

func TestResultAs(t *testing.T) {
	res := api.Results{
		"value":   analysis{Score: 0.8},
		"pointer": &analysis{Score: 0.5},
		"nilptr":  (*analysis)(nil),
		"other":   "text",
	}

	got, ok := api.ResultAs[analysis](res, "value")
	assert.True(t, ok)
	assert.Equal(t, 0.8, got.Score)

	got, ok = api.ResultAs[analysis](res, "pointer")
	assert.True(t, ok)
	assert.Equal(t, 0.5, got.Score)

	_, ok = api.ResultAs[analysis](res, "nilptr")
	assert.False(t, ok)

	_, ok = api.ResultAs[analysis](res, "other")
	assert.False(t, ok)

	_, ok = api.ResultAs[analysis](res, "missing")
	assert.False(t, ok)
}

func TestResultsClone(t *testing.T) {
	var empty api.Results
	assert.NotNil(t, empty.Clone())

	res := api.Results{"a": 1}
	cl := res.Clone()
	cl["b"] = 2
	assert.False(t, res.Has("b"))
	assert.True(t, cl.Has("a"))
}

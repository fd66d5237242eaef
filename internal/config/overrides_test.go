package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/stepflow/internal/config"
	"github.com/kode4food/stepflow/pkg/api"
)

const overridesYAML = `
shopping:
  estimatePrices:
    timeout: 60s
    max_retries: 5
  optimizeRoute:
    max_retries: 1
coaching:
  synthesize:
    timeout: 90s
`

func TestParseOverrides(t *testing.T) {
	o, err := config.ParseOverrides([]byte(overridesYAML))
	require.NoError(t, err)

	assert.Equal(t, config.StepOverride{
		Timeout: time.Minute, MaxRetries: 5,
	}, o["shopping"]["estimatePrices"])
	assert.Equal(t, 90*time.Second, o["coaching"]["synthesize"].Timeout)
}

func TestParseOverridesInvalid(t *testing.T) {
	_, err := config.ParseOverrides([]byte("shopping:\n  a:\n    max_retries: -1\n"))
	assert.ErrorIs(t, err, config.ErrInvalidOverride)

	_, err = config.ParseOverrides([]byte("shopping: ["))
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	o, err := config.LoadOverrides("")
	require.NoError(t, err)
	assert.Empty(t, o)

	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(overridesYAML), 0o600))
	o, err = config.LoadOverrides(path)
	require.NoError(t, err)
	assert.Len(t, o, 2)

	_, err = config.LoadOverrides(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	o, err := config.ParseOverrides([]byte(overridesYAML))
	require.NoError(t, err)

	steps := []api.Step{
		{Name: "estimatePrices", Timeout: 40 * time.Second},
		{Name: "optimizeRoute", Timeout: 20 * time.Second, MaxRetries: 3},
		{Name: "normalizeIngredients", Timeout: 20 * time.Second},
	}
	res := o.Apply("shopping", steps)

	assert.Equal(t, time.Minute, res[0].Timeout)
	assert.Equal(t, 5, res[0].MaxRetries)
	assert.Equal(t, 20*time.Second, res[1].Timeout)
	assert.Equal(t, 1, res[1].MaxRetries)
	assert.Equal(t, steps[2], res[2])

	assert.Equal(t, 40*time.Second, steps[0].Timeout)

	untouched := o.Apply("unknown", steps)
	assert.Equal(t, steps, untouched)
}

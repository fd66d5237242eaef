package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kode4food/stepflow/pkg/api"
)

type (
	// Overrides adjusts step settings per graph without touching code. The
	// YAML form is keyed by graph name, then by step name:
	//
	//	shopping:
	//	  estimatePrices:
	//	    timeout: 60s
	//	    max_retries: 5
	Overrides map[string]map[api.StepName]StepOverride

	// StepOverride replaces the non-zero settings of a single step
	StepOverride struct {
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries"`
	}
)

var ErrInvalidOverride = errors.New("invalid step override")

// LoadOverrides reads and validates an overrides file. An empty path yields
// an empty set of overrides
func LoadOverrides(path string) (Overrides, error) {
	if path == "" {
		return Overrides{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes and validates overrides from YAML
func ParseOverrides(data []byte) (Overrides, error) {
	res := Overrides{}
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	for graph, steps := range res {
		for name, o := range steps {
			if o.Timeout < 0 || o.MaxRetries < 0 {
				return nil, fmt.Errorf("%w: %s.%s",
					ErrInvalidOverride, graph, name)
			}
		}
	}
	return res, nil
}

// Apply returns copies of the steps with any overrides for the named graph
// applied. Overrides naming unknown steps are ignored
func (o Overrides) Apply(graph string, steps []api.Step) []api.Step {
	byStep := o[graph]
	res := make([]api.Step, len(steps))
	for i := range steps {
		res[i] = steps[i].WithDefaults(0, 0)
		ov, ok := byStep[steps[i].Name]
		if !ok {
			continue
		}
		if ov.Timeout > 0 {
			res[i].Timeout = ov.Timeout
		}
		if ov.MaxRetries > 0 {
			res[i].MaxRetries = ov.MaxRetries
		}
	}
	return res
}

package api

import (
	"errors"
	"time"

	"github.com/kode4food/stepflow/pkg/util"
)

// RetryConfig controls the spacing between attempts of a failing step
type RetryConfig struct {
	BackoffType string        `json:"backoff_type" yaml:"backoff_type"`
	BackoffUnit time.Duration `json:"backoff_unit" yaml:"backoff_unit"`
	MaxBackoff  time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

const (
	BackoffTypeFixed       = "fixed"
	BackoffTypeLinear      = "linear"
	BackoffTypeExponential = "exponential"
)

var ErrInvalidBackoffType = errors.New("invalid backoff type")

var validBackoffTypes = util.SetOf(
	BackoffTypeFixed,
	BackoffTypeLinear,
	BackoffTypeExponential,
)

// IsValidBackoffType reports whether the named backoff calculator exists
func IsValidBackoffType(name string) bool {
	return validBackoffTypes.Contains(name)
}

package engine

import (
	"context"
	"math"
	"time"

	"github.com/kode4food/stepflow/pkg/api"
)

type backoffCalculator func(unit time.Duration, attempt int) time.Duration

var backoffCalculators = map[string]backoffCalculator{
	api.BackoffTypeFixed: func(unit time.Duration, _ int) time.Duration {
		return unit
	},
	api.BackoffTypeLinear: func(unit time.Duration, attempt int) time.Duration {
		return saturate(float64(unit) * float64(attempt))
	},
	api.BackoffTypeExponential: func(
		unit time.Duration, attempt int,
	) time.Duration {
		multiplier := math.Pow(2, float64(attempt-1))
		return saturate(float64(unit) * multiplier)
	},
}

// backoff returns the delay that follows the given failed attempt, which is
// numbered from 1
func (e *Engine) backoff(attempt int) time.Duration {
	retry := e.config.Retry
	calculator, ok := backoffCalculators[retry.BackoffType]
	if !ok {
		calculator = backoffCalculators[api.BackoffTypeExponential]
	}
	return min(calculator(retry.BackoffUnit, attempt), retry.MaxBackoff)
}

// sleep waits for d, returning false if ctx ends first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func saturate(d float64) time.Duration {
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(d)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/log"
)

type outcome struct {
	value any
	err   error
}

// execute drives one step through its attempts until it completes or runs
// out of attempts. A permanent error or the end of the run context stops
// retrying early. The recorded duration covers only the last attempt
func (fr *flowRun) execute(ctx context.Context, step *api.Step) {
	name := step.Name

	var err error
	var elapsed time.Duration
	for attempt := 1; ; attempt++ {
		started := time.Now()
		fr.update(name, func(st *api.StepState) error {
			if err := fr.transition(name, st, api.StepRunning); err != nil {
				return err
			}
			st.StartedAt = started
			st.Attempt = attempt
			st.SetError(nil)
			return nil
		})
		fr.notify(&api.Event{
			Type:    api.EventTypeStepStarted,
			Step:    name,
			Status:  api.StepRunning,
			Attempt: attempt,
		})

		var value any
		value, err = fr.attempt(ctx, step, attempt)
		elapsed = time.Since(started)
		if err == nil {
			fr.complete(step, attempt, value, elapsed)
			return
		}
		if attempt >= step.MaxRetries || api.IsPermanent(err) ||
			ctx.Err() != nil {
			break
		}

		delay := fr.engine.backoff(attempt)
		fr.update(name, func(st *api.StepState) error {
			if err := fr.transition(name, st, api.StepRetrying); err != nil {
				return err
			}
			st.SetError(err)
			return nil
		})
		slog.Warn("Step attempt failed",
			log.RunID(fr.runID),
			log.StepName(name),
			log.Attempt(attempt),
			slog.Duration("backoff", delay),
			log.Error(err))
		fr.notify(&api.Event{
			Type:    api.EventTypeStepRetrying,
			Step:    name,
			Status:  api.StepRetrying,
			Attempt: attempt,
			Error:   err.Error(),
		})

		if !sleep(ctx, delay) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
			break
		}
	}
	fr.fail(step, err, elapsed)
}

// attempt runs the step function once under its own deadline. A result that
// arrives after the deadline is discarded
func (fr *flowRun) attempt(
	ctx context.Context, step *api.Step, attempt int,
) (any, error) {
	actx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()

	h := newHandle(fr.runID, step.Name, attempt)
	prior := fr.snapshot()
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{
					err: fmt.Errorf("%w: %v", api.ErrStepPanicked, r),
				}
			}
		}()
		value, err := step.Func(actx, h, fr.input, prior)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) &&
			actx.Err() != nil && ctx.Err() == nil {
			return nil, timeoutError(step)
		}
		return out.value, out.err
	case <-actx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, timeoutError(step)
	}
}

func (fr *flowRun) complete(
	step *api.Step, attempt int, value any, dur time.Duration,
) {
	name := step.Name
	fr.update(name, func(st *api.StepState) error {
		if err := fr.transition(name, st, api.StepCompleted); err != nil {
			return err
		}
		st.Result = value
		st.DurationMs = dur.Milliseconds()
		fr.results[name] = value
		return nil
	})
	slog.Info("Step completed",
		log.RunID(fr.runID),
		log.StepName(name),
		log.Attempt(attempt),
		log.Duration(dur))
	fr.notify(&api.Event{
		Type:       api.EventTypeStepCompleted,
		Step:       name,
		Status:     api.StepCompleted,
		Attempt:    attempt,
		DurationMs: dur.Milliseconds(),
	})
}

func (fr *flowRun) fail(step *api.Step, err error, dur time.Duration) {
	name := step.Name
	var attempt int
	fr.update(name, func(st *api.StepState) error {
		if err := fr.transition(name, st, api.StepFailed); err != nil {
			return err
		}
		st.SetError(err)
		st.DurationMs = dur.Milliseconds()
		attempt = st.Attempt
		return nil
	})
	slog.Warn("Step failed",
		log.RunID(fr.runID),
		log.StepName(name),
		log.Attempt(attempt),
		log.Duration(dur),
		log.Error(err))
	fr.notify(&api.Event{
		Type:       api.EventTypeStepFailed,
		Step:       name,
		Status:     api.StepFailed,
		Attempt:    attempt,
		DurationMs: dur.Milliseconds(),
		Error:      err.Error(),
	})
}

func timeoutError(step *api.Step) error {
	return fmt.Errorf("%w: %s exceeded %s",
		api.ErrStepTimeout, step.Name, step.Timeout)
}

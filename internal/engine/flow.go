package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/log"
)

// flowRun owns the mutable state of exactly one RunWorkflow call
type flowRun struct {
	engine  *Engine
	input   any
	steps   map[api.StepName]*api.Step
	states  map[api.StepName]*api.StepState
	results api.Results
	runID   api.RunID
	order   []api.StepName
	mu      sync.Mutex
}

var ErrInvalidTransition = errors.New("invalid step status transition")

func (e *Engine) newFlowRun(
	runID api.RunID, steps []api.Step, order []api.StepName, input any,
) *flowRun {
	fr := &flowRun{
		engine:  e,
		input:   input,
		steps:   make(map[api.StepName]*api.Step, len(steps)),
		states:  make(map[api.StepName]*api.StepState, len(steps)),
		results: api.Results{},
		runID:   runID,
		order:   order,
	}
	for i := range steps {
		step := steps[i].WithDefaults(
			e.config.MaxRetries, e.config.StepTimeout,
		)
		fr.steps[step.Name] = &step
		fr.states[step.Name] = api.NewStepState()
	}
	return fr
}

func (fr *flowRun) run(ctx context.Context, started time.Time) *api.WorkflowResult {
	slog.Info("Workflow started",
		log.RunID(fr.runID),
		slog.Int("steps", len(fr.order)))
	fr.notify(&api.Event{Type: api.EventTypeWorkflowStarted})

	if fr.engine.config.Parallelism > 1 {
		fr.runParallel(ctx, fr.engine.config.Parallelism)
	} else {
		fr.runSequential(ctx)
	}

	res := fr.result(started)
	fr.notify(&api.Event{
		Type:       api.EventTypeWorkflowCompleted,
		Error:      res.Error,
		DurationMs: res.DurationMs,
		Success:    res.Success,
	})
	slog.Info("Workflow completed",
		log.RunID(fr.runID),
		slog.Bool("success", res.Success),
		slog.Int("completed", len(res.Completed)),
		slog.Int("failed", len(res.Failed)),
		slog.Int("skipped", len(res.Skipped)),
		log.Duration(res.Duration()))
	return res
}

func (fr *flowRun) runSequential(ctx context.Context) {
	for _, name := range fr.order {
		if fr.prepare(ctx, name) {
			fr.execute(ctx, fr.steps[name])
		}
	}
}

// runParallel dispatches every step whose dependencies are terminal, up to
// limit at a time. Pending steps are scanned in resolved order, so a step
// settled without executing unblocks its dependents within the same scan
func (fr *flowRun) runParallel(ctx context.Context, limit int) {
	pending := fr.order
	done := make(chan struct{})
	running := 0

	for len(pending) > 0 || running > 0 {
		var blocked []api.StepName
		for _, name := range pending {
			if running >= limit || !fr.dependenciesSettled(name) {
				blocked = append(blocked, name)
				continue
			}
			if !fr.prepare(ctx, name) {
				continue
			}
			running++
			go func(step *api.Step) {
				defer func() { done <- struct{}{} }()
				fr.execute(ctx, step)
			}(fr.steps[name])
		}
		pending = blocked

		if running > 0 {
			<-done
			running--
		}
	}
}

// prepare settles a step that must not execute, returning true only if the
// step should be handed to the executor
func (fr *flowRun) prepare(ctx context.Context, name api.StepName) bool {
	if dep, ok := fr.failedDependency(name); ok {
		fr.skip(name, dep)
		return false
	}
	if err := ctx.Err(); err != nil {
		fr.abandon(name, err)
		return false
	}
	return true
}

func (fr *flowRun) failedDependency(name api.StepName) (api.StepName, bool) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	for _, dep := range fr.steps[name].Dependencies {
		if fr.states[dep].Status != api.StepCompleted {
			return dep, true
		}
	}
	return "", false
}

func (fr *flowRun) dependenciesSettled(name api.StepName) bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	for _, dep := range fr.steps[name].Dependencies {
		if !fr.states[dep].IsTerminal() {
			return false
		}
	}
	return true
}

func (fr *flowRun) skip(name, dep api.StepName) {
	err := fmt.Errorf("%w: %s", api.ErrDependencyFailed, dep)
	fr.update(name, func(st *api.StepState) error {
		if err := fr.transition(name, st, api.StepSkipped); err != nil {
			return err
		}
		st.SetError(err)
		return nil
	})
	slog.Info("Step skipped",
		log.RunID(fr.runID),
		log.StepName(name),
		slog.String("dependency", string(dep)))
	fr.notify(&api.Event{
		Type:   api.EventTypeStepSkipped,
		Step:   name,
		Status: api.StepSkipped,
		Error:  err.Error(),
	})
}

// abandon fails a step that never started because the run context ended
func (fr *flowRun) abandon(name api.StepName, err error) {
	fr.update(name, func(st *api.StepState) error {
		if err := fr.transition(name, st, api.StepFailed); err != nil {
			return err
		}
		st.SetError(err)
		return nil
	})
	slog.Warn("Step abandoned",
		log.RunID(fr.runID),
		log.StepName(name),
		log.Error(err))
	fr.notify(&api.Event{
		Type:   api.EventTypeStepFailed,
		Step:   name,
		Status: api.StepFailed,
		Error:  err.Error(),
	})
}

// update applies fn to the named step state under the run lock
func (fr *flowRun) update(name api.StepName, fn func(*api.StepState) error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if err := fn(fr.states[name]); err != nil {
		slog.Error("Step state not updated",
			log.RunID(fr.runID),
			log.StepName(name),
			log.Error(err))
	}
}

func (fr *flowRun) transition(
	name api.StepName, st *api.StepState, to api.StepStatus,
) error {
	if !api.StepTransitions.CanTransition(st.Status, to) {
		return fmt.Errorf("%w: %s %s -> %s",
			ErrInvalidTransition, name, st.Status, to)
	}
	st.Status = to
	return nil
}

// snapshot copies the results of completed steps for a step function
func (fr *flowRun) snapshot() api.Results {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.results.Clone()
}

func (fr *flowRun) notify(ev *api.Event) {
	ev.RunID = fr.runID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	fr.engine.observer.Notify(ev)
}

func (fr *flowRun) result(started time.Time) *api.WorkflowResult {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	completed := time.Now()
	res := &api.WorkflowResult{
		RunID:       fr.runID,
		StartedAt:   started,
		CompletedAt: completed,
		Results:     fr.results.Clone(),
		Steps:       make(map[api.StepName]*api.StepState, len(fr.states)),
		Completed:   []api.StepName{},
		Failed:      []api.StepName{},
		Skipped:     []api.StepName{},
		DurationMs:  completed.Sub(started).Milliseconds(),
	}

	for _, name := range fr.order {
		st := fr.states[name]
		res.Steps[name] = st.Clone()
		switch st.Status {
		case api.StepCompleted:
			res.Completed = append(res.Completed, name)
		case api.StepFailed:
			res.Failed = append(res.Failed, name)
		case api.StepSkipped:
			res.Skipped = append(res.Skipped, name)
		}
	}

	res.Success = len(res.Failed) == 0
	if !res.Success {
		names := make([]string, len(res.Failed))
		for i, name := range res.Failed {
			names[i] = string(name)
		}
		res.Error = fmt.Sprintf("%s: %s",
			api.ErrStepsFailed, strings.Join(names, ", "))
	}
	return res
}

package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/kode4food/stepflow/internal/archive"
	"github.com/kode4food/stepflow/internal/config"
	"github.com/kode4food/stepflow/internal/engine/plan"
	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/log"
)

type (
	// Engine executes workflow runs. It holds only immutable configuration
	// and collaborators, so one instance may serve any number of concurrent
	// runs
	Engine struct {
		config   *config.Config
		observer Observer
		archive  archive.Store
	}

	// Dependencies are the optional collaborators of an Engine
	Dependencies struct {
		Observer Observer
		Archive  archive.Store
	}
)

const archiveTimeout = 5 * time.Second

// New creates an engine from the provided configuration. Zero-valued step
// and retry settings fall back to their defaults
func New(cfg *config.Config, deps Dependencies) (*Engine, error) {
	cfg = cfg.WithStepDefaults()
	if err := cfg.ValidateEngine(); err != nil {
		return nil, err
	}
	obs := deps.Observer
	if obs == nil {
		obs = Observers()
	}
	return &Engine{
		config:   cfg,
		observer: obs,
		archive:  deps.Archive,
	}, nil
}

// RunWorkflow executes the steps to completion and reports the outcome of
// every step. Step failures never produce an error: they are recorded in
// the result, and dependents of a failed step are skipped. An error is only
// returned when the step definitions themselves are invalid, in which case
// no step is executed. The returned result is never nil
func (e *Engine) RunWorkflow(
	ctx context.Context, runID api.RunID, steps []api.Step, input any,
) (*api.WorkflowResult, error) {
	if runID == "" {
		runID = api.NewRunID()
	}
	started := time.Now()

	order, err := plan.ResolveOrder(steps)
	if err != nil {
		slog.Error("Workflow rejected",
			log.RunID(runID),
			log.Error(err))
		e.observer.Notify(&api.Event{
			Timestamp: time.Now(),
			Type:      api.EventTypeWorkflowRejected,
			RunID:     runID,
			Error:     err.Error(),
		})
		return configFailure(runID, started, err), err
	}

	if e.config.WorkflowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.WorkflowTimeout)
		defer cancel()
	}

	fr := e.newFlowRun(runID, steps, order, input)
	res := fr.run(ctx, started)
	e.archiveResult(ctx, res)
	return res, nil
}

func (e *Engine) archiveResult(ctx context.Context, res *api.WorkflowResult) {
	if e.archive == nil {
		return
	}
	actx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx), archiveTimeout,
	)
	defer cancel()
	if err := e.archive.Save(actx, res.Clone()); err != nil {
		slog.Warn("Failed to archive workflow result",
			log.RunID(res.RunID),
			log.Error(err))
	}
}

func configFailure(
	runID api.RunID, started time.Time, err error,
) *api.WorkflowResult {
	now := time.Now()
	return &api.WorkflowResult{
		RunID:       runID,
		StartedAt:   started,
		CompletedAt: now,
		Results:     api.Results{},
		Steps:       map[api.StepName]*api.StepState{},
		Completed:   []api.StepName{},
		Failed:      []api.StepName{},
		Skipped:     []api.StepName{},
		Error:       err.Error(),
		DurationMs:  now.Sub(started).Milliseconds(),
		Success:     false,
	}
}

package shopping

import (
	"context"
	"log/slog"
	"time"

	"github.com/kode4food/stepflow/internal/client"
	"github.com/kode4food/stepflow/internal/config"
	"github.com/kode4food/stepflow/internal/engine"
	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/builder"
	"github.com/kode4food/stepflow/pkg/log"
)

// Planner builds shopping plans by running the shopping graph
type Planner struct {
	engine    *engine.Engine
	completer client.Completer
	prices    client.PriceEstimator
	overrides config.Overrides
}

const GraphName = "shopping"

const (
	StepExtract   api.StepName = "extractIngredients"
	StepNormalize api.StepName = "normalizeIngredients"
	StepEstimate  api.StepName = "estimatePrices"
	StepRoute     api.StepName = "optimizeRoute"
)

// NewPlanner creates a Planner. Overrides may be nil
func NewPlanner(
	e *engine.Engine, c client.Completer, prices client.PriceEstimator,
	overrides config.Overrides,
) *Planner {
	return &Planner{
		engine:    e,
		completer: c,
		prices:    prices,
		overrides: overrides,
	}
}

// Steps returns the step definitions of the shopping graph
func (p *Planner) Steps() ([]api.Step, error) {
	steps, err := builder.Steps(
		builder.NewStep(StepExtract).
			WithFunc(p.extractIngredients).
			WithTimeout(30*time.Second),
		builder.NewStep(StepNormalize).
			WithFunc(p.normalizeIngredients).
			DependsOn(StepExtract).
			WithTimeout(20*time.Second),
		builder.NewStep(StepEstimate).
			WithFunc(p.estimatePrices).
			DependsOn(StepNormalize).
			WithTimeout(40*time.Second),
		builder.NewStep(StepRoute).
			WithFunc(p.optimizeRoute).
			DependsOn(StepExtract, StepNormalize, StepEstimate).
			WithTimeout(20*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return p.overrides.Apply(GraphName, steps), nil
}

// Plan runs the shopping graph. When the run does not succeed the default
// plan is returned instead. An error is returned only if the graph itself
// is invalid
func (p *Planner) Plan(
	ctx context.Context, runID api.RunID, req Request,
) (*Plan, *api.WorkflowResult, error) {
	steps, err := p.Steps()
	if err != nil {
		return DefaultPlan(), nil, err
	}

	res, err := p.engine.RunWorkflow(ctx, runID, steps, req)
	if err != nil {
		return DefaultPlan(), res, err
	}

	plan, ok := api.ResultAs[Plan](res.Results, StepRoute)
	if !res.Success || !ok {
		slog.Warn("Shopping plan unavailable, using default",
			log.RunID(res.RunID),
			log.ErrorString(res.Error))
		fallback := DefaultPlan()
		fallback.RunID = res.RunID
		return fallback, res, nil
	}
	plan.RunID = res.RunID
	return &plan, res, nil
}

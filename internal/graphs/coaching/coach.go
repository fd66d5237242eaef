package coaching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kode4food/stepflow/internal/client"
	"github.com/kode4food/stepflow/internal/config"
	"github.com/kode4food/stepflow/internal/engine"
	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/builder"
	"github.com/kode4food/stepflow/pkg/log"
)

// Coach produces coaching messages by running the coaching graph
type Coach struct {
	engine    *engine.Engine
	completer client.Completer
	overrides config.Overrides
}

const GraphName = "coaching"

const (
	StepFormScore  api.StepName = "formScore"
	StepAdherence  api.StepName = "adherence"
	StepNutrition  api.StepName = "nutrition"
	StepSynthesize api.StepName = "synthesize"
)

// NewCoach creates a Coach. Overrides may be nil
func NewCoach(
	e *engine.Engine, c client.Completer, overrides config.Overrides,
) *Coach {
	return &Coach{
		engine:    e,
		completer: c,
		overrides: overrides,
	}
}

// Steps returns the step definitions of the coaching graph
func (c *Coach) Steps() ([]api.Step, error) {
	steps, err := builder.Steps(
		builder.NewStep(StepFormScore).
			WithFunc(c.formScore).
			WithTimeout(30*time.Second),
		builder.NewStep(StepAdherence).
			WithFunc(c.adherence).
			WithTimeout(30*time.Second),
		builder.NewStep(StepNutrition).
			WithFunc(c.nutrition).
			WithTimeout(30*time.Second),
		builder.NewStep(StepSynthesize).
			WithFunc(c.synthesize).
			DependsOn(StepFormScore, StepAdherence, StepNutrition).
			WithTimeout(40*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return c.overrides.Apply(GraphName, steps), nil
}

// Message runs the coaching graph. If synthesis does not happen, the
// message is composed from whichever analyses completed, and with none
// available the default message is returned. An error is returned only if
// the graph itself is invalid
func (c *Coach) Message(
	ctx context.Context, runID api.RunID, req Request,
) (*Message, *api.WorkflowResult, error) {
	steps, err := c.Steps()
	if err != nil {
		return DefaultMessage(), nil, err
	}

	res, err := c.engine.RunWorkflow(ctx, runID, steps, req)
	if err != nil {
		return DefaultMessage(), res, err
	}

	if text, ok := api.ResultAs[string](res.Results, StepSynthesize); ok &&
		res.Success {
		return &Message{RunID: res.RunID, Text: text}, res, nil
	}

	slog.Warn("Coaching synthesis unavailable",
		log.RunID(res.RunID),
		log.ErrorString(res.Error))

	if text, ok := Compose(req.Name, res.Results); ok {
		return &Message{RunID: res.RunID, Text: text, Degraded: true}, res, nil
	}
	msg := DefaultMessage()
	msg.RunID = res.RunID
	return msg, res, nil
}

// Compose builds a message from whichever analyses are present in results
func Compose(name string, results api.Results) (string, bool) {
	var parts []string
	if form, ok := api.ResultAs[FormAnalysis](results, StepFormScore); ok {
		parts = append(parts, fmt.Sprintf("Form: %s", form.Summary))
	}
	if adh, ok := api.ResultAs[AdherenceAnalysis](results, StepAdherence); ok {
		parts = append(parts, fmt.Sprintf("Consistency: %s", adh.Summary))
	}
	if nut, ok := api.ResultAs[NutritionAnalysis](results, StepNutrition); ok {
		parts = append(parts, fmt.Sprintf("Nutrition: %s", nut.Summary))
	}
	if len(parts) == 0 {
		return "", false
	}
	return fmt.Sprintf("Hi %s! %s", displayName(name),
		strings.Join(parts, " ")), true
}

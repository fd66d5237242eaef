package coaching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kode4food/stepflow/internal/client"
	"github.com/kode4food/stepflow/pkg/api"
)

const (
	formSystem = "You are a strength coach reviewing technique scores " +
		`from 0 to 10. Reply with JSON only: {"score": number, ` +
		`"summary": string}. Keep the summary to one sentence.`

	adherenceSystem = "You are a supportive coach reviewing training " +
		`attendance. Reply with JSON only: {"summary": string}. Keep ` +
		"it to one sentence."

	nutritionSystem = "You are a sports nutritionist. Rate the meals " +
		`against the goal. Reply with JSON only: {"rating": "good" | ` +
		`"fair" | "poor", "summary": string}. Keep it to one sentence.`

	synthesizeSystem = "You are a friendly personal coach. Combine the " +
		"notes into a short encouraging message addressed to the " +
		"athlete. Plain text, at most four sentences."
)

var (
	ErrInvalidInput  = errors.New("invalid coaching request")
	ErrMissingResult = errors.New("missing step result")
	ErrEmptySummary  = errors.New("analysis returned no summary")
)

func (c *Coach) formScore(
	ctx context.Context, _ api.Handle, input any, _ api.Results,
) (any, error) {
	req, err := requestFrom(input)
	if err != nil {
		return nil, err
	}

	avg := average(req.FormScores)
	prompt := fmt.Sprintf("Goal: %s\nRecent form scores: %s\nAverage: %.1f",
		req.Goal, formatScores(req.FormScores), avg)
	res, err := client.CompleteJSON(ctx, c.completer, formSystem, prompt)
	if err != nil {
		return nil, err
	}

	summary, err := summaryOf(res)
	if err != nil {
		return nil, err
	}
	score := avg
	if s := res.Get("score"); s.Type == gjson.Number {
		score = min(max(s.Float(), 0), 10)
	}
	return FormAnalysis{Score: score, Summary: summary}, nil
}

func (c *Coach) adherence(
	ctx context.Context, _ api.Handle, input any, _ api.Results,
) (any, error) {
	req, err := requestFrom(input)
	if err != nil {
		return nil, err
	}

	rate := AdherenceRate(req.SessionsPlanned, req.SessionsCompleted)
	prompt := fmt.Sprintf(
		"Goal: %s\nSessions planned: %d\nSessions completed: %d\n"+
			"Adherence: %.0f%%",
		req.Goal, req.SessionsPlanned, req.SessionsCompleted, rate*100,
	)
	res, err := client.CompleteJSON(ctx, c.completer, adherenceSystem, prompt)
	if err != nil {
		return nil, err
	}

	summary, err := summaryOf(res)
	if err != nil {
		return nil, err
	}
	return AdherenceAnalysis{Rate: rate, Summary: summary}, nil
}

func (c *Coach) nutrition(
	ctx context.Context, _ api.Handle, input any, _ api.Results,
) (any, error) {
	req, err := requestFrom(input)
	if err != nil {
		return nil, err
	}

	meals := "none logged"
	if len(req.Meals) > 0 {
		meals = strings.Join(req.Meals, "; ")
	}
	prompt := fmt.Sprintf("Goal: %s\nMeals: %s", req.Goal, meals)
	res, err := client.CompleteJSON(ctx, c.completer, nutritionSystem, prompt)
	if err != nil {
		return nil, err
	}

	summary, err := summaryOf(res)
	if err != nil {
		return nil, err
	}
	rating := strings.ToLower(res.Get("rating").String())
	switch rating {
	case "good", "fair", "poor":
	default:
		rating = "fair"
	}
	return NutritionAnalysis{Rating: rating, Summary: summary}, nil
}

func (c *Coach) synthesize(
	ctx context.Context, _ api.Handle, input any, prior api.Results,
) (any, error) {
	req, err := requestFrom(input)
	if err != nil {
		return nil, err
	}
	form, ok := api.ResultAs[FormAnalysis](prior, StepFormScore)
	if !ok {
		return nil, missing(StepFormScore)
	}
	adh, ok := api.ResultAs[AdherenceAnalysis](prior, StepAdherence)
	if !ok {
		return nil, missing(StepAdherence)
	}
	nut, ok := api.ResultAs[NutritionAnalysis](prior, StepNutrition)
	if !ok {
		return nil, missing(StepNutrition)
	}

	prompt := fmt.Sprintf(
		"Athlete: %s\nGoal: %s\nForm (%.1f/10): %s\n"+
			"Adherence (%.0f%%): %s\nNutrition (%s): %s",
		displayName(req.Name), req.Goal,
		form.Score, form.Summary,
		adh.Rate*100, adh.Summary,
		nut.Rating, nut.Summary,
	)
	return c.completer.Complete(ctx, client.CompletionRequest{
		System: synthesizeSystem,
		Prompt: prompt,
	})
}

// AdherenceRate is the completed share of planned sessions, capped at 1
func AdherenceRate(planned, completed int) float64 {
	if planned <= 0 {
		return 0
	}
	return min(float64(max(completed, 0))/float64(planned), 1)
}

func average(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func formatScores(scores []float64) string {
	if len(scores) == 0 {
		return "none recorded"
	}
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%.1f", s)
	}
	return strings.Join(parts, ", ")
}

func summaryOf(res gjson.Result) (string, error) {
	summary := strings.TrimSpace(res.Get("summary").String())
	if summary == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "there"
}

func requestFrom(input any) (Request, error) {
	switch req := input.(type) {
	case Request:
		return req, nil
	case *Request:
		if req != nil {
			return *req, nil
		}
	}
	return Request{}, api.Permanent(
		fmt.Errorf("%w: unexpected input %T", ErrInvalidInput, input),
	)
}

func missing(name api.StepName) error {
	return api.Permanent(fmt.Errorf("%w: %s", ErrMissingResult, name))
}

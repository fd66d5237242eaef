package api

import (
	"maps"
	"time"
)

// WorkflowResult summarizes one finished workflow run
type WorkflowResult struct {
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at"`
	Results     Results                 `json:"results"`
	Steps       map[StepName]*StepState `json:"steps"`
	RunID       RunID                   `json:"run_id"`
	Error       string                  `json:"error,omitempty"`
	Completed   []StepName              `json:"completed_steps"`
	Failed      []StepName              `json:"failed_steps"`
	Skipped     []StepName              `json:"skipped_steps"`
	DurationMs  int64                   `json:"duration_ms"`
	Success     bool                    `json:"success"`
}

// Step returns the final state of the named step
func (r *WorkflowResult) Step(name StepName) (*StepState, bool) {
	st, ok := r.Steps[name]
	return st, ok
}

// Status returns the final status of the named step, or the empty status if
// the step was not part of the run
func (r *WorkflowResult) Status(name StepName) StepStatus {
	if st, ok := r.Steps[name]; ok {
		return st.Status
	}
	return ""
}

// Duration returns the total run time
func (r *WorkflowResult) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}

// Clone returns a copy of the result whose maps can be modified freely
func (r *WorkflowResult) Clone() *WorkflowResult {
	res := *r
	res.Results = maps.Clone(r.Results)
	res.Steps = make(map[StepName]*StepState, len(r.Steps))
	for name, st := range r.Steps {
		res.Steps[name] = st.Clone()
	}
	return &res
}

package api

import (
	"time"

	"github.com/kode4food/stepflow/pkg/util"
)

type (
	// StepStatus represents the current state of a step within one run
	StepStatus string

	// StepState is the mutable runtime record of one step in one run
	StepState struct {
		Result     any        `json:"result,omitempty"`
		Err        error      `json:"-"`
		StartedAt  time.Time  `json:"started_at,omitzero"`
		Status     StepStatus `json:"status"`
		Error      string     `json:"error,omitempty"`
		Attempt    int        `json:"attempt"`
		DurationMs int64      `json:"duration_ms"`
	}
)

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepRetrying  StepStatus = "retrying"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepTransitions is the step state machine. Pending may fail directly when
// the run is cancelled before the step gets its first attempt
var StepTransitions = util.StateTransitions[StepStatus]{
	StepPending: util.SetOf(
		StepRunning,
		StepSkipped,
		StepFailed,
	),
	StepRunning: util.SetOf(
		StepRetrying,
		StepCompleted,
		StepFailed,
	),
	StepRetrying: util.SetOf(
		StepRunning,
		StepFailed,
	),
	StepCompleted: {},
	StepFailed:    {},
	StepSkipped:   {},
}

// NewStepState creates a runtime record in the pending state
func NewStepState() *StepState {
	return &StepState{Status: StepPending}
}

// IsTerminal reports whether the step has reached a final status
func (s *StepState) IsTerminal() bool {
	return StepTransitions.IsTerminal(s.Status)
}

// SetError records an error on the state, keeping the message for
// serialization alongside the original value
func (s *StepState) SetError(err error) {
	s.Err = err
	if err == nil {
		s.Error = ""
		return
	}
	s.Error = err.Error()
}

// Clone returns a copy of the state
func (s *StepState) Clone() *StepState {
	res := *s
	return &res
}

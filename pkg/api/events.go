package api

import "time"

type (
	// EventType identifies a workflow lifecycle event
	EventType string

	// Event describes a single lifecycle change during a workflow run
	Event struct {
		Timestamp  time.Time  `json:"timestamp"`
		Type       EventType  `json:"type"`
		RunID      RunID      `json:"run_id"`
		Step       StepName   `json:"step,omitempty"`
		Status     StepStatus `json:"status,omitempty"`
		Error      string     `json:"error,omitempty"`
		Attempt    int        `json:"attempt,omitempty"`
		DurationMs int64      `json:"duration_ms,omitempty"`
		Success    bool       `json:"success,omitempty"`
	}
)

const (
	EventTypeWorkflowRejected  EventType = "workflow_rejected"
	EventTypeWorkflowStarted   EventType = "workflow_started"
	EventTypeWorkflowCompleted EventType = "workflow_completed"
	EventTypeStepStarted       EventType = "step_started"
	EventTypeStepRetrying      EventType = "step_retrying"
	EventTypeStepCompleted     EventType = "step_completed"
	EventTypeStepFailed        EventType = "step_failed"
	EventTypeStepSkipped       EventType = "step_skipped"
)

// IsStepEvent reports whether the event concerns a single step
func (e *Event) IsStepEvent() bool {
	return e.Step != ""
}

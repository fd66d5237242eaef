package api

import "github.com/google/uuid"

type (
	// RunID identifies a single workflow run
	RunID string

	// StepName uniquely identifies a step within one workflow graph
	StepName string
)

// NewRunID generates a random run identifier
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

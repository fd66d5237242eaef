package engine

import (
	"log/slog"

	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/log"
)

type handle struct {
	logger  *slog.Logger
	runID   api.RunID
	step    api.StepName
	attempt int
}

var _ api.Handle = (*handle)(nil)

func newHandle(runID api.RunID, step api.StepName, attempt int) *handle {
	return &handle{
		logger: slog.Default().With(
			log.RunID(runID),
			log.StepName(step),
			log.Attempt(attempt),
		),
		runID:   runID,
		step:    step,
		attempt: attempt,
	}
}

func (h *handle) RunID() api.RunID {
	return h.runID
}

func (h *handle) Step() api.StepName {
	return h.step
}

func (h *handle) Attempt() int {
	return h.attempt
}

func (h *handle) Logger() *slog.Logger {
	return h.logger
}

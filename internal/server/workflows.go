package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/stepflow/internal/archive"
	"github.com/kode4food/stepflow/internal/graphs/coaching"
	"github.com/kode4food/stepflow/internal/graphs/shopping"
	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/log"
)

type (
	// ShoppingResponse is returned to shopping callers. Step errors stay in
	// the archived run and are never part of the response
	ShoppingResponse struct {
		Plan     *shopping.Plan `json:"plan"`
		RunID    api.RunID      `json:"run_id"`
		Degraded bool           `json:"degraded"`
	}

	// CoachingResponse is returned to coaching callers. Step errors stay in
	// the archived run and are never part of the response
	CoachingResponse struct {
		Message  *coaching.Message `json:"message"`
		RunID    api.RunID         `json:"run_id"`
		Degraded bool              `json:"degraded"`
	}
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrRunNotFound    = errors.New("run not found")
	ErrNoArchive      = errors.New("run archive is not configured")
	ErrInternal       = errors.New("internal server error")
)

func (s *Server) planShopping(c *gin.Context) {
	var req shopping.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	runID := api.RunID(c.Query("run_id"))
	plan, res, err := s.planner.Plan(c.Request.Context(), runID, req)
	if err != nil {
		slog.Error("Shopping graph rejected",
			log.RunID(runID),
			log.Error(err))
	}
	id, degraded := outcome(runID, res, err)
	plan.RunID = id
	c.JSON(http.StatusOK, ShoppingResponse{
		Plan:     plan,
		RunID:    id,
		Degraded: degraded,
	})
}

func (s *Server) coachAthlete(c *gin.Context) {
	var req coaching.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	runID := api.RunID(c.Query("run_id"))
	msg, res, err := s.coach.Message(c.Request.Context(), runID, req)
	if err != nil {
		slog.Error("Coaching graph rejected",
			log.RunID(runID),
			log.Error(err))
	}
	id, degraded := outcome(runID, res, err)
	msg.RunID = id
	c.JSON(http.StatusOK, CoachingResponse{
		Message:  msg,
		RunID:    id,
		Degraded: degraded,
	})
}

// outcome reduces a run to what a caller may see: its ID and whether the
// response had to fall back
func outcome(
	runID api.RunID, res *api.WorkflowResult, err error,
) (api.RunID, bool) {
	if res == nil {
		return runID, true
	}
	return res.RunID, err != nil || !res.Success
}

func (s *Server) getRun(c *gin.Context) {
	runID := api.RunID(c.Param("runID"))
	if s.archive == nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  ErrNoArchive.Error(),
			Status: http.StatusNotFound,
		})
		return
	}

	res, err := s.archive.Load(c.Request.Context(), runID)
	if errors.Is(err, archive.ErrNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", ErrRunNotFound, runID),
			Status: http.StatusNotFound,
		})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrInvalidRequest, err),
		Status: http.StatusBadRequest,
	})
}

func internalError(c *gin.Context, err error) {
	slog.Error("Request failed",
		slog.String("path", c.FullPath()),
		log.Error(err))
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  ErrInternal.Error(),
		Status: http.StatusInternalServerError,
	})
}

// Package handlers implements the gin handlers of the operator API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/intelpipe/internal/application"
	"github.com/turtacn/intelpipe/internal/scheduler"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
)

// AdminHandler exposes manual stage triggers and run summaries. This is an
// operator surface for the pipeline, not the external CRUD layer.
type AdminHandler struct {
	scheduler *scheduler.Scheduler
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{scheduler: sched}
}

// TriggerRun forces one run of the named stage. A trigger over unchanged
// upstream data is idempotent: dedup and the alert trigger keys absorb it.
func (h *AdminHandler) TriggerRun(c *gin.Context) {
	stage := constants.Stage(c.Param("stage"))

	err := h.scheduler.Trigger(c.Request.Context(), stage)
	switch {
	case err == nil:
		runner, _ := h.scheduler.Runner(stage)
		c.JSON(http.StatusOK, gin.H{"stage": stage, "summary": runner.LastRun()})
	case errors.HasCode(err, errors.CodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.HasCode(err, errors.CodeConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// LastRuns returns the most recent summary of every registered stage.
func (h *AdminHandler) LastRuns(c *gin.Context) {
	out := make(map[constants.Stage]*application.RunSummary)
	for _, stage := range constants.Stages() {
		if runner, ok := h.scheduler.Runner(stage); ok {
			out[stage] = runner.LastRun()
		}
	}
	c.JSON(http.StatusOK, out)
}

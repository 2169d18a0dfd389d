package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/agency-be/internal/api/dto"
)

// CronHandler exposes the recurrence trigger
type CronHandler struct {
	logger *slog.Logger
	runner RecurrenceRunner
	secret string
}

// NewCronHandler creates a new CronHandler instance
func NewCronHandler(deps *Dependencies) *CronHandler {
	return &CronHandler{
		logger: deps.Logger,
		runner: deps.Recurrence,
		secret: deps.CronSecret,
	}
}

// authorized checks the bearer secret when one is configured
func (h *CronHandler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		return true
	}
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// RunRecurringJobs handles GET /api/cron/recurring-jobs
func (h *CronHandler) RunRecurringJobs(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, dto.CronResponse{Success: false, Error: "unauthorized"})
		return
	}

	summary, err := h.runner.CheckAndSpawnRecurringJobs(c.Request.Context())
	if err != nil {
		h.logger.Error("Recurrence cycle failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.CronResponse{Success: false, Error: "failed to spawn recurring jobs"})
		return
	}

	spawned := summary.Spawned
	c.JSON(http.StatusOK, dto.CronResponse{
		Success:     true,
		JobsSpawned: &spawned,
		JobIDs:      summary.JobIDs,
		Results:     summary.Results,
		Skipped:     summary.Skipped,
	})
}

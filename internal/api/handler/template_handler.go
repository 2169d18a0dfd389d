package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/agency-be/internal/api/dto"
	"github.com/cuongbtq/agency-be/internal/recurrence"
)

// TemplateHandler manages recurring job templates
type TemplateHandler struct {
	logger    *slog.Logger
	templates TemplateManager
}

// NewTemplateHandler creates a new TemplateHandler instance
func NewTemplateHandler(deps *Dependencies) *TemplateHandler {
	return &TemplateHandler{
		logger:    deps.Logger,
		templates: deps.Templates,
	}
}

// Create handles POST /api/recurring-jobs
func (h *TemplateHandler) Create(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var startAt time.Time
	if req.StartAt != nil {
		startAt = *req.StartAt
	}

	tpl, err := h.templates.Create(c.Request.Context(), caller, recurrence.CreateTemplateInput{
		CampaignID:         req.CampaignID,
		Title:              req.Title,
		Description:        req.Description,
		Budget:             req.Budget,
		IntervalValue:      req.IntervalValue,
		IntervalUnit:       req.IntervalUnit,
		DeadlineOffsetDays: req.DeadlineOffsetDays,
		StartAt:            startAt,
		AssigneeUserID:     req.AssigneeUserID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, tpl)
}

// List handles GET /api/recurring-jobs
func (h *TemplateHandler) List(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	templates, err := h.templates.List(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// Deactivate handles DELETE /api/recurring-jobs/:id
func (h *TemplateHandler) Deactivate(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	if err := h.templates.Deactivate(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "template deactivated"})
}

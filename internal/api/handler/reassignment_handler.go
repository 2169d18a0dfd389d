package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/agency-be/internal/api/dto"
	"github.com/cuongbtq/agency-be/internal/reassignment"
)

// ReassignmentHandler handles reassignment requests and direct transfers
type ReassignmentHandler struct {
	logger   *slog.Logger
	workflow ReassignmentWorkflow
}

// NewReassignmentHandler creates a new ReassignmentHandler instance
func NewReassignmentHandler(deps *Dependencies) *ReassignmentHandler {
	return &ReassignmentHandler{
		logger:   deps.Logger,
		workflow: deps.Reassignments,
	}
}

// CreateRequest handles POST /api/reassignments
func (h *ReassignmentHandler) CreateRequest(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req dto.CreateReassignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rr, err := h.workflow.RequestReassignment(c.Request.Context(), caller, reassignment.RequestInput{
		AssignmentID: req.AssignmentID,
		TargetUserID: req.TargetUserID,
		Reason:       req.Reason,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, rr)
}

// Approve handles POST /api/reassignments/:id/approve
func (h *ReassignmentHandler) Approve(c *gin.Context) {
	h.decide(c, true)
}

// Reject handles POST /api/reassignments/:id/reject
func (h *ReassignmentHandler) Reject(c *gin.Context) {
	h.decide(c, false)
}

func (h *ReassignmentHandler) decide(c *gin.Context, approve bool) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	// the body is optional
	var req dto.DecideReassignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	rr, err := h.workflow.DecideReassignment(c.Request.Context(), caller, c.Param("id"), approve, req.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, rr)
}

// ListRequests handles GET /api/reassignments
func (h *ReassignmentHandler) ListRequests(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req dto.ListReassignmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	requests, err := h.workflow.List(c.Request.Context(), caller, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// Reassign handles PATCH /api/assignments
func (h *ReassignmentHandler) Reassign(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req dto.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	assignment, err := h.workflow.Reassign(c.Request.Context(), caller, reassignment.DirectInput{
		AssignmentID:   req.AssignmentID,
		NewUserID:      req.NewUserID,
		ExpectedUserID: req.ExpectedUserID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

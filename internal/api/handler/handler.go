package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/notify"
	"github.com/cuongbtq/agency-be/internal/reassignment"
	"github.com/cuongbtq/agency-be/internal/recurrence"
	"github.com/cuongbtq/agency-be/internal/session"
)

// CallerKey is the gin context key holding the authenticated domain.Caller
const CallerKey = "caller"

// RecurrenceRunner runs one spawn cycle
type RecurrenceRunner interface {
	CheckAndSpawnRecurringJobs(ctx context.Context) (*recurrence.Summary, error)
}

// TemplateManager manages recurring templates
type TemplateManager interface {
	Create(ctx context.Context, caller domain.Caller, in recurrence.CreateTemplateInput) (*domain.RecurringJobTemplate, error)
	List(ctx context.Context, caller domain.Caller) ([]domain.RecurringJobTemplate, error)
	Deactivate(ctx context.Context, caller domain.Caller, id string) error
}

// ReassignmentWorkflow is the reassignment request and transfer workflow
type ReassignmentWorkflow interface {
	RequestReassignment(ctx context.Context, caller domain.Caller, in reassignment.RequestInput) (*domain.ReassignmentRequest, error)
	DecideReassignment(ctx context.Context, caller domain.Caller, requestID string, approve bool, note string) (*domain.ReassignmentRequest, error)
	Reassign(ctx context.Context, caller domain.Caller, in reassignment.DirectInput) (*domain.JobAssignment, error)
	List(ctx context.Context, caller domain.Caller, status string) ([]domain.ReassignmentRequest, error)
}

// NotificationInbox is the owner's view of their notifications
type NotificationInbox interface {
	MarkRead(ctx context.Context, caller domain.Caller, id string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, caller domain.Caller) (int64, error)
	List(ctx context.Context, caller domain.Caller, filter notify.ListFilter) (*notify.Page, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	Sessions      session.Resolver
	CronSecret    string
	Recurrence    RecurrenceRunner
	Templates     TemplateManager
	Reassignments ReassignmentWorkflow
	Notifications NotificationInbox
	HealthCheck   func(ctx context.Context) error
}

// callerFrom returns the caller stored by the auth middleware
func callerFrom(c *gin.Context) (domain.Caller, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return domain.Caller{}, false
	}
	caller, ok := v.(domain.Caller)
	return caller, ok
}

// mustCaller writes a 401 when no caller is present
func mustCaller(c *gin.Context) (domain.Caller, bool) {
	caller, ok := callerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return domain.Caller{}, false
	}
	return caller, true
}

// respondError maps a workflow error onto a status code. Internal errors are
// logged and hidden from the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	default:
		logger.Error("Request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// bindingMessage renders binding failures with the JSON field names
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
}

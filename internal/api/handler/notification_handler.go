package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/agency-be/internal/api/dto"
	"github.com/cuongbtq/agency-be/internal/notify"
)

// NotificationHandler serves the caller's notification inbox
type NotificationHandler struct {
	logger *slog.Logger
	inbox  NotificationInbox
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(deps *Dependencies) *NotificationHandler {
	return &NotificationHandler{
		logger: deps.Logger,
		inbox:  deps.Notifications,
	}
}

// MarkRead handles PATCH /api/notifications/:id
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := uuid.Validate(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	n, err := h.inbox.MarkRead(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, n)
}

// MarkAllRead handles PATCH /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	updated, err := h.inbox.MarkAllRead(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.MarkAllReadResponse{Updated: updated})
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	var req dto.ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	cursor, err := DecodeNotificationCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return
	}

	page, err := h.inbox.List(c.Request.Context(), caller, notify.ListFilter{
		UnreadOnly: req.Unread,
		PageSize:   req.PageSize,
		Cursor:     cursor,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListNotificationsResponse{
		Notifications: page.Notifications,
		NextCursor:    EncodeNotificationCursor(page.Next),
	})
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/agency-be/internal/authz"
	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the data access the notification service needs
type Store interface {
	GetNotification(ctx context.Context, id string) (*domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) (*domain.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	ListNotifications(ctx context.Context, filter storage.NotificationFilter) ([]domain.Notification, error)
}

// Service handles the read side of notifications for their owner
type Service struct {
	store Store
	authz authz.Authorizer
	now   func() time.Time
}

// NewService creates a notification service
func NewService(store Store, authorizer authz.Authorizer) *Service {
	return &Service{store: store, authz: authorizer, now: time.Now}
}

// MarkRead flags one notification as read. Only its owner may do so; an already
// read notification is returned unchanged.
func (s *Service) MarkRead(ctx context.Context, caller domain.Caller, id string) (*domain.Notification, error) {
	if id == "" {
		return nil, domain.Validationf("notification id is required")
	}

	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authz.Authorize(ctx, caller, authz.ActionReadNotification, authz.Resource{OwnerID: n.UserID}); err != nil {
		return nil, err
	}

	if n.IsRead {
		return n, nil
	}

	updated, err := s.store.MarkNotificationRead(ctx, id, caller.UserID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkAllRead flags every unread notification of the caller
func (s *Service) MarkAllRead(ctx context.Context, caller domain.Caller) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, caller.UserID, s.now().UTC())
}

// ListFilter selects a page of the caller's notifications
type ListFilter struct {
	UnreadOnly bool
	PageSize   int
	Cursor     *storage.NotificationCursor
}

// Page is one page of notifications. Next is nil on the last page.
type Page struct {
	Notifications []domain.Notification
	Next          *storage.NotificationCursor
}

// List returns the caller's notifications newest first
func (s *Service) List(ctx context.Context, caller domain.Caller, filter ListFilter) (*Page, error) {
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		return nil, domain.Validationf("page_size must not exceed %d", maxPageSize)
	}

	rows, err := s.store.ListNotifications(ctx, storage.NotificationFilter{
		UserID:     caller.UserID,
		UnreadOnly: filter.UnreadOnly,
		PageSize:   pageSize,
		Cursor:     filter.Cursor,
	})
	if err != nil {
		return nil, err
	}

	page := &Page{Notifications: rows}
	if len(rows) > pageSize {
		page.Notifications = rows[:pageSize]
		last := page.Notifications[pageSize-1]
		page.Next = &storage.NotificationCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	if page.Notifications == nil {
		page.Notifications = []domain.Notification{}
	}
	return page, nil
}

// ErrInvalidEvent marks a broker payload that can never be stored
var ErrInvalidEvent = errors.New("invalid notification event")

// Persist stores a notification event received from the broker
func Persist(ctx context.Context, writer Writer, body []byte) error {
	msg, err := DecodeEvent(body)
	if err != nil {
		return err
	}
	msg.fill(time.Now().UTC())
	if err := writer.CreateNotification(ctx, msg.Record()); err != nil {
		return fmt.Errorf("failed to persist notification %s: %w", msg.ID, err)
	}
	return nil
}

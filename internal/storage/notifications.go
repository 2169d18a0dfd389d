package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/agency-be/internal/domain"
)

const notificationColumns = `id, user_id, title, message, link, is_read, created_at, read_at`

// NotificationFilter pages through one user's notifications
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	PageSize   int
	Cursor     *NotificationCursor
}

// NotificationCursor is the (created_at, id) of the last row on the previous page
type NotificationCursor struct {
	CreatedAt time.Time
	ID        string
}

// CreateNotification inserts a notification
func (q *queries) CreateNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, title, message, link, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := q.ext.ExecContext(ctx, query, n.ID, n.UserID, n.Title, n.Message, n.Link, n.IsRead, n.CreatedAt)
	if err != nil {
		return dbError("failed to create notification", err)
	}
	return nil
}

// GetNotification fetches a notification by id
func (q *queries) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	var n domain.Notification
	if err := sqlx.GetContext(ctx, q.ext, &n, query, id); err != nil {
		if nf := notFound(err, "notification %s", id); nf != nil {
			return nil, nf
		}
		return nil, dbError("failed to get notification", err)
	}
	return &n, nil
}

// MarkNotificationRead sets is_read for the owner's notification. read_at keeps its
// first value so repeating the call changes nothing.
func (q *queries) MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) (*domain.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE,
		    read_at = COALESCE(read_at, $1)
		WHERE id = $2
		  AND user_id = $3
		RETURNING ` + notificationColumns

	var n domain.Notification
	if err := sqlx.GetContext(ctx, q.ext, &n, query, at, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("notification %s", id)
		}
		return nil, dbError("failed to mark notification read", err)
	}
	return &n, nil
}

// MarkAllNotificationsRead marks every unread notification of a user and returns how many changed
func (q *queries) MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE,
		    read_at = $1
		WHERE user_id = $2
		  AND is_read = FALSE
	`

	res, err := q.ext.ExecContext(ctx, query, at, userID)
	if err != nil {
		return 0, dbError("failed to mark notifications read", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError("failed to read affected rows", err)
	}
	return n, nil
}

// ListNotifications returns up to PageSize+1 rows so the caller can tell whether more exist
func (q *queries) ListNotifications(ctx context.Context, filter NotificationFilter) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	args := []interface{}{filter.UserID}
	argIdx := 2

	if filter.UnreadOnly {
		query += " AND is_read = FALSE"
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var notifications []domain.Notification
	if err := sqlx.SelectContext(ctx, q.ext, &notifications, query, args...); err != nil {
		return nil, dbError("failed to list notifications", err)
	}
	return notifications, nil
}

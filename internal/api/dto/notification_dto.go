package dto

import "github.com/cuongbtq/agency-be/internal/domain"

type ListNotificationsRequest struct {
	Unread   bool   `form:"unread"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	NextCursor    string                `json:"nextCursor,omitempty"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

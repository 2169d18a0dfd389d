package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/agency-be/internal/authz"
	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/storage"
)

type memStore struct {
	mu            sync.Mutex
	notifications map[string]*domain.Notification
	createErr     error
	lastFilter    storage.NotificationFilter
	listRows      []domain.Notification
}

func newMemStore(ns ...domain.Notification) *memStore {
	s := &memStore{notifications: map[string]*domain.Notification{}}
	for i := range ns {
		n := ns[i]
		s.notifications[n.ID] = &n
	}
	return s
}

func (s *memStore) CreateNotification(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *memStore) GetNotification(_ context.Context, id string) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, domain.NotFoundf("notification %s", id)
	}
	cp := *n
	return &cp, nil
}

func (s *memStore) MarkNotificationRead(_ context.Context, id, userID string, at time.Time) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return nil, domain.NotFoundf("notification %s", id)
	}
	n.IsRead = true
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	cp := *n
	return &cp, nil
}

func (s *memStore) MarkAllNotificationsRead(_ context.Context, userID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (s *memStore) ListNotifications(_ context.Context, filter storage.NotificationFilter) ([]domain.Notification, error) {
	s.lastFilter = filter
	return s.listRows, nil
}

func newTestService(t *testing.T, store *memStore) *Service {
	t.Helper()
	az, err := authz.NewService(authz.Config{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	return NewService(store, az)
}

func TestService_MarkRead(t *testing.T) {
	owner := domain.Caller{UserID: "u-1", Role: domain.RoleCreative, AgencyID: "ag-1"}
	admin := domain.Caller{UserID: "u-2", Role: domain.RoleAdmin, AgencyID: "ag-1"}

	tests := []struct {
		name     string
		caller   domain.Caller
		id       string
		wantErr  error
		wantRead bool
	}{
		{name: "owner marks read", caller: owner, id: "n-1", wantRead: true},
		{name: "other user is forbidden", caller: admin, id: "n-1", wantErr: domain.ErrForbidden},
		{name: "missing notification", caller: owner, id: "n-404", wantErr: domain.ErrNotFound},
		{name: "empty id", caller: owner, id: "", wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(domain.Notification{ID: "n-1", UserID: "u-1", Title: "Hi"})
			svc := newTestService(t, store)

			n, err := svc.MarkRead(context.Background(), tt.caller, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				stored, _ := store.GetNotification(context.Background(), "n-1")
				assert.False(t, stored.IsRead, "isRead must stay false")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRead, n.IsRead)
			assert.NotNil(t, n.ReadAt)
		})
	}
}

func TestService_MarkRead_AlreadyReadIsNoop(t *testing.T) {
	readAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newMemStore(domain.Notification{ID: "n-1", UserID: "u-1", IsRead: true, ReadAt: &readAt})
	svc := newTestService(t, store)

	n, err := svc.MarkRead(context.Background(), domain.Caller{UserID: "u-1", Role: domain.RoleCreative}, "n-1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.Equal(t, readAt, *n.ReadAt)
}

func TestService_MarkAllRead(t *testing.T) {
	store := newMemStore(
		domain.Notification{ID: "n-1", UserID: "u-1"},
		domain.Notification{ID: "n-2", UserID: "u-1"},
		domain.Notification{ID: "n-3", UserID: "u-2"},
	)
	svc := newTestService(t, store)

	n, err := svc.MarkAllRead(context.Background(), domain.Caller{UserID: "u-1", Role: domain.RoleCreative})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.False(t, store.notifications["n-3"].IsRead)
}

func TestService_List(t *testing.T) {
	base := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	for i := 0; i < 3; i++ {
		store.listRows = append(store.listRows, domain.Notification{
			ID:        string(rune('a' + i)),
			UserID:    "u-1",
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		})
	}
	svc := newTestService(t, store)
	caller := domain.Caller{UserID: "u-1", Role: domain.RoleCreative}

	page, err := svc.List(context.Background(), caller, ListFilter{PageSize: 2, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	require.NotNil(t, page.Next)
	assert.Equal(t, "b", page.Next.ID)
	assert.Equal(t, "u-1", store.lastFilter.UserID)
	assert.True(t, store.lastFilter.UnreadOnly)

	page, err = svc.List(context.Background(), caller, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 3)
	assert.Nil(t, page.Next)
	assert.Equal(t, defaultPageSize, store.lastFilter.PageSize)

	_, err = svc.List(context.Background(), caller, ListFilter{PageSize: 500})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type fakePublisher struct {
	routingKey string
	body       []byte
	err        error
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, body []byte, _ string) error {
	p.routingKey = routingKey
	p.body = body
	return p.err
}

func TestBrokerEmitter_RoundTripThroughPersist(t *testing.T) {
	pub := &fakePublisher{}
	emitter := NewBrokerEmitter(pub, "notification.created")

	userID := "0f6a8c2e-5d41-4b7a-9e3c-2a1b0c9d8e7f"
	err := emitter.Notify(context.Background(), Message{UserID: userID, Title: "Job assigned", Message: "m", Link: Link("/jobs/1")})
	require.NoError(t, err)
	assert.Equal(t, "notification.created", pub.routingKey)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.body, &event))
	assert.Equal(t, userID, event["userId"])
	assert.NotEmpty(t, event["id"])

	store := newMemStore()
	require.NoError(t, Persist(context.Background(), store, pub.body))
	require.Len(t, store.notifications, 1)
	for _, n := range store.notifications {
		assert.Equal(t, "Job assigned", n.Title)
		assert.False(t, n.IsRead)
		assert.Equal(t, "/jobs/1", *n.Link)
	}
}

func TestPersist_InvalidEvent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing user", `{"id":"n-1","title":"t"}`},
		{"malformed id", `{"id":"n-1","userId":"0f6a8c2e-5d41-4b7a-9e3c-2a1b0c9d8e7f","title":"t"}`},
		{"malformed user", `{"id":"0f6a8c2e-5d41-4b7a-9e3c-2a1b0c9d8e70","userId":"nope","title":"t"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Persist(context.Background(), newMemStore(), []byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestStoreEmitter(t *testing.T) {
	store := newMemStore()
	emitter := NewStoreEmitter(store)
	emitter.now = func() time.Time { return time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, emitter.Notify(context.Background(), Message{UserID: "u-1", Title: "t", Message: "m"}))
	require.Len(t, store.notifications, 1)

	store.createErr = errors.New("db down")
	err := emitter.Notify(context.Background(), Message{UserID: "u-1", Title: "t"})
	assert.ErrorContains(t, err, "failed to store notification")
}

type countingCounter struct{ n int }

func (c *countingCounter) Inc() { c.n++ }

func TestDispatcher_SwallowsFailures(t *testing.T) {
	store := newMemStore()
	store.createErr = errors.New("db down")
	logs := &bytes.Buffer{}
	counter := &countingCounter{}

	d := NewDispatcher(NewStoreEmitter(store), slog.New(slog.NewJSONHandler(logs, nil)), counter)
	d.Send(context.Background(), Message{UserID: "u-1", Title: "t"}, Message{Title: "no user"})

	assert.Contains(t, logs.String(), "Failed to emit notification")
	assert.Equal(t, 0, counter.n)

	store.createErr = nil
	d.Send(context.Background(), Message{UserID: "u-1", Title: "t"})
	assert.Equal(t, 1, counter.n)

	var nilDispatcher *Dispatcher
	assert.NotPanics(t, func() { nilDispatcher.Send(context.Background(), Message{UserID: "u-1"}) })
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/agency-be/internal/domain"
)

// Message is a notification to deliver to one user
type Message struct {
	ID      string  `json:"id"`
	UserID  string  `json:"userId"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Link    *string `json:"link,omitempty"`
	// CreatedAt is set when the event is produced so a broker redelivery keeps it
	CreatedAt time.Time `json:"createdAt"`
}

// Emitter delivers notifications
type Emitter interface {
	Notify(ctx context.Context, msg Message) error
}

// Writer persists notification rows
type Writer interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
}

// Publisher sends a message to the broker
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, contentType string) error
}

func (m *Message) fill(now time.Time) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
}

// Record converts a message into the stored notification
func (m Message) Record() *domain.Notification {
	return &domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Message:   m.Message,
		Link:      m.Link,
		IsRead:    false,
		CreatedAt: m.CreatedAt,
	}
}

// StoreEmitter writes notifications straight to the database
type StoreEmitter struct {
	writer Writer
	now    func() time.Time
}

// NewStoreEmitter creates an emitter backed by writer
func NewStoreEmitter(writer Writer) *StoreEmitter {
	return &StoreEmitter{writer: writer, now: time.Now}
}

func (e *StoreEmitter) Notify(ctx context.Context, msg Message) error {
	msg.fill(e.now().UTC())
	if err := e.writer.CreateNotification(ctx, msg.Record()); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// BrokerEmitter publishes notification events for the worker to persist
type BrokerEmitter struct {
	publisher  Publisher
	routingKey string
	now        func() time.Time
}

// NewBrokerEmitter creates an emitter publishing under routingKey
func NewBrokerEmitter(publisher Publisher, routingKey string) *BrokerEmitter {
	return &BrokerEmitter{publisher: publisher, routingKey: routingKey, now: time.Now}
}

func (e *BrokerEmitter) Notify(ctx context.Context, msg Message) error {
	msg.fill(e.now().UTC())

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := e.publisher.Publish(ctx, e.routingKey, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Counter is incremented for every delivered notification
type Counter interface {
	Inc()
}

// Dispatcher sends notifications after a workflow has committed. Delivery
// failures are logged and never surface to the workflow.
type Dispatcher struct {
	emitter Emitter
	logger  *slog.Logger
	sent    Counter
}

// NewDispatcher wraps emitter. sent may be nil.
func NewDispatcher(emitter Emitter, logger *slog.Logger, sent Counter) *Dispatcher {
	return &Dispatcher{emitter: emitter, logger: logger, sent: sent}
}

// Send delivers each message in order
func (d *Dispatcher) Send(ctx context.Context, msgs ...Message) {
	if d == nil || d.emitter == nil {
		return
	}
	for _, msg := range msgs {
		if msg.UserID == "" {
			continue
		}
		if err := d.emitter.Notify(ctx, msg); err != nil {
			d.logger.Warn("Failed to emit notification",
				slog.String("user_id", msg.UserID),
				slog.String("title", msg.Title),
				slog.Any("error", err),
			)
			continue
		}
		if d.sent != nil {
			d.sent.Inc()
		}
	}
}

// Link returns a pointer for optional links
func Link(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

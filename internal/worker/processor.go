package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/notify"
)

// processDelivery stores one notification event within the job timeout
func (w *Worker) processDelivery(ctx context.Context, delivery amqp.Delivery) error {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	if err := notify.Persist(jobCtx, w.writer, delivery.Body); err != nil {
		// rejected by the database itself, a retry cannot succeed
		if errors.Is(err, notify.ErrInvalidEvent) || errors.Is(err, domain.ErrValidation) {
			return err
		}

		attempt := deliveryAttempt(delivery)
		if attempt >= w.maxAttempts {
			w.logger.Warn("Notification event exceeded max attempts",
				slog.Uint64("delivery_tag", delivery.DeliveryTag),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", w.maxAttempts),
			)
			return fmt.Errorf("%w: %v", ErrMaxAttemptsExceeded, err)
		}
		return NewRetryableError(err)
	}

	if w.persisted != nil {
		w.persisted.Inc()
	}
	w.logger.Debug("Notification stored",
		slog.Uint64("delivery_tag", delivery.DeliveryTag),
		slog.Bool("redelivered", delivery.Redelivered),
	)
	return nil
}

// deliveryAttempt numbers a delivery from 1. Quorum queues count earlier
// deliveries in x-delivery-count, classic queues only flag a redelivery.
func deliveryAttempt(delivery amqp.Delivery) int {
	switch n := delivery.Headers["x-delivery-count"].(type) {
	case int64:
		return int(n) + 1
	case int32:
		return int(n) + 1
	case int:
		return n + 1
	}
	if delivery.Redelivered {
		return 2
	}
	return 1
}

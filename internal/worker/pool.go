package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/agency-be/internal/notify"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case delivery, ok := <-w.jobsChan:
			if !ok {
				w.logger.Debug("Worker goroutine stopping - jobsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}
			w.settle(workerName, delivery, w.processDelivery(ctx, delivery))
		}
	}
}

// settle acks a stored event and nacks a failed one, requeueing only transient failures
func (w *Worker) settle(workerName string, delivery amqp.Delivery, err error) {
	if err == nil {
		if ackErr := delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.Uint64("delivery_tag", delivery.DeliveryTag),
				slog.Any("error", ackErr),
			)
		}
		return
	}

	requeue := shouldRequeue(err)
	w.logger.Error("Notification event failed",
		slog.String("worker_name", workerName),
		slog.Uint64("delivery_tag", delivery.DeliveryTag),
		slog.Bool("requeue", requeue),
		slog.Any("error", err),
	)

	if nackErr := delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Any("error", nackErr),
		)
	}
}

// shouldRequeue determines if a delivery should be requeued based on the error type
func shouldRequeue(err error) bool {
	if errors.Is(err, notify.ErrInvalidEvent) {
		return false
	}

	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}

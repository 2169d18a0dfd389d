package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/agency-be/internal/notify"
)

const (
	defaultJobTimeout  = 30 * time.Second
	defaultMaxAttempts = 2
)

// DeliverySource is the broker side of the worker. *rabbitmq.Client satisfies it.
type DeliverySource interface {
	Consume(consumerTag string, prefetchCount int) (<-chan amqp.Delivery, error)
	NotifyClose() <-chan *amqp.Error
}

// Counter counts stored notifications
type Counter interface {
	Inc()
}

// Config holds worker configuration. MaxAttempts bounds how often a failing
// event is delivered before it is dropped.
type Config struct {
	Logger        *slog.Logger
	Source        DeliverySource
	Writer        notify.Writer
	Persisted     Counter
	WorkerID      string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
	MaxAttempts   int
}

// Worker consumes notification events and stores them
type Worker struct {
	logger        *slog.Logger
	source        DeliverySource
	writer        notify.Writer
	persisted     Counter
	workerID      string
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	maxAttempts   int

	jobsChan     chan amqp.Delivery
	dispatchDone chan struct{}
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "notification-worker"
	}

	return &Worker{
		logger:        cfg.Logger,
		source:        cfg.Source,
		writer:        cfg.Writer,
		persisted:     cfg.Persisted,
		workerID:      workerID,
		concurrency:   concurrency,
		prefetchCount: cfg.PrefetchCount,
		jobTimeout:    jobTimeout,
		maxAttempts:   maxAttempts,
		jobsChan:      make(chan amqp.Delivery),
		dispatchDone:  make(chan struct{}),
		stopChan:      make(chan struct{}),
	}
}

// Start consumes until ctx is canceled, Stop is called or the broker goes away.
// In-flight deliveries finish before it returns.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.spawnWorkerPool(runCtx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(w.dispatchDone)
		defer close(w.jobsChan)
		w.startMessageDispatcher(runCtx, deliveries)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		w.logger.Info("Worker context canceled, stopping...")
	case <-w.stopChan:
	case <-w.dispatchDone:
		if ctx.Err() == nil {
			runErr = errors.New("delivery channel closed")
		}
	case amqpErr := <-w.source.NotifyClose():
		if amqpErr != nil {
			runErr = fmt.Errorf("rabbitmq channel closed: %w", amqpErr)
		} else {
			runErr = errors.New("rabbitmq channel closed")
		}
	}

	cancel()
	w.wg.Wait()
	return runErr
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

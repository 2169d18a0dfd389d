package recurrence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/notify"
	"github.com/cuongbtq/agency-be/internal/telemetry"
)

const defaultBatchSize = 100

// errNotDue means another scheduler advanced or deactivated the template first
var errNotDue = errors.New("template no longer due")

// Result reports one template processed in a cycle
type Result struct {
	TemplateID string `json:"templateId"`
	JobID      string `json:"jobId,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// Summary is the outcome of one cycle
type Summary struct {
	Spawned int      `json:"jobsSpawned"`
	JobIDs  []string `json:"jobIds"`
	Results []Result `json:"results"`
	Skipped bool     `json:"skipped,omitempty"`
}

// Options tune the engine. Zero values use defaults.
type Options struct {
	BatchSize int
	Lock      CycleLock
	Now       func() time.Time
}

// Engine spawns jobs from due recurring templates
type Engine struct {
	store     Store
	lock      CycleLock
	notifier  *notify.Dispatcher
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// NewEngine creates an engine. notifier may be nil.
func NewEngine(store Store, notifier *notify.Dispatcher, logger *slog.Logger, opts Options) *Engine {
	e := &Engine{
		store:     store,
		lock:      opts.Lock,
		notifier:  notifier,
		logger:    logger,
		batchSize: opts.BatchSize,
		now:       opts.Now,
	}
	if e.batchSize <= 0 {
		e.batchSize = defaultBatchSize
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

type spawned struct {
	job        *domain.Job
	assigneeID string
}

// CheckAndSpawnRecurringJobs spawns at most one job for every active template that
// is due and moves each template's next due date past now. A failing template is
// reported in the summary and does not stop the others.
func (e *Engine) CheckAndSpawnRecurringJobs(ctx context.Context) (*Summary, error) {
	summary := &Summary{JobIDs: []string{}, Results: []Result{}}

	if e.lock != nil {
		release, ok, err := e.lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire recurrence lock: %w", err)
		}
		if !ok {
			e.logger.Info("Recurrence cycle skipped, lock held elsewhere")
			telemetry.RecurrenceSkipped.Inc()
			summary.Skipped = true
			return summary, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("Failed to release recurrence lock", slog.Any("error", err))
			}
		}()
	}

	now := e.now().UTC()
	ids, err := e.store.DueTemplateIDs(ctx, now, e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list due templates: %w", err)
	}

	var created []spawned
	for _, id := range ids {
		s, err := e.spawn(ctx, id, now)
		if errors.Is(err, errNotDue) {
			e.logger.Debug("Template already handled", slog.String("template_id", id))
			continue
		}
		if err != nil {
			e.logger.Error("Failed to spawn recurring job",
				slog.String("template_id", id),
				slog.Any("error", err),
			)
			telemetry.TemplateFailures.Inc()
			summary.Results = append(summary.Results, Result{TemplateID: id, Error: err.Error()})
			continue
		}

		summary.Spawned++
		summary.JobIDs = append(summary.JobIDs, s.job.ID)
		summary.Results = append(summary.Results, Result{TemplateID: id, JobID: s.job.ID, Success: true})
		created = append(created, s)
		telemetry.JobsSpawned.Inc()
	}

	for _, s := range created {
		if s.assigneeID == "" {
			continue
		}
		e.notifier.Send(ctx, notify.Message{
			UserID:  s.assigneeID,
			Title:   "New recurring job assigned",
			Message: fmt.Sprintf("%q is due %s", s.job.Title, s.job.Deadline.Format("2006-01-02")),
			Link:    notify.Link("/jobs/" + s.job.ID),
		})
	}

	e.logger.Info("Recurrence cycle finished",
		slog.Int("due", len(ids)),
		slog.Int("spawned", summary.Spawned),
		slog.Int("failed", len(summary.Results)-summary.Spawned),
	)
	return summary, nil
}

func (e *Engine) spawn(ctx context.Context, templateID string, now time.Time) (spawned, error) {
	var out spawned

	err := e.store.InTx(ctx, func(tx TxStore) error {
		tpl, err := tx.LockTemplate(ctx, templateID)
		if err != nil {
			return err
		}
		if !tpl.IsActive || tpl.NextDueAt.After(now) {
			return errNotDue
		}

		occurrence, next, err := Advance(tpl.NextDueAt, tpl.IntervalValue, tpl.IntervalUnit, now)
		if err != nil {
			return err
		}

		job := &domain.Job{
			ID:          uuid.NewString(),
			CampaignID:  tpl.CampaignID,
			TemplateID:  &tpl.ID,
			Title:       tpl.Title,
			Description: tpl.Description,
			Budget:      tpl.Budget,
			Deadline:    occurrence.AddDate(0, 0, tpl.DeadlineOffsetDays),
			Status:      domain.JobStatusTodo,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateJob(ctx, job); err != nil {
			return err
		}

		if tpl.AssigneeUserID != nil && *tpl.AssigneeUserID != "" {
			assignment := &domain.JobAssignment{
				ID:        uuid.NewString(),
				JobID:     job.ID,
				UserID:    *tpl.AssigneeUserID,
				Version:   1,
				AgencyID:  tpl.AgencyID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.CreateAssignment(ctx, assignment); err != nil {
				return err
			}
			out.assigneeID = assignment.UserID
		}

		if err := tx.AdvanceTemplate(ctx, tpl.ID, now, next); err != nil {
			return err
		}

		out.job = job
		return nil
	})
	if err != nil {
		return spawned{}, err
	}
	return out, nil
}

package storage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/agency-be/internal/domain"
)

const templateColumns = `
	rt.id, rt.campaign_id, rt.title, rt.description, rt.budget, rt.interval_value, rt.interval_unit,
	rt.deadline_offset_days, rt.next_due_at, rt.last_spawned_at, rt.assignee_user_id, rt.is_active,
	rt.created_by_user_id, cl.agency_id, rt.created_at, rt.updated_at
`

const templateJoins = `
	JOIN campaigns c ON c.id = rt.campaign_id
	JOIN clients cl ON cl.id = c.client_id
`

// CreateTemplate inserts a recurring job template
func (q *queries) CreateTemplate(ctx context.Context, t *domain.RecurringJobTemplate) error {
	query := `
		INSERT INTO recurring_job_templates (
			id, campaign_id, title, description, budget,
			interval_value, interval_unit, deadline_offset_days, next_due_at,
			assignee_user_id, is_active, created_by_user_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14
		)
	`

	_, err := q.ext.ExecContext(ctx, query,
		t.ID,
		t.CampaignID,
		t.Title,
		t.Description,
		t.Budget,
		t.IntervalValue,
		t.IntervalUnit,
		t.DeadlineOffsetDays,
		t.NextDueAt,
		t.AssigneeUserID,
		t.IsActive,
		t.CreatedByUserID,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return dbError("failed to create template", err)
	}
	return nil
}

// GetTemplate fetches a template by id
func (q *queries) GetTemplate(ctx context.Context, id string) (*domain.RecurringJobTemplate, error) {
	return q.getTemplate(ctx, id, "")
}

// LockTemplate fetches a template and holds its row lock until the transaction ends
func (q *queries) LockTemplate(ctx context.Context, id string) (*domain.RecurringJobTemplate, error) {
	return q.getTemplate(ctx, id, " FOR UPDATE OF rt")
}

func (q *queries) getTemplate(ctx context.Context, id, suffix string) (*domain.RecurringJobTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_job_templates rt ` + templateJoins + ` WHERE rt.id = $1` + suffix

	var t domain.RecurringJobTemplate
	if err := sqlx.GetContext(ctx, q.ext, &t, query, id); err != nil {
		if nf := notFound(err, "recurring job template %s", id); nf != nil {
			return nil, nf
		}
		return nil, dbError("failed to get template", err)
	}
	return &t, nil
}

// ListTemplates returns templates of one agency, or of all agencies when agencyID is empty
func (q *queries) ListTemplates(ctx context.Context, agencyID string) ([]domain.RecurringJobTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_job_templates rt ` + templateJoins
	args := []interface{}{}

	if agencyID != "" {
		query += " WHERE cl.agency_id = $1"
		args = append(args, agencyID)
	}
	query += " ORDER BY rt.next_due_at, rt.id"

	var templates []domain.RecurringJobTemplate
	if err := sqlx.SelectContext(ctx, q.ext, &templates, query, args...); err != nil {
		return nil, dbError("failed to list templates", err)
	}
	return templates, nil
}

// DeactivateTemplate stops a template from spawning. Templates are never deleted.
func (q *queries) DeactivateTemplate(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE recurring_job_templates
		SET is_active = FALSE,
		    updated_at = $1
		WHERE id = $2
	`

	res, err := q.ext.ExecContext(ctx, query, at, id)
	if err != nil {
		return dbError("failed to deactivate template", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return dbError("failed to read affected rows", err)
	}
	if n == 0 {
		return domain.NotFoundf("recurring job template %s", id)
	}
	return nil
}

// DueTemplateIDs lists active templates whose next occurrence is at or before now
func (q *queries) DueTemplateIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `
		SELECT id
		FROM recurring_job_templates
		WHERE is_active
		  AND next_due_at <= $1
		ORDER BY next_due_at, id
		LIMIT $2
	`

	var ids []string
	if err := sqlx.SelectContext(ctx, q.ext, &ids, query, now, limit); err != nil {
		return nil, dbError("failed to list due templates", err)
	}
	return ids, nil
}

// AdvanceTemplate records a spawn and moves the schedule forward
func (q *queries) AdvanceTemplate(ctx context.Context, id string, spawnedAt, nextDueAt time.Time) error {
	query := `
		UPDATE recurring_job_templates
		SET last_spawned_at = $1,
		    next_due_at = $2,
		    updated_at = $1
		WHERE id = $3
	`

	if _, err := q.ext.ExecContext(ctx, query, spawnedAt, nextDueAt, id); err != nil {
		return dbError("failed to advance template", err)
	}
	return nil
}

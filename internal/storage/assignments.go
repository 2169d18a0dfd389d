package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/agency-be/internal/domain"
)

const assignmentColumns = `
	ja.id, ja.job_id, ja.user_id, ja.version, cl.agency_id, ja.created_at, ja.updated_at
`

const assignmentJoins = `
	JOIN jobs j ON j.id = ja.job_id
	JOIN campaigns c ON c.id = j.campaign_id
	JOIN clients cl ON cl.id = c.client_id
`

// CreateJob inserts a job
func (q *queries) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			id, campaign_id, template_id, title, description,
			budget, deadline, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
	`

	_, err := q.ext.ExecContext(ctx, query,
		job.ID,
		job.CampaignID,
		job.TemplateID,
		job.Title,
		job.Description,
		job.Budget,
		job.Deadline,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return dbError("failed to create job", err)
	}
	return nil
}

// CreateAssignment inserts a job assignment
func (q *queries) CreateAssignment(ctx context.Context, a *domain.JobAssignment) error {
	query := `
		INSERT INTO job_assignments (id, job_id, user_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := q.ext.ExecContext(ctx, query, a.ID, a.JobID, a.UserID, a.Version, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return dbError("failed to create assignment", err)
	}
	return nil
}

// GetAssignment fetches an assignment with the agency of its job
func (q *queries) GetAssignment(ctx context.Context, id string) (*domain.JobAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM job_assignments ja ` + assignmentJoins + ` WHERE ja.id = $1`

	var a domain.JobAssignment
	if err := sqlx.GetContext(ctx, q.ext, &a, query, id); err != nil {
		if nf := notFound(err, "assignment %s", id); nf != nil {
			return nil, nf
		}
		return nil, dbError("failed to get assignment", err)
	}
	return &a, nil
}

// TransferAssignment moves the assignment to toUserID only while it is still held by
// fromUserID at the given version. A lost race returns domain.ErrConflict.
func (q *queries) TransferAssignment(ctx context.Context, id, fromUserID string, version int, toUserID string, at time.Time) (*domain.JobAssignment, error) {
	query := `
		WITH ja AS (
			UPDATE job_assignments
			SET user_id = $1,
			    version = version + 1,
			    updated_at = $2
			WHERE id = $3
			  AND user_id = $4
			  AND version = $5
			RETURNING id, job_id, user_id, version, created_at, updated_at
		)
		SELECT ` + assignmentColumns + ` FROM ja ` + assignmentJoins

	var a domain.JobAssignment
	err := sqlx.GetContext(ctx, q.ext, &a, query, toUserID, at, id, fromUserID, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Conflictf("assignment %s changed owner", id)
		}
		return nil, dbError("failed to transfer assignment", err)
	}
	return &a, nil
}

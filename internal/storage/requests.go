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

const requestColumns = `
	rr.id, rr.assignment_id, rr.from_user_id, rr.request_by_user_id, rr.target_user_id, rr.reason, rr.status,
	rr.decided_by_user_id, rr.decision_note, rr.decided_at, cl.agency_id, rr.created_at, rr.updated_at
`

const requestJoins = `
	JOIN job_assignments ja ON ja.id = rr.assignment_id
	JOIN jobs j ON j.id = ja.job_id
	JOIN campaigns c ON c.id = j.campaign_id
	JOIN clients cl ON cl.id = c.client_id
`

// RequestFilter narrows ListReassignmentRequests. Empty fields do not filter.
type RequestFilter struct {
	AgencyID        string
	InvolvingUserID string
	Status          string
	Limit           int
}

// CreateReassignmentRequest inserts a request
func (q *queries) CreateReassignmentRequest(ctx context.Context, r *domain.ReassignmentRequest) error {
	query := `
		INSERT INTO reassignment_requests (
			id, assignment_id, from_user_id, request_by_user_id,
			target_user_id, reason, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
	`

	_, err := q.ext.ExecContext(ctx, query,
		r.ID,
		r.AssignmentID,
		r.FromUserID,
		r.RequestByUserID,
		r.TargetUserID,
		r.Reason,
		r.Status,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return dbError("failed to create reassignment request", err)
	}
	return nil
}

// LockReassignmentRequest fetches a request and holds its row lock until the transaction ends
func (q *queries) LockReassignmentRequest(ctx context.Context, id string) (*domain.ReassignmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reassignment_requests rr ` + requestJoins + ` WHERE rr.id = $1 FOR UPDATE OF rr`

	var r domain.ReassignmentRequest
	if err := sqlx.GetContext(ctx, q.ext, &r, query, id); err != nil {
		if nf := notFound(err, "reassignment request %s", id); nf != nil {
			return nil, nf
		}
		return nil, dbError("failed to lock reassignment request", err)
	}
	return &r, nil
}

// DecideReassignmentRequest moves a PENDING request to a terminal status. A request
// that is no longer PENDING returns domain.ErrConflict.
func (q *queries) DecideReassignmentRequest(ctx context.Context, id, status, decidedBy string, note *string, at time.Time) (*domain.ReassignmentRequest, error) {
	query := `
		WITH rr AS (
			UPDATE reassignment_requests
			SET status = $1,
			    decided_by_user_id = $2,
			    decision_note = $3,
			    decided_at = $4,
			    updated_at = $4
			WHERE id = $5
			  AND status = $6
			RETURNING *
		)
		SELECT ` + requestColumns + ` FROM rr ` + requestJoins

	var r domain.ReassignmentRequest
	err := sqlx.GetContext(ctx, q.ext, &r, query, status, decidedBy, note, at, id, domain.ReassignmentPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Conflictf("reassignment request %s is not pending", id)
		}
		return nil, dbError("failed to decide reassignment request", err)
	}
	return &r, nil
}

// RejectPendingRequests closes every PENDING request for an assignment and returns them
func (q *queries) RejectPendingRequests(ctx context.Context, assignmentID, decidedBy, note string, at time.Time) ([]domain.ReassignmentRequest, error) {
	query := `
		WITH rr AS (
			UPDATE reassignment_requests
			SET status = $1,
			    decided_by_user_id = $2,
			    decision_note = $3,
			    decided_at = $4,
			    updated_at = $4
			WHERE assignment_id = $5
			  AND status = $6
			RETURNING *
		)
		SELECT ` + requestColumns + ` FROM rr ` + requestJoins + ` ORDER BY rr.created_at`

	var rejected []domain.ReassignmentRequest
	err := sqlx.SelectContext(ctx, q.ext, &rejected, query,
		domain.ReassignmentRejected, decidedBy, note, at, assignmentID, domain.ReassignmentPending)
	if err != nil {
		return nil, dbError("failed to reject pending requests", err)
	}
	return rejected, nil
}

// ListReassignmentRequests returns requests newest first
func (q *queries) ListReassignmentRequests(ctx context.Context, filter RequestFilter) ([]domain.ReassignmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reassignment_requests rr ` + requestJoins + ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.AgencyID != "" {
		query += fmt.Sprintf(" AND cl.agency_id = $%d", argIdx)
		args = append(args, filter.AgencyID)
		argIdx++
	}

	if filter.InvolvingUserID != "" {
		query += fmt.Sprintf(" AND (rr.request_by_user_id = $%d OR rr.target_user_id = $%d)", argIdx, argIdx)
		args = append(args, filter.InvolvingUserID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND rr.status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	query += " ORDER BY rr.created_at DESC, rr.id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	var requests []domain.ReassignmentRequest
	if err := sqlx.SelectContext(ctx, q.ext, &requests, query, args...); err != nil {
		return nil, dbError("failed to list reassignment requests", err)
	}
	return requests, nil
}

package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/agency-be/internal/domain"
)

// GetUser fetches a user by id
func (q *queries) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, agency_id, name, email, role, created_at
		FROM users
		WHERE id = $1
	`

	var user domain.User
	if err := sqlx.GetContext(ctx, q.ext, &user, query, id); err != nil {
		if nf := notFound(err, "user %s", id); nf != nil {
			return nil, nf
		}
		return nil, dbError("failed to get user", err)
	}
	return &user, nil
}

// CampaignAgencyID resolves the agency a campaign belongs to through its client
func (q *queries) CampaignAgencyID(ctx context.Context, campaignID string) (string, error) {
	query := `
		SELECT cl.agency_id
		FROM campaigns c
		JOIN clients cl ON cl.id = c.client_id
		WHERE c.id = $1
	`

	var agencyID string
	if err := sqlx.GetContext(ctx, q.ext, &agencyID, query, campaignID); err != nil {
		if nf := notFound(err, "campaign %s", campaignID); nf != nil {
			return "", nf
		}
		return "", dbError("failed to get campaign agency", err)
	}
	return agencyID, nil
}

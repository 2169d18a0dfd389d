package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Agency struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type User struct {
	ID        string    `db:"id" json:"id"`
	AgencyID  string    `db:"agency_id" json:"agencyId"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Client struct {
	ID        string    `db:"id" json:"id"`
	AgencyID  string    `db:"agency_id" json:"agencyId"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Campaign struct {
	ID        string    `db:"id" json:"id"`
	ClientID  string    `db:"client_id" json:"clientId"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Job is a unit of work owned by a campaign
type Job struct {
	ID          string          `db:"id" json:"id"`
	CampaignID  string          `db:"campaign_id" json:"campaignId"`
	TemplateID  *string         `db:"template_id" json:"templateId,omitempty"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Budget      decimal.Decimal `db:"budget" json:"budget"`
	Deadline    time.Time       `db:"deadline" json:"deadline"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// JobAssignment binds one user to one job. Version changes on every owner change.
type JobAssignment struct {
	ID        string    `db:"id" json:"id"`
	JobID     string    `db:"job_id" json:"jobId"`
	UserID    string    `db:"user_id" json:"userId"`
	Version   int       `db:"version" json:"version"`
	AgencyID  string    `db:"agency_id" json:"agencyId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ReassignmentRequest asks to move an assignment from FromUserID, its owner when
// the request was raised, to TargetUserID.
type ReassignmentRequest struct {
	ID              string     `db:"id" json:"id"`
	AssignmentID    string     `db:"assignment_id" json:"assignmentId"`
	FromUserID      string     `db:"from_user_id" json:"fromUserId"`
	RequestByUserID string     `db:"request_by_user_id" json:"requestByUserId"`
	TargetUserID    string     `db:"target_user_id" json:"targetUserId"`
	Reason          string     `db:"reason" json:"reason"`
	Status          string     `db:"status" json:"status"`
	DecidedByUserID *string    `db:"decided_by_user_id" json:"decidedByUserId,omitempty"`
	DecisionNote    *string    `db:"decision_note" json:"decisionNote,omitempty"`
	DecidedAt       *time.Time `db:"decided_at" json:"decidedAt,omitempty"`
	AgencyID        string     `db:"agency_id" json:"agencyId"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// Pending reports whether the request can still be decided
func (r *ReassignmentRequest) Pending() bool {
	return r.Status == ReassignmentPending
}

type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"userId"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	Link      *string    `db:"link" json:"link,omitempty"`
	IsRead    bool       `db:"is_read" json:"isRead"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	ReadAt    *time.Time `db:"read_at" json:"readAt,omitempty"`
}

// RecurringJobTemplate describes how and when jobs are spawned for a campaign
type RecurringJobTemplate struct {
	ID                 string          `db:"id" json:"id"`
	CampaignID         string          `db:"campaign_id" json:"campaignId"`
	Title              string          `db:"title" json:"title"`
	Description        string          `db:"description" json:"description"`
	Budget             decimal.Decimal `db:"budget" json:"budget"`
	IntervalValue      int             `db:"interval_value" json:"intervalValue"`
	IntervalUnit       string          `db:"interval_unit" json:"intervalUnit"`
	DeadlineOffsetDays int             `db:"deadline_offset_days" json:"deadlineOffsetDays"`
	NextDueAt          time.Time       `db:"next_due_at" json:"nextDueAt"`
	LastSpawnedAt      *time.Time      `db:"last_spawned_at" json:"lastSpawnedAt,omitempty"`
	AssigneeUserID     *string         `db:"assignee_user_id" json:"assigneeUserId,omitempty"`
	IsActive           bool            `db:"is_active" json:"isActive"`
	CreatedByUserID    string          `db:"created_by_user_id" json:"createdByUserId"`
	AgencyID           string          `db:"agency_id" json:"agencyId"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updatedAt"`
}

// Caller is the identity resolved from a session
type Caller struct {
	UserID   string
	Role     Role
	AgencyID string
}

// Validate rejects identities missing a user or role. Agency bound roles also
// need an agency.
func (c Caller) Validate() error {
	switch {
	case c.UserID == "":
		return errors.New("user id is empty")
	case !c.Role.Valid():
		return fmt.Errorf("unknown role %q", c.Role)
	case c.Role.AgencyBound() && c.AgencyID == "":
		return fmt.Errorf("role %s requires an agency", c.Role)
	}
	return nil
}

package recurrence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cuongbtq/agency-be/internal/authz"
	"github.com/cuongbtq/agency-be/internal/domain"
)

// CreateTemplateInput describes a new recurring template
type CreateTemplateInput struct {
	CampaignID         string
	Title              string
	Description        string
	Budget             decimal.Decimal
	IntervalValue      int
	IntervalUnit       string
	DeadlineOffsetDays int
	StartAt            time.Time
	AssigneeUserID     *string
}

// TemplateService manages recurring templates
type TemplateService struct {
	store TemplateStore
	authz authz.Authorizer
	now   func() time.Time
}

// NewTemplateService creates a template service
func NewTemplateService(store TemplateStore, authorizer authz.Authorizer) *TemplateService {
	return &TemplateService{store: store, authz: authorizer, now: time.Now}
}

func (in *CreateTemplateInput) validate() error {
	if in.CampaignID == "" {
		return domain.Validationf("campaignId is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Validationf("title is required")
	}
	if in.Budget.IsNegative() {
		return domain.Validationf("budget must not be negative")
	}
	if in.DeadlineOffsetDays < 0 {
		return domain.Validationf("deadlineOffsetDays must not be negative")
	}
	return ValidateInterval(in.IntervalValue, in.IntervalUnit)
}

// Create stores a template. The first occurrence is StartAt, or now when unset.
func (s *TemplateService) Create(ctx context.Context, caller domain.Caller, in CreateTemplateInput) (*domain.RecurringJobTemplate, error) {
	if err := s.authz.Permits(ctx, caller, authz.ActionManageTemplates); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	agencyID, err := s.store.CampaignAgencyID(ctx, in.CampaignID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, caller, authz.ActionManageTemplates, authz.Resource{AgencyID: agencyID}); err != nil {
		return nil, err
	}

	if in.AssigneeUserID != nil && *in.AssigneeUserID != "" {
		assignee, err := s.store.GetUser(ctx, *in.AssigneeUserID)
		if err != nil {
			return nil, err
		}
		if assignee.AgencyID != agencyID {
			return nil, domain.Validationf("assignee must belong to the campaign's agency")
		}
	} else {
		in.AssigneeUserID = nil
	}

	now := s.now().UTC()
	start := in.StartAt
	if start.IsZero() {
		start = now
	}

	tpl := &domain.RecurringJobTemplate{
		ID:                 uuid.NewString(),
		CampaignID:         in.CampaignID,
		Title:              strings.TrimSpace(in.Title),
		Description:        in.Description,
		Budget:             in.Budget,
		IntervalValue:      in.IntervalValue,
		IntervalUnit:       in.IntervalUnit,
		DeadlineOffsetDays: in.DeadlineOffsetDays,
		NextDueAt:          start.UTC(),
		AssigneeUserID:     in.AssigneeUserID,
		IsActive:           true,
		CreatedByUserID:    caller.UserID,
		AgencyID:           agencyID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// List returns the templates the caller may manage
func (s *TemplateService) List(ctx context.Context, caller domain.Caller) ([]domain.RecurringJobTemplate, error) {
	agencyID, err := authz.AgencyScope(ctx, s.authz, caller, authz.ActionManageTemplates)
	if err != nil {
		return nil, err
	}

	templates, err := s.store.ListTemplates(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []domain.RecurringJobTemplate{}
	}
	return templates, nil
}

// Deactivate stops a template from spawning further jobs
func (s *TemplateService) Deactivate(ctx context.Context, caller domain.Caller, id string) error {
	if err := s.authz.Permits(ctx, caller, authz.ActionManageTemplates); err != nil {
		return err
	}

	tpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, caller, authz.ActionManageTemplates, authz.Resource{AgencyID: tpl.AgencyID}); err != nil {
		return err
	}
	return s.store.DeactivateTemplate(ctx, id, s.now().UTC())
}

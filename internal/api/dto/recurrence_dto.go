package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuongbtq/agency-be/internal/recurrence"
)

// CronResponse is returned by the recurrence trigger
type CronResponse struct {
	Success     bool                `json:"success"`
	JobsSpawned *int                `json:"jobsSpawned,omitempty"`
	JobIDs      []string            `json:"jobIds,omitempty"`
	Results     []recurrence.Result `json:"results,omitempty"`
	Skipped     bool                `json:"skipped,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type CreateTemplateRequest struct {
	CampaignID         string          `json:"campaignId" binding:"required"`
	Title              string          `json:"title" binding:"required,notblank"`
	Description        string          `json:"description"`
	Budget             decimal.Decimal `json:"budget"`
	IntervalValue      int             `json:"intervalValue" binding:"required,gt=0"`
	IntervalUnit       string          `json:"intervalUnit" binding:"required,oneof=DAY WEEK MONTH"`
	DeadlineOffsetDays int             `json:"deadlineOffsetDays" binding:"gte=0"`
	StartAt            *time.Time      `json:"startAt"`
	AssigneeUserID     *string         `json:"assigneeUserId"`
}

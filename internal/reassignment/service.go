package reassignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/agency-be/internal/authz"
	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/notify"
	"github.com/cuongbtq/agency-be/internal/storage"
	"github.com/cuongbtq/agency-be/internal/telemetry"
)

const listLimit = 200

// RequestInput raises a reassignment request
type RequestInput struct {
	AssignmentID string
	TargetUserID string
	Reason       string
}

// DirectInput moves an assignment without a request. ExpectedUserID, when set,
// must match the current owner.
type DirectInput struct {
	AssignmentID   string
	NewUserID      string
	ExpectedUserID *string
}

// Service runs the reassignment workflow
type Service struct {
	store    Store
	authz    authz.Authorizer
	notifier *notify.Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the workflow service. notifier may be nil.
func NewService(store Store, authorizer authz.Authorizer, notifier *notify.Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		authz:    authorizer,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (in *RequestInput) validate() error {
	in.AssignmentID = strings.TrimSpace(in.AssignmentID)
	in.TargetUserID = strings.TrimSpace(in.TargetUserID)
	in.Reason = strings.TrimSpace(in.Reason)

	switch {
	case in.AssignmentID == "":
		return domain.Validationf("assignmentId is required")
	case in.TargetUserID == "":
		return domain.Validationf("targetUserId is required")
	case in.Reason == "":
		return domain.Validationf("reason is required")
	}
	return nil
}

// validTarget checks the user exists, belongs to agencyID and is not the owner
func validTarget(ctx context.Context, get func(context.Context, string) (*domain.User, error), userID, agencyID, ownerID string) error {
	target, err := get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Validationf("user %s does not exist", userID)
	}
	if err != nil {
		return err
	}
	if target.AgencyID != agencyID {
		return domain.Validationf("user %s belongs to another agency", userID)
	}
	if target.ID == ownerID {
		return domain.Validationf("user %s already owns the assignment", userID)
	}
	return nil
}

// RequestReassignment records a PENDING request to move an assignment to another
// user and tells that user about it.
func (s *Service) RequestReassignment(ctx context.Context, caller domain.Caller, in RequestInput) (*domain.ReassignmentRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	a, err := s.store.GetAssignment(ctx, in.AssignmentID)
	if err != nil {
		return nil, err
	}

	res := authz.Resource{OwnerID: a.UserID, AgencyID: a.AgencyID}
	if err := s.authz.Authorize(ctx, caller, authz.ActionRequestReassignment, res); err != nil {
		return nil, err
	}

	if err := validTarget(ctx, s.store.GetUser, in.TargetUserID, a.AgencyID, a.UserID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	req := &domain.ReassignmentRequest{
		ID:              uuid.NewString(),
		AssignmentID:    a.ID,
		FromUserID:      a.UserID,
		RequestByUserID: caller.UserID,
		TargetUserID:    in.TargetUserID,
		Reason:          in.Reason,
		Status:          domain.ReassignmentPending,
		AgencyID:        a.AgencyID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateReassignmentRequest(ctx, req); err != nil {
		return nil, err
	}

	telemetry.ReassignmentRequests.Inc()
	s.logger.Info("Reassignment requested",
		slog.String("request_id", req.ID),
		slog.String("assignment_id", a.ID),
		slog.String("target_user_id", req.TargetUserID),
	)

	s.notifier.Send(ctx, notify.Message{
		UserID:  req.TargetUserID,
		Title:   "Reassignment requested",
		Message: fmt.Sprintf("You were asked to take over an assignment: %s", req.Reason),
		Link:    notify.Link("/reassignments/" + req.ID),
	})
	return req, nil
}

// DecideReassignment approves or rejects a PENDING request. Approval moves the
// assignment to the target, but only while it is still held by the owner recorded
// on the request.
func (s *Service) DecideReassignment(ctx context.Context, caller domain.Caller, requestID string, approve bool, note string) (*domain.ReassignmentRequest, error) {
	if err := s.authz.Permits(ctx, caller, authz.ActionDecideReassignment); err != nil {
		return nil, err
	}
	if strings.TrimSpace(requestID) == "" {
		return nil, domain.Validationf("request id is required")
	}

	var notePtr *string
	if n := strings.TrimSpace(note); n != "" {
		notePtr = &n
	}

	status := domain.ReassignmentRejected
	if approve {
		status = domain.ReassignmentApproved
	}

	var (
		decided    *domain.ReassignmentRequest
		superseded []domain.ReassignmentRequest
	)
	now := s.now().UTC()

	err := s.store.InTx(ctx, func(tx TxStore) error {
		req, err := tx.LockReassignmentRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, caller, authz.ActionDecideReassignment, authz.Resource{AgencyID: req.AgencyID}); err != nil {
			return err
		}
		if !req.Pending() {
			return domain.Conflictf("reassignment request %s is already %s", req.ID, req.Status)
		}

		if approve {
			a, err := tx.GetAssignment(ctx, req.AssignmentID)
			if err != nil {
				return err
			}
			if a.UserID != req.FromUserID {
				return domain.Conflictf("assignment %s changed owner since the request was made", a.ID)
			}
			if err := validTarget(ctx, tx.GetUser, req.TargetUserID, a.AgencyID, a.UserID); err != nil {
				return err
			}
			if _, err := tx.TransferAssignment(ctx, a.ID, a.UserID, a.Version, req.TargetUserID, now); err != nil {
				return err
			}
		}

		decided, err = tx.DecideReassignmentRequest(ctx, req.ID, status, caller.UserID, notePtr, now)
		if err != nil {
			return err
		}

		if approve {
			superseded, err = tx.RejectPendingRequests(ctx, req.AssignmentID, caller.UserID, domain.SupersededNote, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			telemetry.ReassignmentConflicts.Inc()
		}
		return nil, err
	}

	telemetry.ReassignmentDecisions.WithLabelValues(status).Inc()
	s.logger.Info("Reassignment request decided",
		slog.String("request_id", decided.ID),
		slog.String("status", decided.Status),
		slog.String("decided_by", caller.UserID),
	)

	verdict := "rejected"
	if approve {
		verdict = "approved"
	}
	msgs := []notify.Message{{
		UserID:  decided.RequestByUserID,
		Title:   "Reassignment request " + verdict,
		Message: fmt.Sprintf("Your reassignment request was %s", verdict),
		Link:    notify.Link("/reassignments/" + decided.ID),
	}}
	if approve {
		msgs = append(msgs, notify.Message{
			UserID:  decided.TargetUserID,
			Title:   "Job assigned to you",
			Message: "A reassignment request naming you was approved",
			Link:    notify.Link("/assignments/" + decided.AssignmentID),
		})
	}
	msgs = append(msgs, supersededMessages(superseded)...)
	s.notifier.Send(ctx, msgs...)

	return decided, nil
}

// Reassign moves an assignment to another user directly. Any
// request still PENDING for the assignment is rejected in the same transaction.
func (s *Service) Reassign(ctx context.Context, caller domain.Caller, in DirectInput) (*domain.JobAssignment, error) {
	if err := s.authz.Permits(ctx, caller, authz.ActionReassign); err != nil {
		return nil, err
	}

	in.AssignmentID = strings.TrimSpace(in.AssignmentID)
	in.NewUserID = strings.TrimSpace(in.NewUserID)
	if in.AssignmentID == "" {
		return nil, domain.Validationf("assignmentId is required")
	}
	if in.NewUserID == "" {
		return nil, domain.Validationf("newUserId is required")
	}

	var (
		previous   string
		updated    *domain.JobAssignment
		superseded []domain.ReassignmentRequest
	)
	now := s.now().UTC()

	err := s.store.InTx(ctx, func(tx TxStore) error {
		a, err := tx.GetAssignment(ctx, in.AssignmentID)
		if err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, caller, authz.ActionReassign, authz.Resource{OwnerID: a.UserID, AgencyID: a.AgencyID}); err != nil {
			return err
		}
		if in.ExpectedUserID != nil && *in.ExpectedUserID != a.UserID {
			return domain.Conflictf("assignment %s is no longer held by %s", a.ID, *in.ExpectedUserID)
		}
		if a.UserID == in.NewUserID {
			updated = a
			return nil
		}
		if err := validTarget(ctx, tx.GetUser, in.NewUserID, a.AgencyID, a.UserID); err != nil {
			return err
		}

		previous = a.UserID
		updated, err = tx.TransferAssignment(ctx, a.ID, a.UserID, a.Version, in.NewUserID, now)
		if err != nil {
			return err
		}

		superseded, err = tx.RejectPendingRequests(ctx, a.ID, caller.UserID, domain.SupersededNote, now)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			telemetry.ReassignmentConflicts.Inc()
		}
		return nil, err
	}
	if previous == "" {
		return updated, nil
	}

	telemetry.DirectReassignments.Inc()
	s.logger.Info("Assignment reassigned",
		slog.String("assignment_id", updated.ID),
		slog.String("from_user_id", previous),
		slog.String("to_user_id", updated.UserID),
		slog.Int("superseded_requests", len(superseded)),
	)

	msgs := []notify.Message{
		{
			UserID:  updated.UserID,
			Title:   "Job assigned to you",
			Message: "An assignment was moved to you",
			Link:    notify.Link("/assignments/" + updated.ID),
		},
		{
			UserID:  previous,
			Title:   "Job reassigned",
			Message: "One of your assignments was moved to another user",
			Link:    notify.Link("/assignments/" + updated.ID),
		},
	}
	msgs = append(msgs, supersededMessages(superseded)...)
	s.notifier.Send(ctx, msgs...)

	return updated, nil
}

func supersededMessages(reqs []domain.ReassignmentRequest) []notify.Message {
	msgs := make([]notify.Message, 0, len(reqs))
	for _, r := range reqs {
		msgs = append(msgs, notify.Message{
			UserID:  r.RequestByUserID,
			Title:   "Reassignment request closed",
			Message: "Your request was closed because the assignment changed owner",
			Link:    notify.Link("/reassignments/" + r.ID),
		})
	}
	return msgs
}

// List returns requests visible to the caller: every request of the agency for
// elevated roles, otherwise the ones the caller raised or is targeted by.
func (s *Service) List(ctx context.Context, caller domain.Caller, status string) ([]domain.ReassignmentRequest, error) {
	switch status {
	case "", domain.ReassignmentPending, domain.ReassignmentApproved, domain.ReassignmentRejected:
	default:
		return nil, domain.Validationf("status must be one of %s, %s, %s",
			domain.ReassignmentPending, domain.ReassignmentApproved, domain.ReassignmentRejected)
	}

	filter := storage.RequestFilter{Status: status, Limit: listLimit}
	agencyID, err := authz.AgencyScope(ctx, s.authz, caller, authz.ActionListAllReassignments)
	switch {
	case err == nil:
		filter.AgencyID = agencyID
	case errors.Is(err, domain.ErrForbidden):
		filter.InvolvingUserID = caller.UserID
	default:
		return nil, err
	}

	requests, err := s.store.ListReassignmentRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []domain.ReassignmentRequest{}
	}
	return requests, nil
}

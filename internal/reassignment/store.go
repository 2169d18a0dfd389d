package reassignment

import (
	"context"
	"time"

	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/storage"
)

// Store is the data access the workflow needs outside a transaction
type Store interface {
	GetAssignment(ctx context.Context, id string) (*domain.JobAssignment, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateReassignmentRequest(ctx context.Context, r *domain.ReassignmentRequest) error
	ListReassignmentRequests(ctx context.Context, filter storage.RequestFilter) ([]domain.ReassignmentRequest, error)
	InTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the data access used while changing ownership
type TxStore interface {
	GetAssignment(ctx context.Context, id string) (*domain.JobAssignment, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	LockReassignmentRequest(ctx context.Context, id string) (*domain.ReassignmentRequest, error)
	DecideReassignmentRequest(ctx context.Context, id, status, decidedBy string, note *string, at time.Time) (*domain.ReassignmentRequest, error)
	TransferAssignment(ctx context.Context, id, fromUserID string, version int, toUserID string, at time.Time) (*domain.JobAssignment, error)
	RejectPendingRequests(ctx context.Context, assignmentID, decidedBy, note string, at time.Time) ([]domain.ReassignmentRequest, error)
}

type pgStore struct {
	*storage.Store
}

// NewPostgresStore adapts the persistence gateway to the workflow
func NewPostgresStore(s *storage.Store) Store {
	return pgStore{Store: s}
}

func (p pgStore) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	return p.Store.InTx(ctx, func(tx *storage.Tx) error {
		return fn(tx)
	})
}

package recurrence

import (
	"context"
	"time"

	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/storage"
	"github.com/cuongbtq/agency-be/shared/redislock"
)

// Store is the data access the engine needs outside a transaction
type Store interface {
	DueTemplateIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	InTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the data access used while spawning one template
type TxStore interface {
	LockTemplate(ctx context.Context, id string) (*domain.RecurringJobTemplate, error)
	CreateJob(ctx context.Context, job *domain.Job) error
	CreateAssignment(ctx context.Context, a *domain.JobAssignment) error
	AdvanceTemplate(ctx context.Context, id string, spawnedAt, nextDueAt time.Time) error
}

// TemplateStore is the data access for managing templates
type TemplateStore interface {
	CampaignAgencyID(ctx context.Context, campaignID string) (string, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateTemplate(ctx context.Context, t *domain.RecurringJobTemplate) error
	GetTemplate(ctx context.Context, id string) (*domain.RecurringJobTemplate, error)
	ListTemplates(ctx context.Context, agencyID string) ([]domain.RecurringJobTemplate, error)
	DeactivateTemplate(ctx context.Context, id string, at time.Time) error
}

type pgStore struct {
	*storage.Store
}

// NewPostgresStore adapts the persistence gateway to the engine
func NewPostgresStore(s *storage.Store) Store {
	return pgStore{Store: s}
}

func (p pgStore) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	return p.Store.InTx(ctx, func(tx *storage.Tx) error {
		return fn(tx)
	})
}

// CycleLock guards one spawn cycle across scheduler instances. ok is false
// when another instance holds it.
type CycleLock interface {
	Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

type redisCycleLock struct {
	locker *redislock.Locker
	ttl    time.Duration
}

// NewRedisCycleLock uses a Redis lease named "recurrence" held for at most ttl
func NewRedisCycleLock(locker *redislock.Locker, ttl time.Duration) CycleLock {
	return &redisCycleLock{locker: locker, ttl: ttl}
}

func (l *redisCycleLock) Acquire(ctx context.Context) (func(context.Context) error, bool, error) {
	lease, ok, err := l.locker.TryAcquire(ctx, "recurrence", l.ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	return lease.Release, true, nil
}

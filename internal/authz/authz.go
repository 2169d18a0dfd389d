package authz

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"

	"github.com/cuongbtq/agency-be/internal/domain"
)

// Actions checked by the workflows
const (
	ActionReassign             = "assignment:reassign"
	ActionRequestReassignment  = "assignment:request_reassignment"
	ActionDecideReassignment   = "reassignment:decide"
	ActionListAllReassignments = "reassignment:list_all"
	ActionReadNotification     = "notification:read"
	ActionManageTemplates      = "template:manage"
)

//go:embed model.conf
var defaultModel string

//go:embed policy.csv
var defaultPolicy string

// Subject is the request subject seen by the casbin matcher
type Subject struct {
	ID       string
	Role     string
	AgencyID string
}

// Resource is the record an action targets. OwnerID is the user that owns it,
// AgencyID the tenant it belongs to.
type Resource struct {
	OwnerID  string
	AgencyID string
}

// Authorizer decides whether a caller may perform an action. Permits answers
// before the target is loaded: it fails unless some rule grants the action to the
// caller's role at all.
type Authorizer interface {
	Permits(ctx context.Context, caller domain.Caller, action string) error
	Authorize(ctx context.Context, caller domain.Caller, action string, res Resource) error
}

// Config optionally points at model and policy files
type Config struct {
	ModelPath  string
	PolicyPath string
}

// Service evaluates role, agency and ownership rules with casbin
type Service struct {
	enforcer *casbin.Enforcer
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewService builds the enforcer from files when both paths are set, otherwise
// from the embedded model and policy.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	var (
		enf *casbin.Enforcer
		err error
	)

	if cfg.ModelPath != "" && cfg.PolicyPath != "" {
		enf, err = casbin.NewEnforcer(cfg.ModelPath, fileadapter.NewAdapter(cfg.PolicyPath))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize enforcer: %w", err)
		}
	} else {
		enf, err = newEmbeddedEnforcer()
		if err != nil {
			return nil, err
		}
	}

	return &Service{enforcer: enf, logger: logger.With(slog.String("component", "authz"))}, nil
}

func newEmbeddedEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(defaultModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authz model: %w", err)
	}

	enf, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(defaultPolicy))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize enforcer: %w", err)
	}
	return enf, nil
}

// Check evaluates a request without turning a deny into an error
func (s *Service) Check(caller domain.Caller, action string, res Resource) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub := Subject{ID: caller.UserID, Role: string(caller.Role), AgencyID: caller.AgencyID}
	allowed, err := s.enforcer.Enforce(sub, res, action)
	if err != nil {
		return false, fmt.Errorf("failed to enforce %s: %w", action, err)
	}
	return allowed, nil
}

// Authorize returns domain.ErrForbidden when the caller is denied
func (s *Service) Authorize(ctx context.Context, caller domain.Caller, action string, res Resource) error {
	allowed, err := s.Check(caller, action, res)
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.DebugContext(ctx, "Authorization denied",
			slog.String("user_id", caller.UserID),
			slog.String("role", string(caller.Role)),
			slog.String("action", action),
		)
		return fmt.Errorf("%w: %s not permitted", domain.ErrForbidden, action)
	}
	return nil
}

// Permits returns domain.ErrForbidden when no rule names the caller's role for
// action, whatever the scope.
func (s *Service) Permits(ctx context.Context, caller domain.Caller, action string) error {
	s.mu.RLock()
	rules := s.enforcer.GetFilteredPolicy(0, string(caller.Role), action)
	s.mu.RUnlock()

	if len(rules) == 0 {
		s.logger.DebugContext(ctx, "Authorization denied",
			slog.String("user_id", caller.UserID),
			slog.String("role", string(caller.Role)),
			slog.String("action", action),
		)
		return fmt.Errorf("%w: role %s cannot perform %s", domain.ErrForbidden, caller.Role, action)
	}
	return nil
}

// ReloadPolicy reloads policy rules from the configured adapter
func (s *Service) ReloadPolicy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to reload policy: %w", err)
	}
	s.logger.Info("Authorization policy reloaded", slog.Int("rules", len(s.enforcer.GetPolicy())))
	return nil
}

// crossAgency never equals a real agency id, so only rules with "any" scope match
// a resource carrying it.
const crossAgency = "*"

// AgencyScope resolves which agency a listing may cover. It returns "" when the
// caller may act across every agency and the caller's own agency when the rule is
// agency scoped. A caller without an agency never gets an agency scoped listing.
func AgencyScope(ctx context.Context, a Authorizer, caller domain.Caller, action string) (string, error) {
	if caller.AgencyID != crossAgency {
		if err := a.Authorize(ctx, caller, action, Resource{AgencyID: crossAgency}); err == nil {
			return "", nil
		}
	}
	if caller.AgencyID == "" {
		return "", fmt.Errorf("%w: %s requires an agency", domain.ErrForbidden, action)
	}
	if err := a.Authorize(ctx, caller, action, Resource{AgencyID: caller.AgencyID}); err != nil {
		return "", err
	}
	return caller.AgencyID, nil
}

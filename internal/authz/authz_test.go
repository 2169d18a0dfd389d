package authz

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/agency-be/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_Authorize(t *testing.T) {
	svc, err := NewService(Config{}, discardLogger())
	require.NoError(t, err)

	admin := domain.Caller{UserID: "u-admin", Role: domain.RoleAdmin, AgencyID: "ag-1"}
	traffic := domain.Caller{UserID: "u-traffic", Role: domain.RoleTraffic, AgencyID: "ag-1"}
	super := domain.Caller{UserID: "u-super", Role: domain.RoleSuperAdmin, AgencyID: "ag-9"}
	creative := domain.Caller{UserID: "u-creative", Role: domain.RoleCreative, AgencyID: "ag-1"}

	sameAgency := Resource{OwnerID: "u-other", AgencyID: "ag-1"}
	otherAgency := Resource{OwnerID: "u-other", AgencyID: "ag-2"}
	ownedByCreative := Resource{OwnerID: "u-creative", AgencyID: "ag-1"}

	tests := []struct {
		name    string
		caller  domain.Caller
		action  string
		res     Resource
		allowed bool
	}{
		{"admin reassigns in own agency", admin, ActionReassign, sameAgency, true},
		{"admin cannot reassign across agencies", admin, ActionReassign, otherAgency, false},
		{"traffic reassigns in own agency", traffic, ActionReassign, sameAgency, true},
		{"superadmin reassigns anywhere", super, ActionReassign, otherAgency, true},
		{"creative cannot reassign", creative, ActionReassign, ownedByCreative, false},
		{"creative requests on own assignment", creative, ActionRequestReassignment, ownedByCreative, true},
		{"creative cannot request on others assignment", creative, ActionRequestReassignment, sameAgency, false},
		{"creative cannot decide", creative, ActionDecideReassignment, ownedByCreative, false},
		{"traffic decides in own agency", traffic, ActionDecideReassignment, sameAgency, true},
		{"creative reads own notification", creative, ActionReadNotification, ownedByCreative, true},
		{"admin cannot read others notification", admin, ActionReadNotification, sameAgency, false},
		{"superadmin cannot read others notification", super, ActionReadNotification, otherAgency, false},
		{"creative cannot manage templates", creative, ActionManageTemplates, ownedByCreative, false},
		{"admin manages templates in own agency", admin, ActionManageTemplates, sameAgency, true},
		{"unknown role denied", domain.Caller{UserID: "x", Role: "GUEST", AgencyID: "ag-1"}, ActionReadNotification, Resource{OwnerID: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Authorize(context.Background(), tt.caller, tt.action, tt.res)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrForbidden)
		})
	}
}

func TestNewService_FromFiles(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.conf")
	policyPath := filepath.Join(dir, "policy.csv")
	require.NoError(t, os.WriteFile(modelPath, []byte(defaultModel), 0o600))
	require.NoError(t, os.WriteFile(policyPath, []byte("p, CREATIVE, notification:read, own\n"), 0o600))

	svc, err := NewService(Config{ModelPath: modelPath, PolicyPath: policyPath}, discardLogger())
	require.NoError(t, err)

	creative := domain.Caller{UserID: "u-1", Role: domain.RoleCreative, AgencyID: "ag-1"}
	admin := domain.Caller{UserID: "u-2", Role: domain.RoleAdmin, AgencyID: "ag-1"}

	ok, err := svc.Check(creative, ActionReadNotification, Resource{OwnerID: "u-1"})
	require.NoError(t, err)
	assert.True(t, ok)

	// admin rules are not in the file policy
	ok, err = svc.Check(admin, ActionReassign, Resource{AgencyID: "ag-1"})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(policyPath, []byte("p, ADMIN, assignment:reassign, agency\n"), 0o600))
	require.NoError(t, svc.ReloadPolicy())

	ok, err = svc.Check(admin, ActionReassign, Resource{AgencyID: "ag-1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Check(creative, ActionReadNotification, Resource{OwnerID: "u-1"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewService_InvalidModelFile(t *testing.T) {
	_, err := NewService(Config{ModelPath: "testdata/missing.conf", PolicyPath: "testdata/missing.csv"}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize enforcer")
}

func TestService_Permits(t *testing.T) {
	svc, err := NewService(Config{}, discardLogger())
	require.NoError(t, err)

	tests := []struct {
		name    string
		role    domain.Role
		action  string
		allowed bool
	}{
		{"creative cannot reassign", domain.RoleCreative, ActionReassign, false},
		{"creative cannot decide", domain.RoleCreative, ActionDecideReassignment, false},
		{"creative cannot manage templates", domain.RoleCreative, ActionManageTemplates, false},
		{"creative may request", domain.RoleCreative, ActionRequestReassignment, true},
		{"traffic may reassign", domain.RoleTraffic, ActionReassign, true},
		{"admin may manage templates", domain.RoleAdmin, ActionManageTemplates, true},
		{"superadmin may decide", domain.RoleSuperAdmin, ActionDecideReassignment, true},
		{"unknown role denied", "GUEST", ActionReadNotification, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Permits(context.Background(), domain.Caller{UserID: "u-1", Role: tt.role, AgencyID: "ag-1"}, tt.action)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrForbidden)
		})
	}
}

func TestService_ReloadPolicyEmbedded(t *testing.T) {
	svc, err := NewService(Config{}, discardLogger())
	require.NoError(t, err)

	require.NoError(t, svc.ReloadPolicy())

	err = svc.Authorize(context.Background(),
		domain.Caller{UserID: "a", Role: domain.RoleAdmin, AgencyID: "ag-1"},
		ActionReassign, Resource{AgencyID: "ag-1"})
	assert.NoError(t, err)
}

func TestAgencyScope(t *testing.T) {
	svc, err := NewService(Config{}, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	scope, err := AgencyScope(ctx, svc, domain.Caller{UserID: "s", Role: domain.RoleSuperAdmin, AgencyID: "ag-1"}, ActionManageTemplates)
	require.NoError(t, err)
	assert.Equal(t, "", scope)

	scope, err = AgencyScope(ctx, svc, domain.Caller{UserID: "a", Role: domain.RoleAdmin, AgencyID: "ag-1"}, ActionManageTemplates)
	require.NoError(t, err)
	assert.Equal(t, "ag-1", scope)

	_, err = AgencyScope(ctx, svc, domain.Caller{UserID: "c", Role: domain.RoleCreative, AgencyID: "ag-1"}, ActionManageTemplates)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// an agency scoped role without an agency must not widen to every agency
	_, err = AgencyScope(ctx, svc, domain.Caller{UserID: "a", Role: domain.RoleAdmin}, ActionManageTemplates)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = AgencyScope(ctx, svc, domain.Caller{UserID: "t", Role: domain.RoleTraffic}, ActionListAllReassignments)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	scope, err = AgencyScope(ctx, svc, domain.Caller{UserID: "s", Role: domain.RoleSuperAdmin}, ActionListAllReassignments)
	require.NoError(t, err)
	assert.Equal(t, "", scope)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/internal/session"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: ctl-secret\n  issuer: agency-be\n  token_ttl: 1h\n"), 0o600))
	return path
}

func TestTokenIssue(t *testing.T) {
	path := writeConfig(t)

	out := &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"token", "issue", "--config", path, "--user", "u-1", "--role", "TRAFFIC", "--agency", "ag-1"})
	require.NoError(t, cmd.Execute())

	var got tokenOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "u-1", got.UserID)

	caller, err := session.NewJWTResolver("ctl-secret", "agency-be", time.Hour).Resolve(context.Background(), got.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.Caller{UserID: "u-1", Role: domain.RoleTraffic, AgencyID: "ag-1"}, caller)
}

func TestTokenIssue_Errors(t *testing.T) {
	path := writeConfig(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "unknown role",
			args:    []string{"token", "issue", "--config", path, "--user", "u-1", "--role", "INTERN", "--agency", "ag-1"},
			wantErr: "invalid --role",
		},
		{
			name:    "missing agency",
			args:    []string{"token", "issue", "--config", path, "--user", "u-1", "--role", "ADMIN"},
			wantErr: "--agency is required",
		},
		{
			name:    "blank agency",
			args:    []string{"token", "issue", "--config", path, "--user", "u-1", "--role", "TRAFFIC", "--agency", ""},
			wantErr: "--agency is required",
		},
		{
			name:    "missing user",
			args:    []string{"token", "issue", "--config", path, "--role", "ADMIN", "--agency", "ag-1"},
			wantErr: "user",
		},
		{
			name:    "missing config",
			args:    []string{"token", "issue", "--config", filepath.Join(t.TempDir(), "none.yaml"), "--user", "u-1", "--role", "ADMIN", "--agency", "ag-1"},
			wantErr: "failed to load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

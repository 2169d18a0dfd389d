package postgresql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFromDB(sqlx.NewDb(db, "postgres"), logger), mock
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Host: "db", Port: 5432, User: "agency", Password: "secret", Database: "agency_db"}
	assert.Equal(t, "host=db port=5432 user=agency password=secret dbname=agency_db sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestClient_InTx(t *testing.T) {
	t.Run("commits when fn succeeds", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE jobs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := client.InTx(context.Background(), func(tx *sqlx.Tx) error {
			_, err := tx.Exec("UPDATE jobs SET status = 'DONE'")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := client.InTx(context.Background(), func(tx *sqlx.Tx) error {
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure is wrapped", func(t *testing.T) {
		client, mock := newMockClient(t)
		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		err := client.InTx(context.Background(), func(tx *sqlx.Tx) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})
}

func TestClient_HealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	client := NewFromDB(sqlx.NewDb(db, "postgres"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	require.NoError(t, client.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

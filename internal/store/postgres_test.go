package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ppe-vision/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS kv`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM kv WHERE key = \$1`).
		WithArgs("ppeHistory").
		WillReturnError(pgx.ErrNoRows)

	v, err := s.Get(context.Background(), "ppeHistory")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM kv WHERE key = \$1`).
		WithArgs("darkMode").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte("true")))

	v, err := s.Get(context.Background(), "darkMode")
	require.NoError(t, err)
	assert.Equal(t, "true", string(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM kv`).
		WithArgs("darkMode").
		WillReturnError(errors.New("conn reset"))

	_, err := s.Get(context.Background(), "darkMode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: get darkMode")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO kv .+ ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("ppeHistory", []byte("[]")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Put(context.Background(), "ppeHistory", []byte("[]")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO kv`).
		WithArgs("ppeHistory", []byte("[]")).
		WillReturnError(errors.New("read only"))

	err := s.Put(context.Background(), "ppeHistory", []byte("[]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: put ppeHistory")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM kv WHERE key = \$1`).
		WithArgs("ppeHistory").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), "ppeHistory"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordEvents(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	events := testEvents(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	mock.ExpectCopyFrom(pgx.Identifier{"events"}, eventColumns).WillReturnResult(int64(len(events)))

	require.NoError(t, s.RecordEvents(context.Background(), events))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordEvents_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.RecordEvents(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEvents(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, run_id, event_type, severity, label, confidence, source, created_at\s+FROM events`).
		WithArgs(DefaultEventLimit).
		WillReturnRows(pgxmock.NewRows(eventColumns).
			AddRow("e1", "r1", "PPE_VIOLATION", "HIGH", "NO-Hardhat", 0.9, "a.jpg", at))

	events, err := s.ListEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventPPEViolation, events[0].Type)
	assert.Equal(t, model.SeverityHigh, events[0].Severity)
	assert.Equal(t, at, events[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

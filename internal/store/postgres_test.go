package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/merlin/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func recordJSON(t *testing.T, r model.ScoredCompanyRecord) []byte {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	return data
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS scores`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScores(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"scores"}, scoreColumns).WillReturnResult(3)
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE IF NOT EXISTS "_tmp_upsert_latest_scores"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_latest_scores"}, latestColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "latest_scores" .* ON CONFLICT \("domain"\) DO UPDATE`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectCommit()

	err := s.SaveScores(context.Background(), "run-1", []model.ScoredCompanyRecord{
		scored("Acme", "acme.io", 57.1),
		scored("Beta", "beta.io", 40),
		scored("Acme", "acme.io", 58),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScores_CopyFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"scores"}, scoreColumns).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err := s.SaveScores(context.Background(), "run-1", []model.ScoredCompanyRecord{scored("Acme", "acme.io", 57.1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: save scores")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScores_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.SaveScores(context.Background(), "run-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListScores(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT run_id, domain, record, scored_at FROM scores WHERE run_id = \$1 AND total >= \$2 ORDER BY total DESC, name ASC LIMIT \$3`).
		WithArgs("run-1", 50.0, 5).
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "domain", "record", "scored_at"}).
			AddRow("run-1", "acme.io", recordJSON(t, scored("Acme", "acme.io", 57.1)), at))

	got, err := s.ListScores(context.Background(), ScoreFilter{RunID: "run-1", MinTotal: 50, Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Record.Name)
	assert.Equal(t, at, got[0].ScoredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListScores_Latest(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT run_id, domain, record, scored_at FROM latest_scores ORDER BY total DESC, name ASC$`).
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "domain", "record", "scored_at"}))

	got, err := s.ListScores(context.Background(), ScoreFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScore(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT run_id, record, scored_at FROM latest_scores WHERE domain = \$1`).
		WithArgs("acme.io").
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "record", "scored_at"}).
			AddRow("run-2", recordJSON(t, scored("Acme", "acme.io", 61)), at))

	got, err := s.GetScore(context.Background(), "ACME.io")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.InDelta(t, 61, got.Record.Scores.Total, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScore_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT run_id, record, scored_at FROM latest_scores`).
		WithArgs("missing.io").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetScore(context.Background(), "missing.io")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedPayload_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM payload_cache`).
		WithArgs("unknown.com").
		WillReturnError(pgx.ErrNoRows)

	result, err := s.GetCachedPayload(context.Background(), "unknown.com")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedPayload_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM payload_cache`).
		WithArgs("acme.io").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`{"companyFound":true}`)))

	result, err := s.GetCachedPayload(context.Background(), "Acme.io")
	require.NoError(t, err)
	assert.JSONEq(t, `{"companyFound":true}`, string(result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCachedPayload(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO payload_cache .* ON CONFLICT \(domain\) DO UPDATE`).
		WithArgs("acme.io", []byte(`{}`), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetCachedPayload(context.Background(), "acme.io", []byte(`{}`), time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredPayloads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM payload_cache WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := s.DeleteExpiredPayloads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	s, _ := newMockPostgresStore(t)
	assert.NoError(t, s.Close())
}

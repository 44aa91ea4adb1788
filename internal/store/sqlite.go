package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/merlin/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas apply per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Timestamps are Unix seconds.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scores (
	id        TEXT PRIMARY KEY,
	run_id    TEXT NOT NULL,
	domain    TEXT NOT NULL,
	name      TEXT NOT NULL,
	total     REAL NOT NULL,
	team      REAL NOT NULL,
	market    REAL NOT NULL,
	funding   REAL NOT NULL,
	record    TEXT NOT NULL,
	scored_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS latest_scores (
	domain    TEXT PRIMARY KEY,
	run_id    TEXT NOT NULL,
	name      TEXT NOT NULL,
	total     REAL NOT NULL,
	team      REAL NOT NULL,
	market    REAL NOT NULL,
	funding   REAL NOT NULL,
	record    TEXT NOT NULL,
	scored_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payload_cache (
	domain     TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	cached_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scores_run_id ON scores(run_id);
CREATE INDEX IF NOT EXISTS idx_scores_total ON scores(total DESC);
CREATE INDEX IF NOT EXISTS idx_latest_scores_total ON latest_scores(total DESC);
CREATE INDEX IF NOT EXISTS idx_payload_cache_expires_at ON payload_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveScores appends every record to the run history and replaces the latest
// score of each company, in one transaction.
func (s *SQLiteStore) SaveScores(ctx context.Context, runID string, records []model.ScoredCompanyRecord) error {
	if runID == "" {
		return eris.New("sqlite: save scores: empty run id")
	}
	rows, err := toRows(records)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save scores")
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now().UTC().Unix()
	for _, r := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO scores (id, run_id, domain, name, total, team, market, funding, record, scored_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, r.key, r.record.Name,
			r.record.Scores.Total, r.record.Scores.Team, r.record.Scores.Market, r.record.Scores.Funding,
			string(r.data), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert score %s", r.key)
		}
	}
	for _, r := range latestRows(rows) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO latest_scores (domain, run_id, name, total, team, market, funding, record, scored_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(domain) DO UPDATE SET
				run_id = excluded.run_id, name = excluded.name, total = excluded.total,
				team = excluded.team, market = excluded.market, funding = excluded.funding,
				record = excluded.record, scored_at = excluded.scored_at`,
			r.key, runID, r.record.Name,
			r.record.Scores.Total, r.record.Scores.Team, r.record.Scores.Market, r.record.Scores.Funding,
			string(r.data), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert latest score %s", r.key)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save scores")
}

func (s *SQLiteStore) ListScores(ctx context.Context, filter ScoreFilter) ([]StoredScore, error) {
	table := "latest_scores"
	var (
		where []string
		args  []any
	)
	if filter.RunID != "" {
		table = "scores"
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.MinTotal > 0 {
		where = append(where, "total >= ?")
		args = append(args, filter.MinTotal)
	}

	query := "SELECT run_id, domain, record, scored_at FROM " + table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY total DESC, name ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scores")
	}
	defer rows.Close() //nolint:errcheck

	var out []StoredScore
	for rows.Next() {
		var (
			runID, key, data string
			scoredAt         int64
		)
		if err := rows.Scan(&runID, &key, &data, &scoredAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		st, err := decodeStored(runID, key, []byte(data), time.Unix(scoredAt, 0))
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate scores")
}

func (s *SQLiteStore) GetScore(ctx context.Context, key string) (*StoredScore, error) {
	key = NormalizeKey(key)
	var (
		runID, data string
		scoredAt    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, record, scored_at FROM latest_scores WHERE domain = ?`, key,
	).Scan(&runID, &data, &scoredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: get score %s", key)
		}
		return nil, eris.Wrapf(err, "sqlite: get score %s", key)
	}
	st, err := decodeStored(runID, key, []byte(data), time.Unix(scoredAt, 0))
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteStore) GetCachedPayload(ctx context.Context, domain string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM payload_cache WHERE domain = ? AND expires_at > ?`,
		NormalizeKey(domain), s.now().UTC().Unix(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get cached payload")
	}
	return data, nil
}

func (s *SQLiteStore) SetCachedPayload(ctx context.Context, domain string, data []byte, ttl time.Duration) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payload_cache (domain, data, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		NormalizeKey(domain), data, now.Unix(), now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: set cached payload")
}

func (s *SQLiteStore) DeleteExpiredPayloads(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM payload_cache WHERE expires_at <= ?`, s.now().UTC().Unix())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired payloads")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

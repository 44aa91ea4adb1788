package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/merlin/internal/db"
	"github.com/sells-group/merlin/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var scoreColumns = []string{"id", "run_id", "domain", "name", "total", "team", "market", "funding", "record", "scored_at"}

var latestColumns = []string{"domain", "run_id", "name", "total", "team", "market", "funding", "record", "scored_at"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

// NewPostgresWithPool wraps an existing pool. The caller keeps ownership.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scores (
	id        TEXT PRIMARY KEY,
	run_id    TEXT NOT NULL,
	domain    TEXT NOT NULL,
	name      TEXT NOT NULL,
	total     DOUBLE PRECISION NOT NULL,
	team      DOUBLE PRECISION NOT NULL,
	market    DOUBLE PRECISION NOT NULL,
	funding   DOUBLE PRECISION NOT NULL,
	record    JSONB NOT NULL,
	scored_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS latest_scores (
	domain    TEXT PRIMARY KEY,
	run_id    TEXT NOT NULL,
	name      TEXT NOT NULL,
	total     DOUBLE PRECISION NOT NULL,
	team      DOUBLE PRECISION NOT NULL,
	market    DOUBLE PRECISION NOT NULL,
	funding   DOUBLE PRECISION NOT NULL,
	record    JSONB NOT NULL,
	scored_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS payload_cache (
	domain     TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scores_run_id ON scores(run_id);
CREATE INDEX IF NOT EXISTS idx_scores_total ON scores(total DESC);
CREATE INDEX IF NOT EXISTS idx_latest_scores_total ON latest_scores(total DESC);
CREATE INDEX IF NOT EXISTS idx_payload_cache_expires_at ON payload_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveScores COPYs every record into the run history and bulk-upserts the
// latest score per company, in one transaction.
func (s *PostgresStore) SaveScores(ctx context.Context, runID string, records []model.ScoredCompanyRecord) error {
	if runID == "" {
		return eris.New("postgres: save scores: empty run id")
	}
	rows, err := toRows(records)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	now := s.now().UTC()
	history := make([][]any, 0, len(rows))
	for _, r := range rows {
		sc := r.record.Scores
		history = append(history, []any{
			uuid.New().String(), runID, r.key, r.record.Name,
			sc.Total, sc.Team, sc.Market, sc.Funding, r.data, now,
		})
	}
	latest := latestRows(rows)
	current := make([][]any, 0, len(latest))
	for _, r := range latest {
		sc := r.record.Scores
		current = append(current, []any{
			r.key, runID, r.record.Name,
			sc.Total, sc.Team, sc.Market, sc.Funding, r.data, now,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save scores")
	}

	if _, err := db.CopyRows(ctx, tx, "scores", scoreColumns, history); err != nil {
		_ = tx.Rollback(ctx)
		return eris.Wrap(err, "postgres: save scores")
	}
	if _, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        "latest_scores",
		Columns:      latestColumns,
		ConflictKeys: []string{"domain"},
	}, current); err != nil {
		_ = tx.Rollback(ctx)
		return eris.Wrap(err, "postgres: save scores")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save scores")
}

func (s *PostgresStore) ListScores(ctx context.Context, filter ScoreFilter) ([]StoredScore, error) {
	table := "latest_scores"
	var (
		where []string
		args  []any
	)
	if filter.RunID != "" {
		table = "scores"
		args = append(args, filter.RunID)
		where = append(where, fmt.Sprintf("run_id = $%d", len(args)))
	}
	if filter.MinTotal > 0 {
		args = append(args, filter.MinTotal)
		where = append(where, fmt.Sprintf("total >= $%d", len(args)))
	}

	query := "SELECT run_id, domain, record, scored_at FROM " + table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY total DESC, name ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scores")
	}
	defer rows.Close()

	var out []StoredScore
	for rows.Next() {
		var (
			runID, key string
			data       []byte
			scoredAt   time.Time
		)
		if err := rows.Scan(&runID, &key, &data, &scoredAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		st, err := decodeStored(runID, key, data, scoredAt)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate scores")
}

func (s *PostgresStore) GetScore(ctx context.Context, key string) (*StoredScore, error) {
	key = NormalizeKey(key)
	var (
		runID    string
		data     []byte
		scoredAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT run_id, record, scored_at FROM latest_scores WHERE domain = $1`, key,
	).Scan(&runID, &data, &scoredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: get score %s", key)
		}
		return nil, eris.Wrapf(err, "postgres: get score %s", key)
	}
	st, err := decodeStored(runID, key, data, scoredAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStore) GetCachedPayload(ctx context.Context, domain string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM payload_cache WHERE domain = $1 AND expires_at > now()`,
		NormalizeKey(domain),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached payload")
	}
	return data, nil
}

func (s *PostgresStore) SetCachedPayload(ctx context.Context, domain string, data []byte, ttl time.Duration) error {
	now := s.now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payload_cache (domain, data, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (domain) DO UPDATE SET data = $2, cached_at = $3, expires_at = $4`,
		NormalizeKey(domain), data, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached payload")
}

func (s *PostgresStore) DeleteExpiredPayloads(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM payload_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired payloads")
	}
	return int(tag.RowsAffected()), nil
}

// Package store persists scored companies and cached vendor payloads.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/merlin/internal/model"
)

// ErrNotFound is returned by GetScore when no score exists for a key.
var ErrNotFound = eris.New("store: not found")

// ScoreFilter narrows ListScores. An empty RunID reads the latest score per
// company across all runs.
type ScoreFilter struct {
	RunID    string  `json:"run_id,omitempty"`
	MinTotal float64 `json:"min_total,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

// StoredScore is one persisted scoring result.
type StoredScore struct {
	RunID    string                    `json:"run_id"`
	Key      string                    `json:"key"`
	Record   model.ScoredCompanyRecord `json:"record"`
	ScoredAt time.Time                 `json:"scored_at"`
}

// Store defines the persistence interface for scoring runs.
type Store interface {
	// Scores
	SaveScores(ctx context.Context, runID string, records []model.ScoredCompanyRecord) error
	ListScores(ctx context.Context, filter ScoreFilter) ([]StoredScore, error)
	GetScore(ctx context.Context, key string) (*StoredScore, error)

	// Vendor payload cache. A miss returns nil, nil.
	GetCachedPayload(ctx context.Context, domain string) ([]byte, error)
	SetCachedPayload(ctx context.Context, domain string, data []byte, ttl time.Duration) error
	DeleteExpiredPayloads(ctx context.Context) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// RecordKey identifies a company across runs: its website domain, or its
// lowercased name when no domain is known.
func RecordKey(r model.ScoredCompanyRecord) string {
	if d := strings.ToLower(strings.TrimSpace(r.WebsiteDomain)); d != "" {
		return d
	}
	return "name:" + strings.ToLower(strings.TrimSpace(r.Name))
}

// NormalizeKey turns a lookup argument into the form RecordKey produces.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// scoreRow is the flattened form written to both score tables.
type scoreRow struct {
	key    string
	record model.ScoredCompanyRecord
	data   []byte
}

func toRows(records []model.ScoredCompanyRecord) ([]scoreRow, error) {
	rows := make([]scoreRow, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, eris.Wrapf(err, "store: marshal record %s", r.Name)
		}
		rows = append(rows, scoreRow{key: RecordKey(r), record: r, data: data})
	}
	return rows, nil
}

// latestRows keeps the last row per key, ordered by first appearance.
func latestRows(rows []scoreRow) []scoreRow {
	idx := make(map[string]int, len(rows))
	out := make([]scoreRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := idx[r.key]; ok {
			out[i] = r
			continue
		}
		idx[r.key] = len(out)
		out = append(out, r)
	}
	return out
}

func decodeStored(runID, key string, data []byte, scoredAt time.Time) (StoredScore, error) {
	var rec model.ScoredCompanyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return StoredScore{}, eris.Wrapf(err, "store: decode record %s", key)
	}
	return StoredScore{RunID: runID, Key: key, Record: rec, ScoredAt: scoredAt.UTC()}, nil
}

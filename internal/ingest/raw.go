package ingest

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/merlin/internal/model"
)

// RawRow is one entry of a raw snapshot: the self-reported company and the
// vendor response envelope exactly as received. HarmonicRaw is JSON null
// when the lookup was skipped or failed.
type RawRow struct {
	RawCompany  model.CompanyRecord `json:"raw_company"`
	HarmonicRaw json.RawMessage     `json:"harmonic_raw"`
}

// HasPayload reports whether the row carries a vendor envelope.
func (r RawRow) HasPayload() bool {
	return len(r.HarmonicRaw) > 0 && string(r.HarmonicRaw) != "null"
}

// ReadRaw decodes a raw snapshot stream.
func ReadRaw(ctx context.Context, r io.Reader) ([]RawRow, error) {
	outCh, errCh := streamRawRows(ctx, r)

	var rows []RawRow
	for row := range outCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "ingest: read raw snapshot")
	}
	return rows, nil
}

// ReadRawFile reads a raw snapshot from path.
func ReadRawFile(ctx context.Context, path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open raw snapshot %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadRaw(ctx, f)
}

// WriteRaw encodes rows as an indented JSON array.
func WriteRaw(w io.Writer, rows []RawRow) error {
	if rows == nil {
		rows = []RawRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(rows), "ingest: write raw snapshot")
}

// WriteRawFile writes rows to path, creating parent directories. The file is
// replaced atomically.
func WriteRawFile(path string, rows []RawRow) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "ingest: create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".raw-*.json")
	if err != nil {
		return eris.Wrap(err, "ingest: create temp snapshot")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := WriteRaw(tmp, rows); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "ingest: close temp snapshot")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "ingest: rename snapshot to %s", path)
}

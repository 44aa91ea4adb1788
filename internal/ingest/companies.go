package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/merlin/internal/model"
)

// ErrNoNameColumn is returned when a company sheet has no Name header.
var ErrNoNameColumn = eris.New("ingest: header row has no Name column")

// Options controls how a company sheet is read.
type Options struct {
	// SkipRows drops preamble rows before the header row.
	SkipRows int
	// Sheet selects the XLSX sheet. Ignored for CSV.
	Sheet XLSXOptions
}

// Header aliases, matched case-insensitively after trimming.
var columnAliases = map[string][]string{
	"name":        {"name", "company", "company name"},
	"domain":      {"url", "domain", "website"},
	"description": {"description"},
	"industry":    {"industry"},
	"stage":       {"stage"},
}

type columns map[string]int

func headerColumns(header []string) (columns, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := byName[key]; !dup {
			byName[key] = i
		}
	}

	cols := make(columns, len(columnAliases))
	for field, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := byName[a]; ok {
				cols[field] = i
				break
			}
		}
	}
	if _, ok := cols["name"]; !ok {
		return nil, ErrNoNameColumn
	}
	return cols, nil
}

func (c columns) get(row []string, field string) string {
	i, ok := c[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) company(row []string) model.CompanyRecord {
	return model.CompanyRecord{
		Name:        c.get(row, "name"),
		Domain:      c.get(row, "domain"),
		Description: c.get(row, "description"),
		Industry:    c.get(row, "industry"),
		Stage:       c.get(row, "stage"),
	}
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// collector turns raw rows into deduplicated company records.
type collector struct {
	skip    int
	cols    columns
	seen    map[string]bool
	out     []model.CompanyRecord
	dropped int
}

func newCollector(skip int) *collector {
	return &collector{skip: skip, seen: make(map[string]bool)}
}

func (c *collector) add(row []string) error {
	if c.skip > 0 {
		c.skip--
		return nil
	}
	if blank(row) {
		return nil
	}
	if c.cols == nil {
		cols, err := headerColumns(row)
		if err != nil {
			return err
		}
		c.cols = cols
		return nil
	}

	rec := c.cols.company(row)
	if key := CleanDomain(rec.Domain); key != "" {
		if c.seen[key] {
			c.dropped++
			return nil
		}
		c.seen[key] = true
	}
	c.out = append(c.out, rec)
	return nil
}

func (c *collector) result(source string) ([]model.CompanyRecord, error) {
	if c.cols == nil {
		return nil, eris.Wrapf(ErrNoNameColumn, "ingest: %s", source)
	}
	if c.dropped > 0 {
		zap.L().Info("ingest: dropped duplicate domains",
			zap.String("source", source),
			zap.Int("dropped", c.dropped),
		)
	}
	return c.out, nil
}

// ReadCompaniesCSV reads company records from a CSV stream. The first
// non-blank row after SkipRows is the header. Rows with a domain already
// seen are dropped; the first occurrence wins.
func ReadCompaniesCSV(ctx context.Context, r io.Reader, opts Options) ([]model.CompanyRecord, error) {
	rowCh, errCh := streamSpreadsheetRows(ctx, r)

	c := newCollector(opts.SkipRows)
	var addErr error
	for row := range rowCh {
		if addErr != nil {
			continue
		}
		addErr = c.add(row)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "ingest: read csv")
	}
	if addErr != nil {
		return nil, eris.Wrap(addErr, "ingest: read csv")
	}
	return c.result("csv")
}

// ReadCompaniesXLSX reads company records from an XLSX sheet with the same
// header and dedupe rules as ReadCompaniesCSV.
func ReadCompaniesXLSX(path string, opts Options) ([]model.CompanyRecord, error) {
	rows, err := ReadXLSX(path, opts.Sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read xlsx %s", path)
	}
	c := newCollector(opts.SkipRows)
	for _, row := range rows {
		if err := c.add(row); err != nil {
			return nil, eris.Wrapf(err, "ingest: read xlsx %s", path)
		}
	}
	return c.result(filepath.Base(path))
}

// ReadCompaniesFile dispatches on the file extension.
func ReadCompaniesFile(ctx context.Context, path string, opts Options) ([]model.CompanyRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadCompaniesXLSX(path, opts)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCompaniesCSV(ctx, f, opts)
	default:
		return nil, eris.Errorf("ingest: unsupported company file type %q", filepath.Ext(path))
	}
}

// CleanDomain reduces a URL or domain to a lowercase host: scheme, "www.",
// path, query and port are removed.
func CleanDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}

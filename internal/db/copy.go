package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyRows streams rows into table over the COPY protocol and returns the
// number written. table may be schema-qualified ("audit.scores"). Every row
// must have exactly one value per column; a short or long row is rejected
// before anything is sent.
func CopyRows(ctx context.Context, c Copier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, eris.Errorf("db: copy %s: row %d has %d values for %d columns", table, i, len(row), len(columns))
		}
	}

	n, err := c.CopyFrom(ctx, pgx.Identifier(strings.Split(table, ".")), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: copy %s", table)
	}
	return n, nil
}

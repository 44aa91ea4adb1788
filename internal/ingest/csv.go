// Package ingest reads company lists and raw vendor snapshots from disk.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// streamSpreadsheetRows emits the rows of a spreadsheet-exported CSV with
// every cell trimmed. Exports carry a ragged preamble and stray quotes, so
// field counts are not enforced and quoting is lenient. The row channel must
// be drained; both channels close once the reader is exhausted or ctx ends.
func streamSpreadsheetRows(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rows := make(chan []string, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(rows)
		defer close(errs)

		reader := csv.NewReader(r)
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		for ctx.Err() == nil {
			row, err := reader.Read()
			switch {
			case errors.Is(err, io.EOF):
				return
			case err != nil:
				errs <- eris.Wrap(err, "ingest: read company row")
				return
			}
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}

			select {
			case rows <- row:
			case <-ctx.Done():
			}
		}
		errs <- eris.Wrap(ctx.Err(), "ingest: company rows: context cancelled")
	}()

	return rows, errs
}

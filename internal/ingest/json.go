package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rotisserie/eris"
)

// streamRawRows decodes a raw snapshot one RawRow at a time so large replays
// never hold the undecoded document in memory. Empty input yields no rows.
func streamRawRows(ctx context.Context, r io.Reader) (<-chan RawRow, <-chan error) {
	out := make(chan RawRow, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		dec := json.NewDecoder(r)
		open, err := dec.Token()
		switch {
		case errors.Is(err, io.EOF):
			return
		case err != nil:
			errs <- eris.Wrap(err, "ingest: raw snapshot header")
			return
		}
		if d, ok := open.(json.Delim); !ok || d != '[' {
			errs <- eris.Errorf("ingest: raw snapshot: expected '[', got %v", open)
			return
		}

		for n := 0; dec.More(); n++ {
			var row RawRow
			if err := dec.Decode(&row); err != nil {
				errs <- eris.Wrapf(err, "ingest: raw snapshot: decode element %d", n)
				return
			}
			select {
			case out <- row:
			case <-ctx.Done():
				errs <- eris.Wrap(ctx.Err(), "ingest: raw snapshot: context cancelled")
				return
			}
		}

		if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
			errs <- eris.Wrap(err, "ingest: raw snapshot trailer")
		}
	}()

	return out, errs
}

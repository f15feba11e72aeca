package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	LazyQuotes bool
	TrimSpace  bool // trim whitespace around every field

	// HasHeader skips the first row; with HeaderCh set the row is delivered
	// there before any data row is sent.
	HasHeader bool
	HeaderCh  chan<- []string
}

// StreamCSV parses r row by row. Data rows arrive on the first channel, at
// most one error on the second; both close when parsing ends. Rows may have
// varying field counts; the caller validates shape.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = opts.LazyQuotes
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}

		next := func() ([]string, error) {
			record, err := reader.Read()
			if err != nil {
				return nil, err
			}
			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}
			return record, nil
		}

		if opts.HasHeader {
			header, err := next()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read header")
				return
			}
			if opts.HeaderCh != nil {
				select {
				case opts.HeaderCh <- header:
				case <-ctx.Done():
					errCh <- eris.Wrap(ctx.Err(), "csv: cancelled")
					return
				}
			}
		}

		for {
			record, err := next()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

package fetcher

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// charsetReader decodes non-UTF-8 XML. FHRS open-data files occasionally
// declare ISO-8859-1.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "xml: charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

// StreamXML decodes every element whose local name matches element into a T
// and sends it on the first channel. At most one error arrives on the second;
// both close when the document ends.
func StreamXML[T any](ctx context.Context, r io.Reader, element string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		dec := xml.NewDecoder(r)
		dec.CharsetReader = charsetReader

		for {
			tok, err := dec.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "xml: read token")
				return
			}

			start, ok := tok.(xml.StartElement)
			if !ok || start.Name.Local != element {
				continue
			}

			var item T
			if err := dec.DecodeElement(&item, &start); err != nil {
				errCh <- eris.Wrapf(err, "xml: decode %s", element)
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xml: cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

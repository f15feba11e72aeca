// Package fetcher pulls source data over HTTP and decodes the formats the
// sources publish: venue CSV/JSON/XLSX exports, FHRS open-data XML, and
// zipped boundary shapefiles.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote source data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into path and returns the bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// DownloadIfChanged fetches the URL unless the server still reports the
	// given ETag. Returns (body, currentETag, changed, error); body is nil
	// when unchanged.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}

package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultUserAgent  = "linkage-cli/1.0"

	// Hosts without a configured limit share this ceiling.
	fallbackRate  rate.Limit = 20
	fallbackBurst            = 20
)

// AdaptiveLimiter is a per-host rate limiter that tunes itself to the server:
// each success nudges the rate up 20% (capped at 2x the initial rate), each
// 429 halves it (floored at a quarter of the initial rate).
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	current rate.Limit
	ceil    rate.Limit
	floor   rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at initial events/sec.
func NewAdaptiveLimiter(initial rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(initial, burst),
		current: initial,
		ceil:    initial * 2,
		floor:   initial / 4,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// adjust scales the current rate by factor, clamped to [floor, ceil].
func (a *AdaptiveLimiter) adjust(factor float64) rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.current * rate.Limit(factor)
	if next > a.ceil {
		next = a.ceil
	}
	if next < a.floor {
		next = a.floor
	}
	a.current = next
	a.limiter.SetLimit(next)
	return next
}

// OnSuccess raises the rate after a successful response.
func (a *AdaptiveLimiter) OnSuccess() {
	a.adjust(1.2)
}

// OnRateLimit halves the rate after a 429.
func (a *AdaptiveLimiter) OnRateLimit() {
	next := a.adjust(0.5)
	zap.L().Warn("rate limited, reducing request rate",
		zap.Float64("events_per_sec", float64(next)),
	)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// DefaultLimits returns adaptive limiters for the hosts this tool talks to.
// The FHRS API and open-data file host tolerate about 5 req/s; the boundary
// archive host gets the same ceiling.
func DefaultLimits() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		"api.ratings.food.gov.uk": NewAdaptiveLimiter(5, 5),
		"ratings.food.gov.uk":     NewAdaptiveLimiter(5, 5),
		"data.london.gov.uk":      NewAdaptiveLimiter(5, 5),
	}
}

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// Limits maps hostnames to their limiter. Nil means DefaultLimits.
	Limits map[string]*AdaptiveLimiter
}

// HTTPFetcher implements Fetcher over net/http with per-host adaptive rate
// limiting and retry with exponential backoff.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limits   map[string]*AdaptiveLimiter
	fallback *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher. Zero-value options get defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	limits := opts.Limits
	if limits == nil {
		limits = DefaultLimits()
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limits:   limits,
		fallback: rate.NewLimiter(fallbackRate, fallbackBurst),
	}
}

// wait blocks on the host's limiter, or the shared fallback for unknown hosts.
func (f *HTTPFetcher) wait(ctx context.Context, u *url.URL) error {
	if lim, ok := f.limits[u.Host]; ok {
		return lim.Wait(ctx)
	}
	return f.fallback.Wait(ctx)
}

// do sends the request, retrying transport errors, 429s, and 5xx responses.
// Any other response, 304 included, is returned to the caller.
func (f *HTTPFetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	adaptive := f.limits[req.URL.Host]

	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if err := f.wait(ctx, req.URL); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			zap.L().Warn("request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			f.backoff(ctx, attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("fetcher: http 429 from %s", req.URL.Host)
			if adaptive != nil {
				adaptive.OnRateLimit()
			}
			f.backoff(ctx, attempt)

		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("fetcher: http %d from %s", resp.StatusCode, req.URL.Host)
			zap.L().Warn("server error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt)

		default:
			if adaptive != nil {
				adaptive.OnSuccess()
			}
			return resp, nil
		}
	}

	return nil, eris.Wrap(lastErr, "fetcher: retries exhausted")
}

// backoff sleeps 2^attempt seconds plus up to 50% jitter, capped at 30s.
func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) {
	d := time.Duration(float64(time.Second) * math.Pow(2, float64(attempt)))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (f *HTTPFetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	return req, nil
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL into path and returns the bytes written.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrapf(err, "fetcher: write %s", path)
	}
	return n, nil
}

// DownloadIfChanged fetches the URL with an If-None-Match header. On 304 it
// returns (nil, etag, false, nil); otherwise the body and the fresh ETag.
func (f *HTTPFetcher) DownloadIfChanged(ctx context.Context, rawURL string, etag string) (io.ReadCloser, string, bool, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, "", false, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, "", false, err
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		_ = resp.Body.Close()
		return nil, etag, false, nil
	case http.StatusOK:
		return resp.Body, resp.Header.Get("ETag"), true, nil
	default:
		_ = resp.Body.Close()
		return nil, "", false, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
}

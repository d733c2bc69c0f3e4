package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/aims-sectors/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RateLimiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns per-host limits for the public codelist hosts.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"iatistandard.org":          rate.NewLimiter(5, 5),
		"codelists.codeforiati.org": rate.NewLimiter(5, 5),
		"webfs.oecd.org":            rate.NewLimiter(2, 2),
	}
}

// HTTPFetcher implements Fetcher with per-host rate limiting and retries on
// transport errors, 429 and 5xx responses.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "aims-sectors/1.0"
	}
	limiters := DefaultRateLimiters()
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: opts.Timeout},
		opts:     opts,
		limiters: limiters,
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err == nil {
		if lim, ok := f.limiters[u.Host]; ok {
			return lim
		}
	}
	return rate.NewLimiter(rate.Inf, 1)
}

// Download fetches the URL and returns the response body. Transport
// errors and transient statuses are retried under resilience.DefaultPolicy
// with MaxRetries attempts; other non-200 statuses fail at once.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	lim := f.limiterFor(rawURL)
	var waitErr error

	policy := resilience.DefaultPolicy()
	policy.MaxAttempts = f.opts.MaxRetries
	policy.OnRetry = resilience.LogRetries(rawURL)
	policy.ShouldRetry = func(err error) bool {
		if waitErr != nil {
			return false
		}
		var se *resilience.StatusError
		if errors.As(err, &se) {
			return se.Transient()
		}
		return true
	}

	body, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (io.ReadCloser, error) {
		if waitErr = lim.Wait(ctx); waitErr != nil {
			return nil, waitErr
		}
		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, &resilience.StatusError{StatusCode: resp.StatusCode, URL: rawURL}
		}
		return resp.Body, nil
	})
	if err == nil {
		return body, nil
	}

	var se *resilience.StatusError
	switch {
	case waitErr != nil:
		return nil, eris.Wrap(err, "http: rate limiter wait")
	case errors.As(err, &se) && !se.Transient():
		return nil, eris.Wrap(err, "http")
	}
	return nil, eris.Wrap(err, "http: all retries exhausted")
}

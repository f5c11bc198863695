// Package fetcher retrieves source pages with bounded retries, per-host
// politeness and robots.txt compliance.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/fingerprint"
	"GenAIMonitor/internal/ports"
)

// Config bounds network behaviour. Zero PolitenessDelay disables the per-host
// delay; RespectRobots must be set explicitly.
type Config struct {
	Timeout         time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	PolitenessDelay time.Duration
	MaxBodyBytes    int64
	UserAgent       string
	RespectRobots   bool
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 5 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "GenAIMonitor/1.0"
	}
}

// HTTPFetcher implements ports.Fetcher over net/http.
type HTTPFetcher struct {
	client *http.Client
	cfg    Config
	robots *RobotsChecker
	hosts  *hostLimiter
	logger *slog.Logger
}

var _ ports.Fetcher = (*HTTPFetcher)(nil)

// New wires an HTTP client; a nil client gets one with cfg.Timeout.
func New(cfg Config, client *http.Client, logger *slog.Logger) *HTTPFetcher {
	cfg.defaults()
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPFetcher{
		client: client,
		cfg:    cfg,
		robots: NewRobotsChecker(client, cfg.UserAgent, 0),
		hosts:  newHostLimiter(cfg.PolitenessDelay),
		logger: logger,
	}
}

var (
	errBadRequest = errors.New("build request")
	// errWaitAborted marks a politeness wait refused because the deadline
	// would pass first.
	errWaitAborted = errors.New("politeness wait aborted")
)

// statusError is a non-2xx response.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.status)
}

type page struct {
	body     []byte
	status   int
	finalURL string
}

// Fetch retrieves src.URL. Transient failures are retried up to MaxAttempts
// requests in total; 4xx (except 429), DNS misses and robots.txt refusals fail
// immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, src domain.Source) (domain.FetchResult, error) {
	const op = "fetch"
	start := time.Now()

	target, err := url.Parse(src.URL)
	if err != nil || target.Host == "" {
		return domain.FetchResult{}, domain.NewError(domain.KindPermanentFetch, op, fmt.Errorf("invalid url %q", src.URL))
	}

	if f.cfg.RespectRobots {
		allowed, err := f.robots.IsAllowed(ctx, target)
		if err != nil {
			return domain.FetchResult{}, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return domain.FetchResult{}, domain.NewError(domain.KindPermanentFetch, op, fmt.Errorf("disallowed by robots.txt"))
		}
		if delay := f.robots.CrawlDelay(target.Host); delay > 0 {
			f.hosts.raise(target.Host, delay)
		}
	}

	attempts := 0
	operation := func() (page, error) {
		if err := f.hosts.wait(ctx, target.Host); err != nil {
			return page{}, backoff.Permanent(fmt.Errorf("%w: %v", errWaitAborted, err))
		}
		attempts++
		p, err := f.get(ctx, src.URL)
		if err != nil && !isTransient(err) {
			return p, backoff.Permanent(err)
		}
		return p, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.cfg.BackoffBase
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.5
	policy.MaxInterval = f.cfg.BackoffMax
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		f.logger.Debug("fetch attempt failed", "source_id", src.ID, "attempt", attempts, "retry_in", wait, "error", err)
	}

	p, err := backoff.RetryNotifyWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(f.cfg.MaxAttempts-1)), ctx),
		notify)

	result := domain.FetchResult{
		SourceID:   src.ID,
		FetchedAt:  start.UTC(),
		HTTPStatus: p.status,
		Duration:   time.Since(start),
		FinalURL:   p.finalURL,
		Attempts:   attempts,
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s %s: %w", op, src.URL, ctxErr)
		}
		if errors.Is(err, errWaitAborted) {
			return result, fmt.Errorf("%s %s: %w: %v", op, src.URL, context.DeadlineExceeded, err)
		}
		if isTransient(err) {
			return result, domain.NewError(domain.KindTransientExhausted, op,
				fmt.Errorf("%d attempts: %w", attempts, err))
		}
		return result, domain.NewError(domain.KindPermanentFetch, op, err)
	}

	result.RawContent = p.body
	result.ContentHash = fingerprint.HashBytes(p.body)
	return result, nil
}

func (f *HTTPFetcher) get(ctx context.Context, pageURL string) (page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return page{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	p := page{status: resp.StatusCode, finalURL: resp.Request.URL.String()}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return p, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return p, fmt.Errorf("read body: %w", err)
	}
	p.body = body
	return p, nil
}

// isTransient reports whether another attempt could succeed. Network errors
// other than unknown hosts are transient, as are 5xx, 408 and 429.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, errBadRequest) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests || se.code == http.StatusRequestTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound
	}

	return true
}

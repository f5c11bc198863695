package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	defaultRobotsTTL = 24 * time.Hour
	maxRobotsBytes   = 512 << 10
)

// RobotsChecker caches parsed robots.txt per host. Missing, unreadable or
// non-2xx robots.txt allows everything.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu    sync.RWMutex
	hosts map[string]robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// NewRobotsChecker returns a checker; ttl <= 0 uses one day.
func NewRobotsChecker(client *http.Client, userAgent string, ttl time.Duration) *RobotsChecker {
	if ttl <= 0 {
		ttl = defaultRobotsTTL
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		hosts:     make(map[string]robotsEntry),
	}
}

// IsAllowed reports whether the user agent may fetch target. The only error
// returned is the context's.
func (r *RobotsChecker) IsAllowed(ctx context.Context, target *url.URL) (bool, error) {
	host := strings.ToLower(target.Host)
	entry, ok := r.cached(host)
	if !ok {
		var err error
		entry, err = r.load(ctx, target.Scheme, host)
		if err != nil {
			return false, err
		}
	}
	if entry.data == nil {
		return true, nil
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return entry.data.TestAgent(path, r.userAgent), nil
}

// CrawlDelay returns the Crawl-delay that applies to the user agent on host,
// or zero when none is cached.
func (r *RobotsChecker) CrawlDelay(host string) time.Duration {
	entry, ok := r.cached(strings.ToLower(host))
	if !ok || entry.data == nil {
		return 0
	}
	group := entry.data.FindGroup(r.userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

func (r *RobotsChecker) cached(host string) (robotsEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.hosts[host]
	if !ok || time.Since(entry.fetchedAt) > r.ttl {
		return robotsEntry{}, false
	}
	return entry, true
}

func (r *RobotsChecker) load(ctx context.Context, scheme, host string) (robotsEntry, error) {
	if scheme == "" {
		scheme = "https"
	}
	entry := robotsEntry{fetchedAt: time.Now()}

	body, status, err := r.fetch(ctx, scheme+"://"+host+"/robots.txt")
	switch {
	case err != nil && ctx.Err() != nil:
		return robotsEntry{}, ctx.Err()
	case err == nil && status >= 200 && status < 300:
		if data, perr := robotstxt.FromBytes(body); perr == nil {
			entry.data = data
		}
	}

	r.mu.Lock()
	r.hosts[host] = entry
	r.mu.Unlock()
	return entry, nil
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

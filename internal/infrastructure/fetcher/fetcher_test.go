package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/fingerprint"
	"GenAIMonitor/internal/logging"
)

func testConfig() Config {
	return Config{
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
		UserAgent:   "GenAIMonitorTest/1.0",
	}
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	body := "<html><body><article>Generative AI launch</article></body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "GenAIMonitorTest/1.0" {
			t.Errorf("unexpected user agent: %s", ua)
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	f := New(testConfig(), server.Client(), logging.Discard())
	res, err := f.Fetch(context.Background(), domain.Source{ID: "s1", URL: server.URL + "/news"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(res.RawContent) != body {
		t.Fatalf("unexpected body: %q", res.RawContent)
	}
	if res.HTTPStatus != http.StatusOK || res.Attempts != 1 || res.SourceID != "s1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.ContentHash != fingerprint.HashBytes([]byte(body)) {
		t.Fatalf("unexpected hash: %s", res.ContentHash)
	}
}

func TestFetchRetriesAreBounded(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := New(testConfig(), server.Client(), logging.Discard())
	res, err := f.Fetch(context.Background(), domain.Source{ID: "s1", URL: server.URL})
	if err == nil {
		t.Fatalf("expected error")
	}
	if kind := domain.KindOf(err); kind != domain.KindTransientExhausted {
		t.Fatalf("unexpected kind: %s (%v)", kind, err)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("expected exactly 3 requests, got %d", got)
	}
	if res.Attempts != 3 {
		t.Fatalf("expected 3 attempts reported, got %d", res.Attempts)
	}
}

func TestFetchRecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := New(testConfig(), server.Client(), logging.Discard())
	res, err := f.Fetch(context.Background(), domain.Source{ID: "s1", URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if res.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", res.Attempts)
	}
}

func TestFetchPermanentFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := New(testConfig(), server.Client(), logging.Discard())
	res, err := f.Fetch(context.Background(), domain.Source{ID: "s1", URL: server.URL + "/gone"})
	if kind := domain.KindOf(err); kind != domain.KindPermanentFetch {
		t.Fatalf("unexpected kind: %s (%v)", kind, err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single request, got %d", hits.Load())
	}
	if res.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", res.HTTPStatus)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	t.Parallel()

	f := New(testConfig(), nil, logging.Discard())
	_, err := f.Fetch(context.Background(), domain.Source{ID: "s1", URL: "not a url"})
	if kind := domain.KindOf(err); kind != domain.KindPermanentFetch {
		t.Fatalf("unexpected kind: %s (%v)", kind, err)
	}
}

func TestFetchHonoursRobots(t *testing.T) {
	t.Parallel()

	var pageHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		_, _ = w.Write([]byte("page"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig()
	cfg.RespectRobots = true
	f := New(cfg, server.Client(), logging.Discard())

	_, err := f.Fetch(context.Background(), domain.Source{ID: "s1", URL: server.URL + "/private/news"})
	if kind := domain.KindOf(err); kind != domain.KindPermanentFetch {
		t.Fatalf("unexpected kind: %s (%v)", kind, err)
	}
	if pageHits.Load() != 0 {
		t.Fatalf("disallowed page was requested")
	}

	if _, err := f.Fetch(context.Background(), domain.Source{ID: "s2", URL: server.URL + "/public/news"}); err != nil {
		t.Fatalf("allowed page failed: %v", err)
	}
}

func TestFetchMissingRobotsAllowsAll(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("page"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig()
	cfg.RespectRobots = true
	f := New(cfg, server.Client(), logging.Discard())
	if _, err := f.Fetch(context.Background(), domain.Source{ID: "s1", URL: server.URL + "/news"}); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.BackoffBase = time.Second
	cfg.BackoffMax = time.Second
	f := New(cfg, server.Client(), logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, domain.Source{ID: "s1", URL: server.URL})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if kind := domain.KindOf(err); kind != domain.KindRunTimeout {
		t.Fatalf("unexpected kind: %s", kind)
	}
}

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"GenAIMonitor/internal/config"
	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/infrastructure/notify"
	"GenAIMonitor/internal/infrastructure/secrets"
	"GenAIMonitor/internal/logging"
)

const articlePage = `<html><head><title>Bank launches assistant</title></head><body>
<nav>Home | About</nav>
<article><h1>Bank launches assistant</h1>
<p>The bank launched a generative AI copilot built on a large language model.</p>
<p>The assistant relies on machine learning to answer customer questions around the clock.</p>
</article></body></html>`

func loadConfig(t *testing.T, sourceURL string) config.Config {
	t.Helper()
	yaml := "database:\n  driver: sqlite\n  dsn: \":memory:\"\n" +
		"fetcher:\n  respectRobots: false\n  politenessDelay: 0s\n  backoffBase: 1ms\n  backoffMax: 2ms\n" +
		"classifier:\n  backend: keyword\n" +
		"sources:\n  - id: bank\n    name: Bank\n    sector: Financial\n    url: " + sourceURL + "\n"
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func TestRunOnceEndToEnd(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer site.Close()

	ctx := context.Background()
	application, err := New(ctx, loadConfig(t, site.URL+"/news"), logging.Discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer application.Close()

	report, err := application.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if report.SourcesAttempted != 1 || report.ArticlesFound != 1 || len(report.SourcesFailed) != 0 {
		t.Fatalf("unexpected first report: %+v", report)
	}

	again, err := application.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce error: %v", err)
	}
	if again.SourcesUnchanged != 1 || again.ArticlesFound != 0 {
		t.Fatalf("unchanged page should not produce articles: %+v", again)
	}

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles", nil))
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Count != 1 {
		t.Fatalf("dashboard should list the stored article: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights", nil))
	var insights domain.Insights
	if err := json.Unmarshal(rec.Body.Bytes(), &insights); err != nil {
		t.Fatalf("decode insights: %v", err)
	}
	if insights.TotalArticles != 1 || len(insights.Sectors) != 1 || insights.Sectors[0].Sector != domain.SectorFinancial {
		t.Fatalf("insights should cover the stored article: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint status %d", rec.Code)
	}

	if got := application.Sources(); len(got) != 1 || got[0].ID != "bank" {
		t.Fatalf("unexpected sources: %+v", got)
	}
}

type mapProvider map[string]string

func (m mapProvider) Secret(_ context.Context, name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", secrets.ErrNotFound
}

func TestReasoningBackendSelection(t *testing.T) {
	ctx := context.Background()
	cc := config.ClassifierConfig{Keywords: []string{"genai"}}

	b, err := reasoningBackend(ctx, cc, mapProvider{})
	if err != nil || b.Name() != "keyword" {
		t.Fatalf("auto without key should fall back to keyword, got %v %v", b, err)
	}

	b, err = reasoningBackend(ctx, cc, mapProvider{secrets.ClassifierAPIKey: "sk"})
	if err != nil || b.Name() != "chatgpt" {
		t.Fatalf("auto with key should pick chatgpt, got %v %v", b, err)
	}

	cc.Backend = "ChatGPT"
	if _, err := reasoningBackend(ctx, cc, mapProvider{}); err == nil {
		t.Fatalf("explicit chatgpt without key should fail")
	}

	cc.Backend = BackendService
	if _, err := reasoningBackend(ctx, cc, mapProvider{}); err == nil {
		t.Fatalf("service backend without endpoint should fail")
	}
	cc.Service.Endpoint = "http://reasoner.local"
	b, err = reasoningBackend(ctx, cc, mapProvider{})
	if err != nil || b.Name() != "service" {
		t.Fatalf("expected service backend, got %v %v", b, err)
	}
}

func TestNotifiersFromConfig(t *testing.T) {
	ctx := context.Background()
	nc := config.NotificationConfig{
		Telegram: config.TelegramConfig{ChatID: "42"},
		Email:    config.EmailConfig{Host: "mail.example.com", Recipient: "ops@example.com", Sender: "bot@example.com"},
	}

	n, err := notifiers(ctx, nc, mapProvider{secrets.TelegramBotToken: "tok"}, logging.Discard())
	if err != nil {
		t.Fatalf("notifiers error: %v", err)
	}
	multi, ok := n.(notify.Multi)
	if !ok || len(multi) != 3 {
		t.Fatalf("expected log, telegram and smtp channels, got %#v", n)
	}

	n, err = notifiers(ctx, config.NotificationConfig{}, mapProvider{}, logging.Discard())
	if err != nil {
		t.Fatalf("notifiers error: %v", err)
	}
	if multi := n.(notify.Multi); len(multi) != 1 {
		t.Fatalf("only the log channel should be active, got %d", len(multi))
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"GenAIMonitor/internal/domain"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Companies = defaultCompanies()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	sources, err := cfg.DomainSources()
	if err != nil {
		t.Fatalf("DomainSources error: %v", err)
	}
	if len(sources) != 30 {
		t.Fatalf("expected 30 default sources, got %d", len(sources))
	}
	if sources[0].ID != "jpmorgan-chase-news" {
		t.Fatalf("unexpected first source id: %s", sources[0].ID)
	}
	if sources[0].Sector != domain.SectorFinancial || !sources[0].Enabled {
		t.Fatalf("unexpected first source: %+v", sources[0])
	}
}

func TestParseReplacesDefaultSources(t *testing.T) {
	t.Parallel()

	raw := []byte(`
database:
  driver: postgres
  dsn: postgres://monitor@db/monitor
fetcher:
  timeout: 5s
  maxAttempts: 4
classifier:
  threshold: 0.8
sources:
  - id: acme-news
    name: Acme
    sector: Retail
    url: https://acme.example.com/news
    keywords: [copilot]
  - name: Globex
    sector: Media
    url: https://globex.example.com/
    enabled: false
`)

	cfg := defaultConfig()
	cfg.Companies = defaultCompanies()
	if err := Parse(raw, &cfg); err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected driver: %s", cfg.Database.Driver)
	}
	if cfg.Fetcher.Timeout != 5*time.Second || cfg.Fetcher.MaxAttempts != 4 {
		t.Fatalf("fetcher overrides not applied: %+v", cfg.Fetcher)
	}
	if cfg.Fetcher.PolitenessDelay != 2*time.Second {
		t.Fatalf("unspecified fields should keep defaults, got %v", cfg.Fetcher.PolitenessDelay)
	}
	if len(cfg.Companies) != 0 {
		t.Fatalf("default companies should be replaced by explicit sources")
	}

	sources, err := cfg.DomainSources()
	if err != nil {
		t.Fatalf("DomainSources error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[1].ID != "globex-globex-example-com" || sources[1].Enabled {
		t.Fatalf("unexpected derived source: %+v", sources[1])
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Classifier.Threshold = 1.5
	cfg.Pipeline.Concurrency = 0
	cfg.Sources = []SourceConfig{
		{ID: "dup", Name: "A", URL: "https://a.example.com"},
		{ID: "dup", Name: "B", URL: "https://b.example.com"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"threshold", "concurrency", "duplicate source id"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got %v", want, err)
		}
	}
}

func TestValidateRejectsBadURL(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Sources = []SourceConfig{{ID: "x", Name: "X", URL: "ftp://x.example.com"}}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "scheme and host") {
		t.Fatalf("expected url error, got %v", err)
	}
}

func TestCronSpec(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":             "0 9 * * *",
		"hourly":       "0 * * * *",
		"Twice_Daily":  "0 9,18 * * *",
		"*/15 * * * *": "*/15 * * * *",
		"@every 1h":    "@every 1h",
	}
	for in, want := range cases {
		if got := (SchedulerConfig{Interval: in}).CronSpec(); got != want {
			t.Fatalf("CronSpec(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadAppliesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.yaml")
	content := "scheduler:\n  interval: hourly\n  timezone: Europe/Paris\nsources:\n  - id: s1\n    name: S1\n    url: https://s1.example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(logLevelEnv, "warn")
	t.Setenv(databaseDriverEnv, "sqlite")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("env override not applied: %s", cfg.Logging.Level)
	}
	if cfg.Scheduler.Location().String() != "Europe/Paris" {
		t.Fatalf("timezone not bound: %s", cfg.Scheduler.Location())
	}
	if cfg.Scheduler.CronSpec() != "0 * * * *" {
		t.Fatalf("unexpected cron spec: %s", cfg.Scheduler.CronSpec())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

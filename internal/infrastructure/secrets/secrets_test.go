package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProviderAliases(t *testing.T) {
	t.Parallel()

	env := map[string]string{"OPENAI_API_KEY": " sk-test ", "CUSTOM_TOKEN": "abc"}
	p := &EnvProvider{lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	got, err := p.Secret(context.Background(), ClassifierAPIKey)
	if err != nil || got != "sk-test" {
		t.Fatalf("alias lookup = %q, %v", got, err)
	}
	if got, _ := p.Secret(context.Background(), "custom_token"); got != "abc" {
		t.Fatalf("upper-cased lookup = %q", got)
	}
	if _, err := p.Secret(context.Background(), DatabaseDSN); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DatabaseDSN), []byte("postgres://db\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	p := NewFileProvider(dir)

	got, err := p.Secret(context.Background(), DatabaseDSN)
	if err != nil || got != "postgres://db" {
		t.Fatalf("file secret = %q, %v", got, err)
	}
	if _, err := p.Secret(context.Background(), SMTPPassword); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file should be ErrNotFound, got %v", err)
	}
	if _, err := p.Secret(context.Background(), "../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("path traversal should be rejected, got %v", err)
	}
}

type countingProvider struct {
	values map[string]string
	calls  int
}

func (p *countingProvider) Secret(_ context.Context, name string) (string, error) {
	p.calls++
	if v, ok := p.values[name]; ok {
		return v, nil
	}
	return "", ErrNotFound
}

func TestChainAndCache(t *testing.T) {
	t.Parallel()

	first := &countingProvider{values: map[string]string{}}
	second := &countingProvider{values: map[string]string{TelegramBotToken: "bot"}}
	cached := NewCached(Chain{first, second})

	for i := 0; i < 3; i++ {
		v, err := cached.Secret(context.Background(), TelegramBotToken)
		if err != nil || v != "bot" {
			t.Fatalf("chain lookup = %q, %v", v, err)
		}
	}
	if second.calls != 1 {
		t.Fatalf("cached value should be reused, provider called %d times", second.calls)
	}

	cached.Reset()
	if _, err := cached.Secret(context.Background(), TelegramBotToken); err != nil {
		t.Fatalf("lookup after reset: %v", err)
	}
	if second.calls != 2 {
		t.Fatalf("reset should force a fresh lookup, calls=%d", second.calls)
	}

	if v, err := Lookup(context.Background(), cached, SMTPPassword); err != nil || v != "" {
		t.Fatalf("Lookup of missing secret = %q, %v", v, err)
	}
}

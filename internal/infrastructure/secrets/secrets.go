// Package secrets resolves credentials from the environment or mounted files.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"GenAIMonitor/internal/ports"
)

// Names of the secrets the monitor resolves.
const (
	ClassifierAPIKey = "classifier_api_key"
	DatabaseDSN      = "database_dsn"
	TelegramBotToken = "telegram_bot_token"
	SMTPPassword     = "smtp_password"
)

// ErrNotFound is returned when no provider knows the secret.
var ErrNotFound = errors.New("secret not found")

var envAliases = map[string][]string{
	ClassifierAPIKey: {"CLASSIFIER_API_KEY", "OPENAI_API_KEY"},
	DatabaseDSN:      {"DATABASE_DSN", "DATABASE_URL"},
	TelegramBotToken: {"TELEGRAM_BOT_TOKEN"},
	SMTPPassword:     {"SMTP_PASSWORD"},
}

// EnvProvider reads secrets from environment variables. Unknown names are
// looked up upper-cased.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

var _ ports.SecretsProvider = (*EnvProvider)(nil)

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

func (p *EnvProvider) Secret(_ context.Context, name string) (string, error) {
	keys, ok := envAliases[name]
	if !ok {
		keys = []string{strings.ToUpper(name)}
	}
	for _, key := range keys {
		if v, ok := p.lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// FileProvider reads one file per secret from dir, as mounted by Docker or
// Kubernetes secrets.
type FileProvider struct {
	dir string
}

var _ ports.SecretsProvider = (*FileProvider)(nil)

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) Secret(_ context.Context, name string) (string, error) {
	if p.dir == "" || name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	raw, err := os.ReadFile(filepath.Join(p.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", name, err)
	}
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return value, nil
}

// Chain asks each provider in order; the first hit wins.
type Chain []ports.SecretsProvider

func (c Chain) Secret(ctx context.Context, name string) (string, error) {
	for _, p := range c {
		v, err := p.Secret(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Cached memoises resolved values until Reset.
type Cached struct {
	next   ports.SecretsProvider
	mu     sync.Mutex
	values map[string]string
}

var _ ports.SecretsProvider = (*Cached)(nil)

func NewCached(next ports.SecretsProvider) *Cached {
	return &Cached{next: next, values: make(map[string]string)}
}

func (c *Cached) Secret(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.values[name]; ok {
		return v, nil
	}
	v, err := c.next.Secret(ctx, name)
	if err != nil {
		return "", err
	}
	c.values[name] = v
	return v, nil
}

// Reset drops cached values so the next lookup hits the providers again.
func (c *Cached) Reset() {
	c.mu.Lock()
	c.values = make(map[string]string)
	c.mu.Unlock()
}

// Lookup returns the secret or "" when it is not configured.
func Lookup(ctx context.Context, p ports.SecretsProvider, name string) (string, error) {
	v, err := p.Secret(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

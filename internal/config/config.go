package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"GenAIMonitor/internal/domain"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "GENAI_MONITOR_CONFIG"
	envFile         = ".env"

	databaseDriverEnv = "DATABASE_DRIVER"
	logLevelEnv       = "LOG_LEVEL"
	logFormatEnv      = "LOG_FORMAT"
	dashboardAddrEnv  = "DASHBOARD_ADDR"
	classifierEnv     = "CLASSIFIER_BACKEND"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	smtpHostEnv       = "SMTP_HOST"
	smtpUserEnv       = "SMTP_USERNAME"
	smtpToEnv         = "SMTP_RECIPIENT"
	secretsDirEnv     = "SECRETS_DIR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Fetcher       FetcherConfig      `yaml:"fetcher"`
	Extractor     ExtractorConfig    `yaml:"extractor"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Notifications NotificationConfig `yaml:"notifications"`
	Dashboard     DashboardConfig    `yaml:"dashboard"`
	Secrets       SecretsConfig      `yaml:"secrets"`
	Companies     []CompanyConfig    `yaml:"companies"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the durable store. Driver is "postgres" or "sqlite".
// An empty DSN is resolved through the secrets provider.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when monitoring passes run.
type SchedulerConfig struct {
	// Interval is a named interval (hourly, daily, ...) or a cron expression.
	Interval   string         `yaml:"interval"`
	Timezone   string         `yaml:"timezone"`
	RunOnStart bool           `yaml:"runOnStart"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

var namedIntervals = map[string]string{
	"hourly":        "0 * * * *",
	"every_2_hours": "0 */2 * * *",
	"every_6_hours": "0 */6 * * *",
	"daily":         "0 9 * * *",
	"twice_daily":   "0 9,18 * * *",
	"weekly":        "0 9 * * 1",
}

// CronSpec turns the configured interval into a cron expression.
func (s SchedulerConfig) CronSpec() string {
	interval := strings.TrimSpace(s.Interval)
	if spec, ok := namedIntervals[strings.ToLower(interval)]; ok {
		return spec
	}
	if interval == "" {
		return namedIntervals["daily"]
	}
	return interval
}

// FetcherConfig bounds network behaviour per source.
type FetcherConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"maxAttempts"`
	BackoffBase     time.Duration `yaml:"backoffBase"`
	BackoffMax      time.Duration `yaml:"backoffMax"`
	PolitenessDelay time.Duration `yaml:"politenessDelay"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	UserAgent       string        `yaml:"userAgent"`
	RespectRobots   bool          `yaml:"respectRobots"`
}

// ExtractorConfig tunes content extraction.
type ExtractorConfig struct {
	MinBodyLength int `yaml:"minBodyLength"`
}

// ClassifierConfig selects and tunes the relevance backend.
type ClassifierConfig struct {
	Backend           string                 `yaml:"backend"`
	Threshold         float64                `yaml:"threshold"`
	MaxInputChars     int                    `yaml:"maxInputChars"`
	MaxAttempts       int                    `yaml:"maxAttempts"`
	BackoffBase       time.Duration          `yaml:"backoffBase"`
	RequestsPerSecond float64                `yaml:"requestsPerSecond"`
	Timeout           time.Duration          `yaml:"timeout"`
	Keywords          []string               `yaml:"keywords"`
	ChatGPT           ChatGPTConfig          `yaml:"chatgpt"`
	Service           ReasoningServiceConfig `yaml:"service"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible chat API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// ReasoningServiceConfig describes a generic HTTP reasoning service.
type ReasoningServiceConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// PipelineConfig bounds a monitoring run.
type PipelineConfig struct {
	Concurrency        int           `yaml:"concurrency"`
	RunTimeout         time.Duration `yaml:"runTimeout"`
	NotifyTimeout      time.Duration `yaml:"notifyTimeout"`
	MaxPendingAttempts int           `yaml:"maxPendingAttempts"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// EmailConfig describes the SMTP relay used for run summaries.
type EmailConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Sender    string `yaml:"sender"`
	Recipient string `yaml:"recipient"`
}

// Enabled reports whether enough is configured to attempt delivery.
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Recipient != ""
}

// DashboardConfig configures the read-only HTTP API.
type DashboardConfig struct {
	Addr string `yaml:"addr"`
}

// SecretsConfig points at file-based secrets (one file per secret name).
type SecretsConfig struct {
	Dir string `yaml:"dir"`
}

// CompanyConfig groups several websites of one company; each website becomes
// a Source.
type CompanyConfig struct {
	Name     string   `yaml:"name"`
	Sector   string   `yaml:"sector"`
	Websites []string `yaml:"websites"`
	Keywords []string `yaml:"keywords"`
	Enabled  *bool    `yaml:"enabled"`
}

// SourceConfig describes a single monitored page.
type SourceConfig struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Sector   string   `yaml:"sector"`
	URL      string   `yaml:"url"`
	Keywords []string `yaml:"keywords"`
	Enabled  *bool    `yaml:"enabled"`
}

// Load reads .env and the YAML configuration (if present) over the defaults and
// applies environment overrides. path overrides GENAI_MONITOR_CONFIG.
func Load(path string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load %s: %v", envFile, err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Parse(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 && len(cfg.Companies) == 0 {
		cfg.Companies = defaultCompanies()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of cfg. Lists in the document replace the
// existing ones.
func Parse(raw []byte, cfg *Config) error {
	var probe struct {
		Companies []CompanyConfig `yaml:"companies"`
		Sources   []SourceConfig  `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return err
	}
	if len(probe.Companies) > 0 || len(probe.Sources) > 0 {
		cfg.Companies = nil
		cfg.Sources = nil
	}
	return yaml.Unmarshal(raw, cfg)
}

func (c *Config) applyEnvOverrides() {
	set := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	set(databaseDriverEnv, &c.Database.Driver)
	set(logLevelEnv, &c.Logging.Level)
	set(logFormatEnv, &c.Logging.Format)
	set(dashboardAddrEnv, &c.Dashboard.Addr)
	set(classifierEnv, &c.Classifier.Backend)
	set(chatGPTModelEnv, &c.Classifier.ChatGPT.Model)
	set(telegramChatIDEnv, &c.Notifications.Telegram.ChatID)
	set(smtpHostEnv, &c.Notifications.Email.Host)
	set(smtpUserEnv, &c.Notifications.Email.Username)
	set(smtpToEnv, &c.Notifications.Email.Recipient)
	set(secretsDirEnv, &c.Secrets.Dir)
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Classifier.Threshold < 0 || c.Classifier.Threshold > 1 {
		errs = append(errs, fmt.Errorf("classifier.threshold must be within [0,1], got %v", c.Classifier.Threshold))
	}
	switch c.Classifier.Backend {
	case "", "chatgpt", "service", "keyword":
	default:
		errs = append(errs, fmt.Errorf("classifier.backend %q is not supported", c.Classifier.Backend))
	}
	if c.Pipeline.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("pipeline.concurrency must be >= 1"))
	}
	if c.Fetcher.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("fetcher.maxAttempts must be >= 1"))
	}
	if c.Classifier.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("classifier.maxAttempts must be >= 1"))
	}

	sources, err := c.DomainSources()
	if err != nil {
		errs = append(errs, err)
	} else if len(sources) == 0 {
		errs = append(errs, fmt.Errorf("at least one source must be configured"))
	}

	return errors.Join(errs...)
}

// DomainSources expands companies and explicit sources into domain.Source values.
func (c Config) DomainSources() ([]domain.Source, error) {
	out := make([]domain.Source, 0, len(c.Sources)+2*len(c.Companies))
	seen := map[string]struct{}{}

	add := func(src domain.Source) error {
		if src.ID == "" {
			return fmt.Errorf("source %q has no id", src.Name)
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("duplicate source id %q", src.ID)
		}
		if err := validateURL(src.URL); err != nil {
			return fmt.Errorf("source %s: %w", src.ID, err)
		}
		seen[src.ID] = struct{}{}
		out = append(out, src)
		return nil
	}

	for _, company := range c.Companies {
		sector, err := domain.ParseSector(company.Sector)
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}
		for _, site := range company.Websites {
			src := domain.Source{
				ID:           sourceID(company.Name, site),
				Name:         company.Name,
				Sector:       sector,
				URL:          site,
				KeywordHints: company.Keywords,
				Enabled:      enabled(company.Enabled),
			}
			if err := add(src); err != nil {
				return nil, err
			}
		}
	}

	for _, sc := range c.Sources {
		sector, err := domain.ParseSector(sc.Sector)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}
		id := sc.ID
		if id == "" {
			id = sourceID(sc.Name, sc.URL)
		}
		src := domain.Source{
			ID:           id,
			Name:         sc.Name,
			Sector:       sector,
			URL:          sc.URL,
			KeywordHints: sc.Keywords,
			Enabled:      enabled(sc.Enabled),
		}
		if err := add(src); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: scheme and host required", raw)
	}
	return nil
}

// sourceID derives a stable slug from the company name and the URL path,
// e.g. "JPMorgan Chase" + ".../news" => "jpmorgan-chase-news".
func sourceID(name, rawURL string) string {
	suffix := ""
	if u, err := url.Parse(rawURL); err == nil {
		path := strings.Trim(u.Path, "/")
		if path == "" {
			suffix = strings.TrimPrefix(u.Hostname(), "www.")
		} else {
			suffix = path
		}
	}
	return slug(name + " " + suffix)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "genai_monitor.db"},
		Scheduler: SchedulerConfig{Interval: "daily", Timezone: defaultTimezone, RunOnStart: true, location: tz},
		Fetcher: FetcherConfig{
			Timeout:         30 * time.Second,
			MaxAttempts:     3,
			BackoffBase:     time.Second,
			BackoffMax:      30 * time.Second,
			PolitenessDelay: 2 * time.Second,
			MaxBodyBytes:    5 << 20,
			UserAgent:       "GenAIMonitor/1.0 (+content monitoring)",
			RespectRobots:   true,
		},
		Extractor: ExtractorConfig{MinBodyLength: 50},
		Classifier: ClassifierConfig{
			Threshold:         0.7,
			MaxInputChars:     4000,
			MaxAttempts:       3,
			BackoffBase:       2 * time.Second,
			RequestsPerSecond: 2,
			Timeout:           30 * time.Second,
			Keywords:          defaultKeywords(),
			ChatGPT: ChatGPTConfig{
				Endpoint: "https://api.openai.com/v1/chat/completions",
				Model:    "gpt-4o-mini",
				SystemPrompt: "You review corporate web content and decide whether it announces or discusses " +
					"generative AI initiatives (LLMs, copilots, assistants, content generation).",
			},
		},
		Pipeline: PipelineConfig{
			Concurrency:        5,
			RunTimeout:         30 * time.Minute,
			NotifyTimeout:      15 * time.Second,
			MaxPendingAttempts: 5,
		},
		Notifications: NotificationConfig{
			Email: EmailConfig{Host: "", Port: 587},
		},
		Dashboard: DashboardConfig{Addr: ":5000"},
	}
}

func defaultKeywords() []string {
	return []string{
		"generative ai", "genai", "gpt", "large language model", "llm",
		"chatgpt", "claude", "artificial intelligence", "machine learning",
		"neural network", "transformer", "diffusion", "stable diffusion",
		"midjourney", "dall-e", "text generation", "image generation",
		"natural language processing", "nlp", "deep learning", "copilot",
	}
}

func defaultCompanies() []CompanyConfig {
	return []CompanyConfig{
		{Name: "JPMorgan Chase", Sector: "Financial", Websites: []string{"https://www.jpmorganchase.com/news", "https://www.jpmorgan.com/insights"},
			Keywords: []string{"artificial intelligence", "machine learning", "digital transformation", "fintech", "automation"}},
		{Name: "Bank of America", Sector: "Financial", Websites: []string{"https://newsroom.bankofamerica.com", "https://about.bankofamerica.com/en/making-an-impact"},
			Keywords: []string{"ai", "digital banking", "technology", "innovation", "automation"}},
		{Name: "Wells Fargo", Sector: "Financial", Websites: []string{"https://newsroom.wf.com", "https://www.wellsfargo.com/about/corporate-responsibility"},
			Keywords: []string{"artificial intelligence", "digital banking", "technology innovation", "customer experience"}},
		{Name: "Goldman Sachs", Sector: "Financial", Websites: []string{"https://www.goldmansachs.com/insights", "https://www.goldmansachs.com/our-firm/history-and-facts"},
			Keywords: []string{"artificial intelligence", "machine learning", "algorithmic trading", "fintech", "digital assets"}},
		{Name: "Morgan Stanley", Sector: "Financial", Websites: []string{"https://www.morganstanley.com/ideas", "https://www.morganstanley.com/about-us-governance"},
			Keywords: []string{"ai", "technology", "digital transformation", "wealth management technology"}},
		{Name: "Target", Sector: "Retail", Websites: []string{"https://corporate.target.com/news-features", "https://corporate.target.com/sustainability-governance"}},
		{Name: "Walmart", Sector: "Retail", Websites: []string{"https://corporate.walmart.com/news", "https://corporate.walmart.com/purpose"}},
		{Name: "The Home Depot", Sector: "Retail", Websites: []string{"https://corporate.homedepot.com/news", "https://ir.homedepot.com"}},
		{Name: "Costco", Sector: "Retail", Websites: []string{"https://investor.costco.com/news-releases", "https://www.costco.com/sustainability.html"}},
		{Name: "Lowe's", Sector: "Retail", Websites: []string{"https://newsroom.lowes.com", "https://corporate.lowes.com"}},
		{Name: "Netflix", Sector: "Media", Websites: []string{"https://about.netflix.com/en/news", "https://about.netflix.com/en"}},
		{Name: "Disney", Sector: "Media", Websites: []string{"https://thewaltdisneycompany.com/news", "https://thewaltdisneycompany.com"}},
		{Name: "Comcast", Sector: "Media", Websites: []string{"https://corporate.comcast.com/news-information", "https://corporate.comcast.com"}},
		{Name: "Warner Bros Discovery", Sector: "Media", Websites: []string{"https://www.wbd.com/newsroom", "https://www.wbd.com"}},
		{Name: "Paramount", Sector: "Media", Websites: []string{"https://www.paramount.com/news", "https://www.paramount.com"}},
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"GenAIMonitor/internal/config"
	"GenAIMonitor/internal/dashboard"
	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/infrastructure/extractor"
	"GenAIMonitor/internal/infrastructure/fetcher"
	"GenAIMonitor/internal/infrastructure/keyword"
	"GenAIMonitor/internal/infrastructure/llm"
	"GenAIMonitor/internal/infrastructure/metrics"
	"GenAIMonitor/internal/infrastructure/ml"
	"GenAIMonitor/internal/infrastructure/notify"
	"GenAIMonitor/internal/infrastructure/scheduler"
	"GenAIMonitor/internal/infrastructure/secrets"
	"GenAIMonitor/internal/infrastructure/storage"
	"GenAIMonitor/internal/infrastructure/telegram"
	"GenAIMonitor/internal/logging"
	"GenAIMonitor/internal/ports"
	"GenAIMonitor/internal/registry"
	"GenAIMonitor/internal/usecase"
)

// Backend names accepted by classifier.backend.
const (
	BackendAuto    = ""
	BackendChatGPT = "chatgpt"
	BackendService = "service"
	BackendKeyword = "keyword"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	secrets   *secrets.Cached
	store     *storage.Store
	registry  *registry.Registry
	metrics   *metrics.Prometheus
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	router    *gin.Engine
}

// New opens the store and builds every component. Close releases the store.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	provider := secrets.NewCached(secretChain(cfg))

	sources, err := cfg.DomainSources()
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(sources)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	spec := cfg.Scheduler.CronSpec()
	if err := scheduler.Validate(spec); err != nil {
		return nil, err
	}

	backend, err := reasoningBackend(ctx, cfg.Classifier, provider)
	if err != nil {
		return nil, err
	}

	notifier, err := notifiers(ctx, cfg.Notifications, provider, baseLogger.With("component", "notify"))
	if err != nil {
		return nil, err
	}

	dsn := cfg.Database.DSN
	if dsn == "" {
		if dsn, err = secrets.Lookup(ctx, provider, secrets.DatabaseDSN); err != nil {
			return nil, err
		}
	}
	store, err := storage.Open(ctx, cfg.Database.Driver, dsn, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, err
	}

	prom := metrics.New()

	fc := cfg.Fetcher
	fetch := fetcher.New(fetcher.Config{
		Timeout:         fc.Timeout,
		MaxAttempts:     fc.MaxAttempts,
		BackoffBase:     fc.BackoffBase,
		BackoffMax:      fc.BackoffMax,
		PolitenessDelay: fc.PolitenessDelay,
		MaxBodyBytes:    fc.MaxBodyBytes,
		UserAgent:       fc.UserAgent,
		RespectRobots:   fc.RespectRobots,
	}, nil, baseLogger.With("component", "fetcher"))

	cc := cfg.Classifier
	baseKeywords := cc.Keywords
	classifier := usecase.NewClassifier(backend, usecase.ClassifierConfig{
		Threshold:         cc.Threshold,
		MaxInputChars:     cc.MaxInputChars,
		MaxAttempts:       cc.MaxAttempts,
		BackoffBase:       cc.BackoffBase,
		RequestsPerSecond: cc.RequestsPerSecond,
		Timeout:           cc.Timeout,
	}, func(text string, hints []string) string {
		return keyword.Summarize(text, slices.Concat(hints, baseKeywords), keyword.DefaultSummaryLength)
	}, baseLogger.With("component", "classifier", "backend", backend.Name()))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:   reg,
		Fetcher:    fetch,
		Extractor:  extractor.New(extractor.Config{MinBodyLength: cfg.Extractor.MinBodyLength}),
		Classifier: classifier,
		Store:      store,
		Notifier:   notifier,
		Metrics:    prom,
		Logger:     baseLogger.With("component", "pipeline"),
	}, usecase.PipelineConfig{
		Concurrency:        cfg.Pipeline.Concurrency,
		RunTimeout:         cfg.Pipeline.RunTimeout,
		NotifyTimeout:      cfg.Pipeline.NotifyTimeout,
		MaxPendingAttempts: cfg.Pipeline.MaxPendingAttempts,
	})

	cron := scheduler.NewCronScheduler(spec, cfg.Scheduler.Location(), cfg.Scheduler.RunOnStart, baseLogger)

	if !strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := dashboard.NewRouter(dashboard.Deps{
		Reader:   store,
		Sources:  reg,
		Health:   store,
		Insights: usecase.NewSectorInsights(store, keyword.DefaultThemes(), keyword.MaturityLevels(), nil),
		Metrics:  prom.Handler(),
		Logger:   baseLogger.With("component", "dashboard"),
	})

	baseLogger.Info("application ready",
		"sources", len(reg.List()),
		"enabled", len(reg.Enabled()),
		"backend", backend.Name(),
		"driver", cfg.Database.Driver,
		"schedule", spec,
	)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		secrets:   provider,
		store:     store,
		registry:  reg,
		metrics:   prom,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(cron, pipeline, baseLogger.With("component", "scheduler")),
		router:    router,
	}, nil
}

// RunOnce performs a single monitoring pass.
func (a *Application) RunOnce(ctx context.Context) (domain.RunReport, error) {
	return a.pipeline.Run(ctx)
}

// Serve runs the cron scheduler and the dashboard until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:              a.cfg.Dashboard.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("dashboard listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("dashboard shutdown", "error", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", "error", err)
	}
	if serveErr != nil {
		return fmt.Errorf("dashboard: %w", serveErr)
	}
	return nil
}

// Sources lists the registry in configuration order.
func (a *Application) Sources() []domain.Source {
	return a.registry.List()
}

// Handler exposes the dashboard router.
func (a *Application) Handler() http.Handler {
	return a.router
}

// Close releases the store and forgets cached secrets.
func (a *Application) Close() error {
	a.secrets.Reset()
	return a.store.Close()
}

func secretChain(cfg config.Config) secrets.Chain {
	chain := secrets.Chain{secrets.NewEnvProvider()}
	if cfg.Secrets.Dir != "" {
		chain = append(chain, secrets.NewFileProvider(cfg.Secrets.Dir))
	}
	return chain
}

// reasoningBackend picks the relevance backend. Auto selects ChatGPT when an
// API key resolves and the offline keyword scorer otherwise.
func reasoningBackend(ctx context.Context, cc config.ClassifierConfig, provider ports.SecretsProvider) (ports.ReasoningService, error) {
	resolveKey := func(configured string) (string, error) {
		if configured != "" {
			return configured, nil
		}
		return secrets.Lookup(ctx, provider, secrets.ClassifierAPIKey)
	}

	name := strings.ToLower(strings.TrimSpace(cc.Backend))
	switch name {
	case BackendKeyword:
		return keyword.New(cc.Keywords), nil
	case BackendService:
		if cc.Service.Endpoint == "" {
			return nil, fmt.Errorf("classifier.service.endpoint is required for the service backend")
		}
		key, err := resolveKey(cc.Service.APIKey)
		if err != nil {
			return nil, err
		}
		return ml.NewClient(cc.Service.Endpoint, key, nil), nil
	case BackendChatGPT, BackendAuto:
		key, err := resolveKey(cc.ChatGPT.APIKey)
		if err != nil {
			return nil, err
		}
		if key == "" {
			if name != BackendAuto {
				return nil, fmt.Errorf("chatgpt backend needs %s", secrets.ClassifierAPIKey)
			}
			return keyword.New(cc.Keywords), nil
		}
		gpt := cc.ChatGPT
		gpt.APIKey = key
		return llm.NewChatGPTClient(gpt, nil), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cc.Backend)
	}
}

// notifiers assembles every configured channel; the log notifier is always on.
func notifiers(ctx context.Context, nc config.NotificationConfig, provider ports.SecretsProvider, logger *slog.Logger) (ports.Notifier, error) {
	out := notify.Multi{notify.NewLog(logger)}

	token := nc.Telegram.BotToken
	if token == "" {
		var err error
		if token, err = secrets.Lookup(ctx, provider, secrets.TelegramBotToken); err != nil {
			return nil, err
		}
	}
	if token != "" && nc.Telegram.ChatID != "" {
		out = append(out, telegram.NewNotifier(token, nc.Telegram.ChatID))
	}

	if nc.Email.Enabled() {
		password := nc.Email.Password
		if password == "" {
			var err error
			if password, err = secrets.Lookup(ctx, provider, secrets.SMTPPassword); err != nil {
				return nil, err
			}
		}
		out = append(out, notify.NewSMTP(notify.SMTPConfig{
			Host:      nc.Email.Host,
			Port:      nc.Email.Port,
			Username:  nc.Email.Username,
			Password:  password,
			Sender:    nc.Email.Sender,
			Recipient: nc.Email.Recipient,
		}))
	}
	return out, nil
}

package ports

import (
	"context"
	"time"

	"GenAIMonitor/internal/domain"
)

// SourceRegistry exposes the configured list of monitored sources.
type SourceRegistry interface {
	Enabled() []domain.Source
	List() []domain.Source
	Get(id string) (domain.Source, bool)
}

// Fetcher retrieves the raw content of a source.
type Fetcher interface {
	Fetch(ctx context.Context, src domain.Source) (domain.FetchResult, error)
}

// Extractor turns raw markup into clean article text.
type Extractor interface {
	Extract(raw []byte, pageURL string) (domain.ExtractedDoc, error)
}

// ReasoningService is the external relevance backend.
type ReasoningService interface {
	Name() string
	Assess(ctx context.Context, req domain.ReasoningRequest) (domain.ReasoningResponse, error)
}

// Classifier decides topical relevance of an extracted document.
type Classifier interface {
	Classify(ctx context.Context, doc domain.ExtractedDoc, src domain.Source) (domain.ClassificationResult, error)
}

// ChangeStore tracks the last content fingerprint per source.
type ChangeStore interface {
	ShouldProcess(ctx context.Context, sourceID, contentHash string) (bool, error)
	Record(ctx context.Context, rec domain.ChangeRecord) error
	ChangeRecord(ctx context.Context, sourceID string) (domain.ChangeRecord, error)
}

// ArticleRepository persists accepted articles, unique per (source, hash).
type ArticleRepository interface {
	UpsertArticle(ctx context.Context, article domain.Article) (bool, error)
}

// RunRepository appends completed run reports.
type RunRepository interface {
	AppendRunReport(ctx context.Context, report domain.RunReport) error
}

// Store is the durable store used by a monitoring run.
type Store interface {
	ChangeStore
	ArticleRepository
	RunRepository
	Ping(ctx context.Context) error
}

// DashboardReader is the read-only query surface used by the dashboard.
type DashboardReader interface {
	ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)
	ListRunReports(ctx context.Context, limit int) ([]domain.RunReport, error)
	GetRunReport(ctx context.Context, runID string) (domain.RunReport, error)
	Stats(ctx context.Context, now time.Time) (domain.DashboardStats, error)
}

// Notifier receives completed run reports.
type Notifier interface {
	NotifyRun(ctx context.Context, report domain.RunReport) error
}

// SecretsProvider resolves credentials by name.
type SecretsProvider interface {
	Secret(ctx context.Context, name string) (string, error)
}

// Metrics observes pipeline activity.
type Metrics interface {
	ObserveFetch(status int, attempts int, d time.Duration)
	ObserveSource(outcome string)
	ObserveClassification(result string)
	ObserveArticle(sector domain.Sector)
	ObserveRun(status string, d time.Duration)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

// PipelineDeps wires all driven adapters into the monitoring pipeline.
type PipelineDeps struct {
	Registry   ports.SourceRegistry
	Fetcher    ports.Fetcher
	Extractor  ports.Extractor
	Classifier ports.Classifier
	Store      ports.Store
	Notifier   ports.Notifier
	Metrics    ports.Metrics
	Logger     *slog.Logger

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

// PipelineConfig bounds a run.
type PipelineConfig struct {
	Concurrency        int
	RunTimeout         time.Duration
	NotifyTimeout      time.Duration
	MaxPendingAttempts int
}

// Pipeline runs one monitoring pass over every enabled source.
type Pipeline struct {
	registry   ports.SourceRegistry
	fetcher    ports.Fetcher
	extractor  ports.Extractor
	classifier ports.Classifier
	store      ports.Store
	notifier   ports.Notifier
	metrics    ports.Metrics
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	cfg        PipelineConfig

	locks *keyedMutex

	mu        sync.Mutex
	active    int
	completed bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 15 * time.Second
	}
	if cfg.MaxPendingAttempts < 1 {
		cfg.MaxPendingAttempts = 5
	}

	p := &Pipeline{
		registry:   deps.Registry,
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		store:      deps.Store,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
		newID:      deps.NewID,
		cfg:        cfg,
		locks:      newKeyedMutex(),
	}
	if p.metrics == nil {
		p.metrics = nopMetrics{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	if p.newID == nil {
		p.newID = newUUID
	}
	return p
}

// State reports whether a run is in flight, has completed, or never started.
func (p *Pipeline) State() domain.RunState {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.active > 0:
		return domain.RunRunning
	case p.completed:
		return domain.RunCompleted
	default:
		return domain.RunIdle
	}
}

func (p *Pipeline) begin() {
	p.mu.Lock()
	p.active++
	p.mu.Unlock()
}

func (p *Pipeline) finish() {
	p.mu.Lock()
	p.active--
	p.completed = true
	p.mu.Unlock()
}

// Run executes one pass. Per-source failures are recorded in the report; the
// only error returned is an unavailable store at start.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	p.begin()
	defer p.finish()

	report := domain.RunReport{RunID: p.newID(), StartedAt: p.now()}
	logger := p.logger.With("run_id", report.RunID)

	if err := p.store.Ping(ctx); err != nil {
		report.FinishedAt = p.now()
		p.metrics.ObserveRun("failed", report.Duration())
		logger.Error("store unavailable, run aborted", "error", err)
		return report, fmt.Errorf("store unavailable: %w", err)
	}

	sources := p.registry.Enabled()
	logger.Info("run started", "sources", len(sources), "concurrency", p.cfg.Concurrency)

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
	}
	defer cancel()

	outcomes := make([]sourceOutcome, len(sources))
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = p.processSource(runCtx, logger, src)
			return nil
		})
	}
	_ = g.Wait()

	report.SourcesAttempted = len(sources)
	for _, out := range outcomes {
		if out.failure != nil {
			report.SourcesFailed = append(report.SourcesFailed, *out.failure)
			continue
		}
		report.SourcesSucceeded++
		if out.unchanged {
			report.SourcesUnchanged++
		}
		if out.article != nil {
			report.NewArticles = append(report.NewArticles, *out.article)
		}
	}
	report.ArticlesFound = len(report.NewArticles)
	report.FinishedAt = p.now()

	p.publish(ctx, logger, report)

	p.metrics.ObserveRun("completed", report.Duration())
	logger.Info("run completed",
		"attempted", report.SourcesAttempted,
		"succeeded", report.SourcesSucceeded,
		"failed", len(report.SourcesFailed),
		"unchanged", report.SourcesUnchanged,
		"articles", report.ArticlesFound,
		"duration", report.Duration())

	return report, nil
}

// publish appends the report and hands it to the notifier. Neither failure
// affects the run; both outlive the run deadline.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, report domain.RunReport) {
	base := context.WithoutCancel(ctx)

	storeCtx, cancel := context.WithTimeout(base, p.cfg.NotifyTimeout)
	if err := p.store.AppendRunReport(storeCtx, report); err != nil {
		logger.Error("append run report failed", "error", err)
	}
	cancel()

	if p.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(base, p.cfg.NotifyTimeout)
	defer cancel()
	if err := p.notifier.NotifyRun(notifyCtx, report); err != nil {
		logger.Warn("notify run failed", "error", err)
	}
}

type sourceOutcome struct {
	failure   *domain.SourceFailure
	unchanged bool
	article   *domain.Article
}

// processSource runs Fetch, Extract, Dedup, Classify and Persist for one
// source, in that order, holding the source's lock throughout.
func (p *Pipeline) processSource(ctx context.Context, runLogger *slog.Logger, src domain.Source) sourceOutcome {
	logger := runLogger.With("source_id", src.ID)

	fail := func(stage domain.Stage, err error) sourceOutcome {
		kind := domain.KindOf(err)
		if ctx.Err() != nil {
			kind = domain.KindRunTimeout
		}
		p.metrics.ObserveSource(string(kind))
		logger.Warn("source failed", "stage", stage, "reason", kind, "error", err)
		return sourceOutcome{failure: &domain.SourceFailure{
			SourceID: src.ID,
			Name:     src.Name,
			Stage:    stage,
			Reason:   kind,
			Detail:   err.Error(),
		}}
	}

	unlock, err := p.locks.lock(ctx, src.ID)
	if err != nil {
		return fail(domain.StageFetching, err)
	}
	defer unlock()

	if err := ctx.Err(); err != nil {
		return fail(domain.StageFetching, err)
	}

	logger.Debug("fetching", "stage", domain.StageFetching, "url", src.URL)
	res, err := p.fetcher.Fetch(ctx, src)
	p.metrics.ObserveFetch(res.HTTPStatus, res.Attempts, res.Duration)
	if err != nil {
		return fail(domain.StageFetching, err)
	}

	pageURL := res.FinalURL
	if pageURL == "" {
		pageURL = src.URL
	}

	doc, err := p.extractor.Extract(res.RawContent, pageURL)
	if err != nil {
		var pe *domain.PipelineError
		if domain.KindOf(err) == domain.KindExtractionEmpty && errors.As(err, &pe) && pe.Hash != "" {
			p.record(ctx, logger, src.ID, pe.Hash, domain.ChangeProcessed, 0)
			p.metrics.ObserveSource("empty")
			logger.Info("no content extracted", "stage", domain.StageExtracting, "error", err)
			return sourceOutcome{unchanged: true}
		}
		return fail(domain.StageExtracting, err)
	}

	process, err := p.store.ShouldProcess(ctx, src.ID, doc.ContentHash)
	if err != nil {
		return fail(domain.StageDeduping, err)
	}
	if !process {
		p.record(ctx, logger, src.ID, doc.ContentHash, domain.ChangeProcessed, 0)
		p.metrics.ObserveSource("unchanged")
		logger.Debug("content unchanged", "stage", domain.StageDeduping)
		return sourceOutcome{unchanged: true}
	}

	result, err := p.classifier.Classify(ctx, doc, src)
	if err != nil {
		if domain.KindOf(err) == domain.KindClassificationUnavailable && ctx.Err() == nil {
			p.markPending(ctx, logger, src.ID, doc.ContentHash)
			p.metrics.ObserveClassification("unavailable")
		}
		return fail(domain.StageClassifying, err)
	}
	if result.Relevant {
		p.metrics.ObserveClassification("relevant")
	} else {
		p.metrics.ObserveClassification("irrelevant")
	}
	logger.Debug("classified", "stage", domain.StageClassifying, "score", result.Score, "relevant", result.Relevant, "backend", result.Backend)

	var out sourceOutcome
	if result.Relevant {
		article := domain.Article{
			ID:             p.newID(),
			SourceID:       src.ID,
			Title:          doc.Title,
			BodyText:       doc.BodyText,
			Summary:        result.Summary,
			URL:            pageURL,
			PublishedAt:    doc.PublishedAt,
			DiscoveredAt:   p.now(),
			ContentHash:    doc.ContentHash,
			RelevanceScore: result.Score,
			Sector:         src.Sector,
		}
		inserted, err := p.store.UpsertArticle(ctx, article)
		if err != nil {
			return fail(domain.StagePersisting, err)
		}
		if inserted {
			p.metrics.ObserveArticle(src.Sector)
			logger.Info("new article", "stage", domain.StagePersisting, "title", article.Title, "score", article.RelevanceScore)
			out.article = &article
		}
	}

	p.record(ctx, logger, src.ID, doc.ContentHash, domain.ChangeProcessed, 0)
	p.metrics.ObserveSource("succeeded")
	return out
}

// markPending keeps the hash eligible for classification on the next run
// until MaxPendingAttempts is reached.
func (p *Pipeline) markPending(ctx context.Context, logger *slog.Logger, sourceID, hash string) {
	attempts := 1
	prev, err := p.store.ChangeRecord(ctx, sourceID)
	switch {
	case err == nil:
		if prev.LastContentHash == hash && prev.Status == domain.ChangeClassificationPending {
			attempts = prev.PendingAttempts + 1
		}
	case !errors.Is(err, domain.ErrNotFound):
		logger.Warn("load change record failed", "error", err)
	}

	if attempts >= p.cfg.MaxPendingAttempts {
		logger.Warn("classification still unavailable, giving up on content", "attempts", attempts, "content_hash", hash)
		p.record(ctx, logger, sourceID, hash, domain.ChangeProcessed, attempts)
		return
	}
	p.record(ctx, logger, sourceID, hash, domain.ChangeClassificationPending, attempts)
}

// record updates the change record. Failures are logged only; the next run
// may reprocess the same content, which persistence absorbs.
func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, sourceID, hash string, status domain.ChangeStatus, attempts int) {
	err := p.store.Record(ctx, domain.ChangeRecord{
		SourceID:        sourceID,
		LastContentHash: hash,
		LastCheckedAt:   p.now(),
		Status:          status,
		PendingAttempts: attempts,
	})
	if err != nil {
		logger.Warn("record change failed", "stage", domain.StageDeduping, "error", err)
	}
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type nopMetrics struct{}

func (nopMetrics) ObserveFetch(int, int, time.Duration) {}
func (nopMetrics) ObserveSource(string)                 {}
func (nopMetrics) ObserveClassification(string)         {}
func (nopMetrics) ObserveArticle(domain.Sector)         {}
func (nopMetrics) ObserveRun(string, time.Duration)     {}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/cenkalti/backoff/v4"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/fingerprint"
	"GenAIMonitor/internal/ports"
)

// errWaitAborted marks a rate-limiter wait refused because the deadline
// would pass first.
var errWaitAborted = errors.New("rate limiter wait aborted")

// SummaryFunc produces a fallback summary when the backend returns none.
type SummaryFunc func(text string, hints []string) string

// ClassifierConfig tunes relevance decisions and calls to the backend.
type ClassifierConfig struct {
	Threshold         float64
	MaxInputChars     int
	MaxAttempts       int
	BackoffBase       time.Duration
	RequestsPerSecond float64
	Timeout           time.Duration
}

// RelevanceClassifier implements ports.Classifier on top of a reasoning
// backend with retries, rate limiting and a fixed threshold.
type RelevanceClassifier struct {
	backend   ports.ReasoningService
	cfg       ClassifierConfig
	limiter   *rate.Limiter
	summarize SummaryFunc
	policy    *bluemonday.Policy
	logger    *slog.Logger
}

var _ ports.Classifier = (*RelevanceClassifier)(nil)

// NewClassifier wires a backend. A non-positive RequestsPerSecond disables
// rate limiting.
func NewClassifier(backend ports.ReasoningService, cfg ClassifierConfig, summarize SummaryFunc, logger *slog.Logger) *RelevanceClassifier {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 4000
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &RelevanceClassifier{
		backend:   backend,
		cfg:       cfg,
		limiter:   limiter,
		summarize: summarize,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Classify scores doc against the source's hints. A document is relevant iff
// its score is at least the threshold. When the backend stays unavailable
// after all attempts the error is classification-unavailable.
func (c *RelevanceClassifier) Classify(ctx context.Context, doc domain.ExtractedDoc, src domain.Source) (domain.ClassificationResult, error) {
	const op = "classify"

	hints := src.Hints()
	req := domain.ReasoningRequest{
		Title: doc.Title,
		Text:  truncateWords(doc.BodyText, c.cfg.MaxInputChars),
		Hints: hints,
	}

	attempts := 0
	operation := func() (domain.ReasoningResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.ReasoningResponse{}, backoff.Permanent(fmt.Errorf("%w: %v", errWaitAborted, err))
		}
		attempts++

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, err := c.backend.Assess(callCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return resp, backoff.Permanent(ctx.Err())
			}
			return resp, err
		}
		if err := validate(resp); err != nil {
			return resp, err
		}
		return resp, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.BackoffBase
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.5
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		c.logger.Debug("reasoning call failed", "backend", c.backend.Name(), "source_id", src.ID, "attempt", attempts, "retry_in", wait, "error", err)
	}

	resp, err := backoff.RetryNotifyWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.MaxAttempts-1)), ctx),
		notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ClassificationResult{}, fmt.Errorf("%s: %w", op, ctxErr)
		}
		if errors.Is(err, errWaitAborted) {
			return domain.ClassificationResult{}, fmt.Errorf("%s: %w: %v", op, context.DeadlineExceeded, err)
		}
		return domain.ClassificationResult{}, domain.NewError(domain.KindClassificationUnavailable, op,
			fmt.Errorf("%s after %d attempts: %w", c.backend.Name(), attempts, err))
	}

	score := resolveScore(resp)
	summary := c.clean(resp.Summary)
	if summary == "" && c.summarize != nil {
		summary = c.summarize(doc.BodyText, hints)
	}

	return domain.ClassificationResult{
		Score:    score,
		Relevant: score >= c.cfg.Threshold,
		Summary:  summary,
		Backend:  c.backend.Name(),
	}, nil
}

func (c *RelevanceClassifier) clean(s string) string {
	return fingerprint.Normalize(html.UnescapeString(c.policy.Sanitize(s)))
}

// validate rejects verdicts that carry neither a usable score nor a boolean.
func validate(resp domain.ReasoningResponse) error {
	if resp.Score == nil {
		if resp.Relevant == nil {
			return errors.New("verdict carries no score")
		}
		return nil
	}
	s := *resp.Score
	if math.IsNaN(s) || s < 0 || s > 1 {
		return fmt.Errorf("score %v outside [0,1]", s)
	}
	return nil
}

// resolveScore prefers an explicit score; a bare verdict maps to 1 or 0.
func resolveScore(resp domain.ReasoningResponse) float64 {
	if resp.Score != nil {
		return *resp.Score
	}
	if resp.Relevant != nil && *resp.Relevant {
		return 1
	}
	return 0
}

// truncateWords cuts text to at most limit runes, backing off to the last
// word boundary when the cut falls inside a word.
func truncateWords(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := runes[:limit]
	if !unicode.IsSpace(runes[limit]) {
		for i := len(cut) - 1; i > limit/2; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimSpace(string(cut))
}

// Package notify delivers completed run reports to operators.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

// Multi fans a report out to every notifier and joins their errors.
type Multi []ports.Notifier

func (m Multi) NotifyRun(ctx context.Context, report domain.RunReport) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyRun(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes the run summary to the structured log.
type Log struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Log)(nil)

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) NotifyRun(_ context.Context, report domain.RunReport) error {
	l.logger.Info("run summary",
		"run_id", report.RunID,
		"attempted", report.SourcesAttempted,
		"succeeded", report.SourcesSucceeded,
		"unchanged", report.SourcesUnchanged,
		"failed", len(report.SourcesFailed),
		"articles", report.ArticlesFound,
		"duration", report.Duration(),
	)
	for _, a := range report.NewArticles {
		l.logger.Info("new article", "run_id", report.RunID, "source_id", a.SourceID, "title", a.Title, "url", a.URL)
	}
	return nil
}

// Subject is the email subject line for a run.
func Subject(report domain.RunReport) string {
	return fmt.Sprintf("GenAI monitor: %d new articles (%s)", report.ArticlesFound, report.StartedAt.Format("2006-01-02 15:04"))
}

// PlainText renders the report as a plain-text message body.
func PlainText(report domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s finished in %s.\n\n", report.RunID, report.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Sources attempted: %d\n", report.SourcesAttempted)
	fmt.Fprintf(&b, "Sources succeeded: %d\n", report.SourcesSucceeded)
	fmt.Fprintf(&b, "Sources unchanged: %d\n", report.SourcesUnchanged)
	fmt.Fprintf(&b, "Sources failed:    %d\n", len(report.SourcesFailed))
	fmt.Fprintf(&b, "New articles:      %d\n", report.ArticlesFound)

	if len(report.NewArticles) > 0 {
		b.WriteString("\nNew GenAI articles\n")
		for _, a := range report.NewArticles {
			fmt.Fprintf(&b, "\n- %s [%s]\n  %s\n", a.Title, a.Sector, a.URL)
			if a.Summary != "" {
				fmt.Fprintf(&b, "  %s\n", a.Summary)
			}
		}
	}

	if len(report.SourcesFailed) > 0 {
		b.WriteString("\nFailures\n")
		for _, f := range report.SourcesFailed {
			fmt.Fprintf(&b, "- %s (%s) at %s: %s\n", f.SourceID, f.Reason, f.Stage, f.Detail)
		}
	}
	return b.String()
}

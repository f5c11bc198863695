// Package storage persists change records, articles and run reports in
// PostgreSQL or SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	recentWindow     = 7 * 24 * time.Hour
)

var articleColumns = []string{
	"id", "source_id", "sector", "title", "body_text", "summary", "url",
	"published_at", "discovered_at", "content_hash", "relevance_score",
}

var runColumns = []string{
	"run_id", "started_at", "finished_at", "sources_attempted", "sources_succeeded",
	"sources_unchanged", "articles_found", "failures",
}

// Store implements the pipeline and dashboard persistence ports.
type Store struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger *slog.Logger
}

var (
	_ ports.Store           = (*Store)(nil)
	_ ports.DashboardReader = (*Store)(nil)
)

// New wraps an open database. dialect selects the placeholder style.
func New(db *sql.DB, dialect string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	var format sq.PlaceholderFormat = sq.Question
	if dialect == DriverPostgres {
		format = sq.Dollar
	}
	return &Store{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(format),
		logger: logger,
	}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.NewError(domain.KindStorage, "ping", err)
	}
	return nil
}

// ShouldProcess reports whether the content behind hash still needs work: it
// is new, changed, or was left pending classification.
func (s *Store) ShouldProcess(ctx context.Context, sourceID, contentHash string) (bool, error) {
	rec, err := s.ChangeRecord(ctx, sourceID)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return rec.LastContentHash != contentHash || rec.Status != domain.ChangeProcessed, nil
}

// ChangeRecord returns the stored record or an error wrapping
// domain.ErrNotFound.
func (s *Store) ChangeRecord(ctx context.Context, sourceID string) (domain.ChangeRecord, error) {
	const op = "load change record"

	query, args, err := s.sb.
		Select("source_id", "last_content_hash", "last_checked_at", "status", "pending_attempts").
		From("change_records").
		Where(sq.Eq{"source_id": sourceID}).
		ToSql()
	if err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("%s: build: %w", op, err)
	}

	var (
		rec     domain.ChangeRecord
		checked int64
		status  string
	)
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&rec.SourceID, &rec.LastContentHash, &checked, &status, &rec.PendingAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChangeRecord{}, fmt.Errorf("change record %s: %w", sourceID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ChangeRecord{}, domain.NewError(domain.KindStorage, op, err)
	}

	rec.LastCheckedAt = fromMillis(checked)
	rec.Status = domain.ChangeStatus(status)
	return rec, nil
}

// Record upserts the change record of a source.
func (s *Store) Record(ctx context.Context, rec domain.ChangeRecord) error {
	const op = "record change"

	if rec.Status == "" {
		rec.Status = domain.ChangeProcessed
	}
	query, args, err := s.sb.
		Insert("change_records").
		Columns("source_id", "last_content_hash", "last_checked_at", "status", "pending_attempts").
		Values(rec.SourceID, rec.LastContentHash, toMillis(rec.LastCheckedAt), string(rec.Status), rec.PendingAttempts).
		Suffix(`ON CONFLICT (source_id) DO UPDATE SET
			last_content_hash = excluded.last_content_hash,
			last_checked_at = excluded.last_checked_at,
			status = excluded.status,
			pending_attempts = excluded.pending_attempts`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build: %w", op, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.NewError(domain.KindStorage, op, err)
	}
	return nil
}

// UpsertArticle inserts the article unless (source_id, content_hash) already
// exists, in which case only the relevance metadata is refreshed. It reports
// whether a new row was created.
func (s *Store) UpsertArticle(ctx context.Context, a domain.Article) (bool, error) {
	const op = "upsert article"

	var published any
	if a.PublishedAt != nil {
		published = toMillis(*a.PublishedAt)
	}

	query, args, err := s.sb.
		Insert("articles").
		Columns(articleColumns...).
		Values(a.ID, a.SourceID, string(a.Sector), a.Title, a.BodyText, a.Summary, a.URL,
			published, toMillis(a.DiscoveredAt), a.ContentHash, a.RelevanceScore).
		Suffix("ON CONFLICT (source_id, content_hash) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: build: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, domain.NewError(domain.KindStorage, op, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, domain.NewError(domain.KindStorage, op, err)
	}
	if inserted > 0 {
		return true, nil
	}

	query, args, err = s.sb.
		Update("articles").
		Set("relevance_score", a.RelevanceScore).
		Set("summary", a.Summary).
		Where(sq.Eq{"source_id": a.SourceID, "content_hash": a.ContentHash}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: build update: %w", op, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return false, domain.NewError(domain.KindStorage, op, err)
	}
	s.logger.Debug("article already stored", "source_id", a.SourceID, "content_hash", a.ContentHash)
	return false, nil
}

// AppendRunReport stores a completed run. Reports are never rewritten.
func (s *Store) AppendRunReport(ctx context.Context, r domain.RunReport) error {
	const op = "append run report"

	failures := r.SourcesFailed
	if failures == nil {
		failures = []domain.SourceFailure{}
	}
	encoded, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("%s: encode failures: %w", op, err)
	}

	query, args, err := s.sb.
		Insert("run_reports").
		Columns(runColumns...).
		Values(r.RunID, toMillis(r.StartedAt), toMillis(r.FinishedAt), r.SourcesAttempted,
			r.SourcesSucceeded, r.SourcesUnchanged, r.ArticlesFound, string(encoded)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build: %w", op, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.NewError(domain.KindStorage, op, err)
	}
	return nil
}

// ListArticles returns the newest articles matching filter.
func (s *Store) ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	const op = "list articles"

	builder := s.sb.Select(articleColumns...).
		From("articles").
		OrderBy("discovered_at DESC", "id").
		Limit(uint64(clampLimit(filter.Limit)))
	if filter.Sector != "" {
		builder = builder.Where(sq.Eq{"sector": string(filter.Sector)})
	}
	if filter.SourceID != "" {
		builder = builder.Where(sq.Eq{"source_id": filter.SourceID})
	}
	if !filter.Since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"discovered_at": toMillis(filter.Since)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build: %w", op, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, op, err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, domain.NewError(domain.KindStorage, op, err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewError(domain.KindStorage, op, err)
	}
	return articles, nil
}

// ListRunReports returns the most recent runs first.
func (s *Store) ListRunReports(ctx context.Context, limit int) ([]domain.RunReport, error) {
	const op = "list run reports"

	query, args, err := s.sb.Select(runColumns...).
		From("run_reports").
		OrderBy("started_at DESC").
		Limit(uint64(clampLimit(limit))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build: %w", op, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, op, err)
	}
	defer rows.Close()

	var reports []domain.RunReport
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, domain.NewError(domain.KindStorage, op, err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewError(domain.KindStorage, op, err)
	}
	return reports, nil
}

// GetRunReport loads one run or returns an error wrapping domain.ErrNotFound.
func (s *Store) GetRunReport(ctx context.Context, runID string) (domain.RunReport, error) {
	const op = "get run report"

	query, args, err := s.sb.Select(runColumns...).
		From("run_reports").
		Where(sq.Eq{"run_id": runID}).
		ToSql()
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("%s: build: %w", op, err)
	}

	r, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunReport{}, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.RunReport{}, domain.NewError(domain.KindStorage, op, err)
	}
	return r, nil
}

// Stats aggregates article counts for the dashboard.
func (s *Store) Stats(ctx context.Context, now time.Time) (domain.DashboardStats, error) {
	const op = "stats"

	stats := domain.DashboardStats{ArticlesBySector: map[domain.Sector]int{}}

	query, args, err := s.sb.Select("COUNT(*)", "MAX(discovered_at)").From("articles").ToSql()
	if err != nil {
		return stats, fmt.Errorf("%s: build: %w", op, err)
	}
	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&stats.TotalArticles, &last); err != nil {
		return stats, domain.NewError(domain.KindStorage, op, err)
	}
	if last.Valid {
		t := fromMillis(last.Int64)
		stats.LastDiscoveredAt = &t
	}

	query, args, err = s.sb.Select("COUNT(*)").
		From("articles").
		Where(sq.GtOrEq{"discovered_at": toMillis(now.Add(-recentWindow))}).
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("%s: build: %w", op, err)
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&stats.RecentArticles); err != nil {
		return stats, domain.NewError(domain.KindStorage, op, err)
	}

	query, args, err = s.sb.Select("sector", "COUNT(*)").From("articles").GroupBy("sector").ToSql()
	if err != nil {
		return stats, fmt.Errorf("%s: build: %w", op, err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return stats, domain.NewError(domain.KindStorage, op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sector string
			count  int
		)
		if err := rows.Scan(&sector, &count); err != nil {
			return stats, domain.NewError(domain.KindStorage, op, err)
		}
		stats.ArticlesBySector[domain.Sector(sector)] = count
	}
	if err := rows.Err(); err != nil {
		return stats, domain.NewError(domain.KindStorage, op, err)
	}

	runs, err := s.ListRunReports(ctx, 1)
	if err != nil {
		return stats, err
	}
	if len(runs) > 0 {
		stats.LastRun = &runs[0]
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (domain.Article, error) {
	var (
		a          domain.Article
		sector     string
		published  sql.NullInt64
		discovered int64
	)
	err := row.Scan(&a.ID, &a.SourceID, &sector, &a.Title, &a.BodyText, &a.Summary, &a.URL,
		&published, &discovered, &a.ContentHash, &a.RelevanceScore)
	if err != nil {
		return domain.Article{}, err
	}
	a.Sector = domain.Sector(sector)
	a.DiscoveredAt = fromMillis(discovered)
	if published.Valid {
		t := fromMillis(published.Int64)
		a.PublishedAt = &t
	}
	return a, nil
}

func scanRun(row scanner) (domain.RunReport, error) {
	var (
		r                 domain.RunReport
		started, finished int64
		failures          string
	)
	err := row.Scan(&r.RunID, &started, &finished, &r.SourcesAttempted, &r.SourcesSucceeded,
		&r.SourcesUnchanged, &r.ArticlesFound, &failures)
	if err != nil {
		return domain.RunReport{}, err
	}
	r.StartedAt = fromMillis(started)
	r.FinishedAt = fromMillis(finished)
	if err := json.Unmarshal([]byte(failures), &r.SourcesFailed); err != nil {
		return domain.RunReport{}, fmt.Errorf("decode failures: %w", err)
	}
	return r, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

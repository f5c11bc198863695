package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), DriverSQLite, ":memory:", logging.Discard())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testArticle(id, sourceID, hash string, discovered time.Time) domain.Article {
	return domain.Article{
		ID:             id,
		SourceID:       sourceID,
		Title:          "GenAI launch",
		BodyText:       "A generative AI assistant was launched.",
		Summary:        "Assistant launched.",
		URL:            "https://example.com/" + id,
		DiscoveredAt:   discovered,
		ContentHash:    hash,
		RelevanceScore: 0.8,
		Sector:         domain.SectorFinancial,
	}
}

func TestShouldProcessLifecycle(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	ok, err := store.ShouldProcess(ctx, "s1", "h1")
	if err != nil || !ok {
		t.Fatalf("unseen source should be processed: %v %v", ok, err)
	}
	if _, err := store.ChangeRecord(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.Record(ctx, domain.ChangeRecord{SourceID: "s1", LastContentHash: "h1", LastCheckedAt: now, Status: domain.ChangeProcessed}); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if ok, _ := store.ShouldProcess(ctx, "s1", "h1"); ok {
		t.Fatalf("unchanged processed content should be skipped")
	}
	if ok, _ := store.ShouldProcess(ctx, "s1", "h2"); !ok {
		t.Fatalf("changed content should be processed")
	}

	if err := store.Record(ctx, domain.ChangeRecord{SourceID: "s1", LastContentHash: "h1", LastCheckedAt: now, Status: domain.ChangeClassificationPending, PendingAttempts: 1}); err != nil {
		t.Fatalf("Record pending error: %v", err)
	}
	if ok, _ := store.ShouldProcess(ctx, "s1", "h1"); !ok {
		t.Fatalf("pending content should be processed again")
	}

	rec, err := store.ChangeRecord(ctx, "s1")
	if err != nil {
		t.Fatalf("ChangeRecord error: %v", err)
	}
	if rec.Status != domain.ChangeClassificationPending || rec.PendingAttempts != 1 || !rec.LastCheckedAt.Equal(now) {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestUpsertArticleIsIdempotent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := testArticle("a1", "s1", "h1", now)
	inserted, err := store.UpsertArticle(ctx, first)
	if err != nil || !inserted {
		t.Fatalf("first upsert: inserted=%v err=%v", inserted, err)
	}

	again := testArticle("a2", "s1", "h1", now.Add(time.Hour))
	again.RelevanceScore = 0.95
	again.Summary = "Updated summary."
	inserted, err = store.UpsertArticle(ctx, again)
	if err != nil || inserted {
		t.Fatalf("second upsert: inserted=%v err=%v", inserted, err)
	}

	articles, err := store.ListArticles(ctx, domain.ArticleFilter{})
	if err != nil {
		t.Fatalf("ListArticles error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	got := articles[0]
	if got.ID != "a1" || got.RelevanceScore != 0.95 || got.Summary != "Updated summary." {
		t.Fatalf("unexpected stored article: %+v", got)
	}

	other := testArticle("a3", "s2", "h1", now)
	if inserted, err := store.UpsertArticle(ctx, other); err != nil || !inserted {
		t.Fatalf("same hash on another source should insert: %v %v", inserted, err)
	}
}

func TestListArticlesFilters(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	retail := testArticle("r1", "shop", "h-r1", now.Add(-48*time.Hour))
	retail.Sector = domain.SectorRetail
	published := now.Add(-72 * time.Hour).Truncate(time.Millisecond)
	retail.PublishedAt = &published

	for _, a := range []domain.Article{
		testArticle("f1", "bank", "h-f1", now.Add(-time.Hour)),
		testArticle("f2", "bank", "h-f2", now.Add(-10*24*time.Hour)),
		retail,
	} {
		if _, err := store.UpsertArticle(ctx, a); err != nil {
			t.Fatalf("upsert %s: %v", a.ID, err)
		}
	}

	all, err := store.ListArticles(ctx, domain.ArticleFilter{})
	if err != nil {
		t.Fatalf("ListArticles error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "f1" || all[2].ID != "f2" {
		t.Fatalf("unexpected order: %+v", all)
	}

	bySector, _ := store.ListArticles(ctx, domain.ArticleFilter{Sector: domain.SectorRetail})
	if len(bySector) != 1 || bySector[0].PublishedAt == nil || !bySector[0].PublishedAt.Equal(published) {
		t.Fatalf("unexpected sector filter result: %+v", bySector)
	}

	recent, _ := store.ListArticles(ctx, domain.ArticleFilter{SourceID: "bank", Since: now.Add(-24 * time.Hour)})
	if len(recent) != 1 || recent[0].ID != "f1" {
		t.Fatalf("unexpected source/since result: %+v", recent)
	}

	limited, _ := store.ListArticles(ctx, domain.ArticleFilter{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}
}

func TestRunReportsAndStats(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	empty, err := store.Stats(ctx, now)
	if err != nil {
		t.Fatalf("Stats on empty store: %v", err)
	}
	if empty.TotalArticles != 0 || empty.LastDiscoveredAt != nil || empty.LastRun != nil {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}

	older := domain.RunReport{RunID: "run-1", StartedAt: now.Add(-2 * time.Hour), FinishedAt: now.Add(-time.Hour), SourcesAttempted: 2, SourcesSucceeded: 2}
	latest := domain.RunReport{
		RunID:            "run-2",
		StartedAt:        now.Add(-time.Minute),
		FinishedAt:       now,
		SourcesAttempted: 3,
		SourcesSucceeded: 2,
		SourcesUnchanged: 1,
		ArticlesFound:    1,
		SourcesFailed: []domain.SourceFailure{
			{SourceID: "s3", Name: "S3", Stage: domain.StageFetching, Reason: domain.KindPermanentFetch, Detail: "404"},
		},
	}
	for _, r := range []domain.RunReport{older, latest} {
		if err := store.AppendRunReport(ctx, r); err != nil {
			t.Fatalf("AppendRunReport %s: %v", r.RunID, err)
		}
	}

	got, err := store.GetRunReport(ctx, "run-2")
	if err != nil {
		t.Fatalf("GetRunReport error: %v", err)
	}
	if len(got.SourcesFailed) != 1 || got.SourcesFailed[0].Reason != domain.KindPermanentFetch {
		t.Fatalf("failures not round-tripped: %+v", got.SourcesFailed)
	}
	if !got.FinishedAt.Equal(now) || got.SourcesUnchanged != 1 {
		t.Fatalf("unexpected report: %+v", got)
	}
	if _, err := store.GetRunReport(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	runs, err := store.ListRunReports(ctx, 10)
	if err != nil || len(runs) != 2 || runs[0].RunID != "run-2" {
		t.Fatalf("unexpected run list: %+v %v", runs, err)
	}

	retail := testArticle("r1", "shop", "h-r1", now.Add(-30*24*time.Hour))
	retail.Sector = domain.SectorRetail
	for _, a := range []domain.Article{testArticle("f1", "bank", "h-f1", now), retail} {
		if _, err := store.UpsertArticle(ctx, a); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	stats, err := store.Stats(ctx, now)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalArticles != 2 || stats.RecentArticles != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.ArticlesBySector[domain.SectorFinancial] != 1 || stats.ArticlesBySector[domain.SectorRetail] != 1 {
		t.Fatalf("unexpected sector counts: %+v", stats.ArticlesBySector)
	}
	if stats.LastDiscoveredAt == nil || !stats.LastDiscoveredAt.Equal(now) {
		t.Fatalf("unexpected last discovery: %v", stats.LastDiscoveredAt)
	}
	if stats.LastRun == nil || stats.LastRun.RunID != "run-2" {
		t.Fatalf("unexpected last run: %+v", stats.LastRun)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "mysql", "x", logging.Discard()); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

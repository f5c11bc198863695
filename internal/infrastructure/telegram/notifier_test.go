package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"GenAIMonitor/internal/domain"
)

func sampleReport() domain.RunReport {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return domain.RunReport{
		RunID:            "run-1",
		StartedAt:        start,
		FinishedAt:       start.Add(42 * time.Second),
		SourcesAttempted: 3,
		SourcesSucceeded: 2,
		ArticlesFound:    1,
		NewArticles: []domain.Article{{
			Title:  "Bank_launches *copilot*",
			URL:    "https://bank.example.com/news",
			Sector: domain.SectorFinancial,
		}},
		SourcesFailed: []domain.SourceFailure{{SourceID: "media-x", Reason: domain.KindPermanentFetch}},
	}
}

func TestNotifyRunPostsMarkdown(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText, gotMode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		gotMode = r.PostForm.Get("parse_mode")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("token", "42").WithAPIBase(srv.URL + "/")
	if err := n.NotifyRun(context.Background(), sampleReport()); err != nil {
		t.Fatalf("NotifyRun error: %v", err)
	}

	if gotPath != "/bottoken/sendMessage" || gotChat != "42" || gotMode != "Markdown" {
		t.Fatalf("unexpected request path=%s chat=%s mode=%s", gotPath, gotChat, gotMode)
	}
	if !strings.Contains(gotText, `Bank\_launches \*copilot\*`) {
		t.Fatalf("title should be escaped: %s", gotText)
	}
	if !strings.Contains(gotText, "media-x: permanent-fetch-failure") {
		t.Fatalf("failures missing: %s", gotText)
	}
	if !strings.Contains(gotText, "(42s)") {
		t.Fatalf("duration missing: %s", gotText)
	}
}

func TestNotifyRunErrors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "").NotifyRun(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected misconfiguration error")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier("token", "42").WithAPIBase(srv.URL)
	if err := n.NotifyRun(context.Background(), sampleReport()); err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

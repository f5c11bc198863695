package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"GenAIMonitor/internal/config"
	"GenAIMonitor/internal/domain"
)

func TestChatGPTAssess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-test" || len(req.Messages) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		if !strings.Contains(req.Messages[1].Content, "copilot") || !strings.Contains(req.Messages[1].Content, "Title: Launch") {
			t.Errorf("user prompt missing hints or title: %q", req.Messages[1].Content)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` +
			"```json\\n{\\\"relevance_score\\\": 0.82, \\\"summary\\\": \\\"A copilot launch.\\\"}\\n```" + `"}}]}`))
	}))
	defer server.Close()

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "gpt-test", APIKey: "secret"}, server.Client())
	resp, err := client.Assess(context.Background(), domain.ReasoningRequest{Title: "Launch", Text: "body", Hints: []string{"copilot"}})
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if resp.Score == nil || *resp.Score != 0.82 || resp.Relevant != nil {
		t.Fatalf("unexpected verdict: %+v", resp)
	}
	if resp.Summary != "A copilot launch." {
		t.Fatalf("unexpected summary: %q", resp.Summary)
	}
}

func TestChatGPTAssessErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "gpt-test", APIKey: "secret"}, server.Client())
	if _, err := client.Assess(context.Background(), domain.ReasoningRequest{Text: "body"}); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestChatGPTMisconfigured(t *testing.T) {
	t.Parallel()

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: "http://localhost", Model: "m"}, nil)
	if _, err := client.Assess(context.Background(), domain.ReasoningRequest{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

// Client talks to an external reasoning service that scores relevance.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.ReasoningService = (*Client)(nil)

// NewClient creates a reusable HTTP client. A nil httpClient gets a 30 second
// timeout.
func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     httpClient,
	}
}

// Name identifies the backend in logs and classification results.
func (c *Client) Name() string {
	return "service"
}

type classifyRequest struct {
	Title string   `json:"title,omitempty"`
	Text  string   `json:"text"`
	Hints []string `json:"hints"`
}

type classifyResponse struct {
	Score    *float64 `json:"relevance_score"`
	Relevant *bool    `json:"relevant"`
	Summary  string   `json:"summary"`
}

// Assess posts the document to /classify. The service answers with a score,
// a boolean verdict, or both.
func (c *Client) Assess(ctx context.Context, in domain.ReasoningRequest) (domain.ReasoningResponse, error) {
	if c.endpoint == "" {
		return domain.ReasoningResponse{}, fmt.Errorf("reasoning service endpoint is not configured")
	}

	hints := in.Hints
	if hints == nil {
		hints = []string{}
	}

	var out classifyResponse
	if err := c.post(ctx, "/classify", classifyRequest{Title: in.Title, Text: in.Text, Hints: hints}, &out); err != nil {
		return domain.ReasoningResponse{}, err
	}
	return domain.ReasoningResponse{Score: out.Score, Relevant: out.Relevant, Summary: out.Summary}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

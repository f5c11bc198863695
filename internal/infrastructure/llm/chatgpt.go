package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"GenAIMonitor/internal/config"
	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

const verdictInstructions = `Reply with a single JSON object and nothing else:
{"relevance_score": <number between 0 and 1>, "relevant": <true|false>, "summary": "<two sentences on the generative AI initiative, empty if none>"}`

// ChatGPTClient implements ports.ReasoningService backed by OpenAI-compatible
// chat completion APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.ReasoningService = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration. A nil httpClient gets a
// 30 second timeout; per-call deadlines come from the context.
func NewChatGPTClient(cfg config.ChatGPTConfig, httpClient *http.Client) *ChatGPTClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   httpClient,
	}
}

// Name identifies the backend in logs and classification results.
func (c *ChatGPTClient) Name() string {
	return "chatgpt"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type verdict struct {
	Score    *float64 `json:"relevance_score"`
	Relevant *bool    `json:"relevant"`
	Summary  string   `json:"summary"`
}

// Assess asks the model for a relevance verdict on the document.
func (c *ChatGPTClient) Assess(ctx context.Context, in domain.ReasoningRequest) (domain.ReasoningResponse, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.ReasoningResponse{}, fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt) + "\n\n" + verdictInstructions},
			{Role: "user", Content: userPrompt(in)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return domain.ReasoningResponse{}, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ReasoningResponse{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ReasoningResponse{}, fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.ReasoningResponse{}, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return domain.ReasoningResponse{}, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return domain.ReasoningResponse{}, fmt.Errorf("chatgpt returned no choices")
	}

	var v verdict
	if err := json.Unmarshal([]byte(stripFences(completion.Choices[0].Message.Content)), &v); err != nil {
		return domain.ReasoningResponse{}, fmt.Errorf("decode verdict: %w", err)
	}

	return domain.ReasoningResponse{Score: v.Score, Relevant: v.Relevant, Summary: v.Summary}, nil
}

func userPrompt(in domain.ReasoningRequest) string {
	var b strings.Builder
	if len(in.Hints) > 0 {
		b.WriteString("Topics of interest: ")
		b.WriteString(strings.Join(in.Hints, ", "))
		b.WriteString("\n\n")
	}
	if in.Title != "" {
		b.WriteString("Title: ")
		b.WriteString(in.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(in.Text)
	return b.String()
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You decide whether corporate web content discusses generative AI initiatives."
	}
	return prompt
}

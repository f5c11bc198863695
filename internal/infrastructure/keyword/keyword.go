// Package keyword scores GenAI relevance offline with keyword and pattern
// heuristics.
package keyword

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

var genaiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(gpt-?\d+|chatgpt|claude|dall-?e|midjourney)\b`),
	regexp.MustCompile(`\b(large language model|llm)s?\b`),
	regexp.MustCompile(`\b(neural network|transformer|diffusion)\b`),
	regexp.MustCompile(`\b(text generation|image generation|content generation)\b`),
	regexp.MustCompile(`\b(artificial intelligence|machine learning)\b`),
	regexp.MustCompile(`\b(natural language processing|nlp)\b`),
	regexp.MustCompile(`\b(generative\s+ai|genai)\b`),
}

var contextIndicators = []string{
	"artificial intelligence", "machine learning", "deep learning", "neural",
	"algorithm", "model training", "language model", "computer vision", "natural language",
}

// DefaultSummaryLength bounds extractive summaries, in runes.
const DefaultSummaryLength = 300

// Scorer implements ports.ReasoningService without any network calls.
type Scorer struct {
	keywords *Matcher
}

var _ ports.ReasoningService = (*Scorer)(nil)

// New returns a scorer counting only the given GenAI keywords. Per-request
// hints are company or sector vocabulary and only support a keyword hit.
func New(keywords []string) *Scorer {
	return &Scorer{keywords: NewMatcher(keywords)}
}

// Name identifies the backend in logs and classification results.
func (s *Scorer) Name() string {
	return "keyword"
}

// Assess scores the text:
//
//	>= 3 distinct keywords or >= 2 patterns    0.9
//	2 keywords with density or a pattern       0.8
//	1 keyword with density or a pattern        0.7
//	1 keyword with >= 3 context signals        0.7
//	keywords without supporting signal         0.5
//	a single pattern only                      0.3
//
// Context signals are the fixed indicators plus hints found in the text.
// Hints never count as keywords.
func (s *Scorer) Assess(ctx context.Context, req domain.ReasoningRequest) (domain.ReasoningResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReasoningResponse{}, err
	}

	text := strings.ToLower(req.Title + " " + req.Text)

	keywords := s.keywords.Count(text)
	patterns := 0
	for _, p := range genaiPatterns {
		if p.MatchString(text) {
			patterns++
		}
	}
	contexts := NewMatcher(req.Hints).Count(text)
	for _, indicator := range contextIndicators {
		if strings.Contains(text, indicator) {
			contexts++
		}
	}

	words := len(strings.Fields(text))
	dense := words > 0 && float64(keywords)/float64(words) > 0.001
	supported := dense || patterns >= 1

	var score float64
	switch {
	case keywords >= 3 || patterns >= 2:
		score = 0.9
	case keywords == 2 && supported:
		score = 0.8
	case keywords == 1 && supported:
		score = 0.7
	case keywords >= 1 && contexts >= 3:
		score = 0.7
	case keywords >= 1:
		score = 0.5
	case patterns == 1:
		score = 0.3
	}

	out := domain.ReasoningResponse{Score: &score}
	if score > 0 {
		out.Summary = Summarize(req.Text, slices.Concat(s.keywords.Words(), req.Hints), DefaultSummaryLength)
	}
	return out, nil
}

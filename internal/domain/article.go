package domain

import "time"

// FetchResult is the raw outcome of retrieving a source. It lives only for the
// duration of a run and is never persisted as-is.
type FetchResult struct {
	SourceID    string
	FetchedAt   time.Time
	RawContent  []byte
	ContentHash string
	HTTPStatus  int
	Duration    time.Duration
	FinalURL    string
	Attempts    int
}

// ExtractedDoc is the clean text and metadata recovered from a page.
type ExtractedDoc struct {
	Title       string
	BodyText    string
	Description string
	PublishedAt *time.Time
	ContentHash string
}

// ClassificationResult is the relevance verdict for one document.
type ClassificationResult struct {
	Score    float64
	Relevant bool
	Summary  string
	Backend  string
}

// ReasoningRequest is sent to the external reasoning service.
type ReasoningRequest struct {
	Title string
	Text  string
	Hints []string
}

// ReasoningResponse carries either a score in [0,1] or a bare boolean verdict.
type ReasoningResponse struct {
	Score    *float64
	Relevant *bool
	Summary  string
}

// Article is a relevant document accepted by the pipeline.
// (SourceID, ContentHash) is unique.
type Article struct {
	ID             string     `json:"id"`
	SourceID       string     `json:"source_id"`
	Title          string     `json:"title"`
	BodyText       string     `json:"body_text,omitempty"`
	Summary        string     `json:"summary"`
	URL            string     `json:"url"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	DiscoveredAt   time.Time  `json:"discovered_at"`
	ContentHash    string     `json:"content_hash"`
	RelevanceScore float64    `json:"relevance_score"`
	Sector         Sector     `json:"sector"`
}

// ArticleFilter narrows dashboard article queries.
type ArticleFilter struct {
	Sector   Sector
	SourceID string
	Since    time.Time
	Limit    int
}

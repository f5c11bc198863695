package domain

import "time"

// RunState is the orchestrator lifecycle state.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
)

// Stage names a step of the per-source pipeline.
type Stage string

const (
	StageFetching    Stage = "fetching"
	StageExtracting  Stage = "extracting"
	StageDeduping    Stage = "deduping"
	StageClassifying Stage = "classifying"
	StagePersisting  Stage = "persisting"
)

// SourceFailure records why a source did not complete in a run.
type SourceFailure struct {
	SourceID string    `json:"source_id"`
	Name     string    `json:"name"`
	Stage    Stage     `json:"stage"`
	Reason   ErrorKind `json:"reason"`
	Detail   string    `json:"detail"`
}

// RunReport summarises one monitoring pass. Immutable once the run completes.
type RunReport struct {
	RunID            string          `json:"run_id"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	SourcesAttempted int             `json:"sources_attempted"`
	SourcesSucceeded int             `json:"sources_succeeded"`
	SourcesFailed    []SourceFailure `json:"sources_failed"`
	SourcesUnchanged int             `json:"sources_unchanged"`
	ArticlesFound    int             `json:"articles_found"`
	NewArticles      []Article       `json:"-"`
}

// Duration is the wall time of the run.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ChangeStatus tells whether the content behind a hash was fully handled.
type ChangeStatus string

const (
	ChangeProcessed             ChangeStatus = "processed"
	ChangeClassificationPending ChangeStatus = "classification_pending"
)

// ChangeRecord is the last content fingerprint seen for a source.
type ChangeRecord struct {
	SourceID        string
	LastContentHash string
	LastCheckedAt   time.Time
	Status          ChangeStatus
	PendingAttempts int
}

// DashboardStats aggregates persisted data for the read path.
type DashboardStats struct {
	TotalArticles    int            `json:"total_articles"`
	RecentArticles   int            `json:"recent_articles"`
	ArticlesBySector map[Sector]int `json:"articles_by_sector"`
	LastDiscoveredAt *time.Time     `json:"last_discovered_at,omitempty"`
	LastRun          *RunReport     `json:"last_run,omitempty"`
}

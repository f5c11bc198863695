package storage

// schema is portable between PostgreSQL and SQLite: TEXT ids, BIGINT unix
// milliseconds and no BOOLEAN columns.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS change_records (
		source_id         TEXT PRIMARY KEY,
		last_content_hash TEXT NOT NULL,
		last_checked_at   BIGINT NOT NULL,
		status            TEXT NOT NULL,
		pending_attempts  INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id              TEXT PRIMARY KEY,
		source_id       TEXT NOT NULL,
		sector          TEXT NOT NULL,
		title           TEXT NOT NULL,
		body_text       TEXT NOT NULL,
		summary         TEXT NOT NULL,
		url             TEXT NOT NULL,
		published_at    BIGINT,
		discovered_at   BIGINT NOT NULL,
		content_hash    TEXT NOT NULL,
		relevance_score DOUBLE PRECISION NOT NULL,
		UNIQUE (source_id, content_hash)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_discovered_at ON articles (discovered_at)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_sector ON articles (sector)`,
	`CREATE TABLE IF NOT EXISTS run_reports (
		run_id            TEXT PRIMARY KEY,
		started_at        BIGINT NOT NULL,
		finished_at       BIGINT NOT NULL,
		sources_attempted INTEGER NOT NULL,
		sources_succeeded INTEGER NOT NULL,
		sources_unchanged INTEGER NOT NULL,
		articles_found    INTEGER NOT NULL,
		failures          TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_reports_started_at ON run_reports (started_at)`,
}

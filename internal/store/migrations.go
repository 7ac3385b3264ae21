package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS model_cache (
		prompt TEXT PRIMARY KEY,
		response TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_model_cache_created ON model_cache(created_at);

	CREATE TABLE IF NOT EXISTS api_usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		surface TEXT NOT NULL,
		endpoint TEXT,
		success INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_api_usage_surface ON api_usage(surface, created_at);

	CREATE TABLE IF NOT EXISTS interactions (
		external_id TEXT PRIMARY KEY,
		reply_text TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		content_kind TEXT NOT NULL,
		polarity REAL NOT NULL DEFAULT 0,
		subjectivity REAL NOT NULL DEFAULT 0,
		is_question INTEGER NOT NULL DEFAULT 0,
		mentions_topic INTEGER NOT NULL DEFAULT 0,
		has_emoji INTEGER NOT NULL DEFAULT 0,
		text_length INTEGER NOT NULL DEFAULT 0,
		source_created_at INTEGER,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at);

	CREATE TABLE IF NOT EXISTS templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		category TEXT NOT NULL,
		text TEXT NOT NULL,
		UNIQUE(kind, category, text)
	);

	CREATE INDEX IF NOT EXISTS idx_templates_kind ON templates(kind, category);

	CREATE TABLE IF NOT EXISTS engagement (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id TEXT NOT NULL,
		action TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_engagement_action ON engagement(action, created_at);

	CREATE TABLE IF NOT EXISTS flags (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migration v1: %w", err)
	}
	return nil
}

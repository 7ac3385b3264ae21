package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Template is a pre-written fallback text for one (kind, category) pair.
type Template struct {
	ID       int64
	Kind     string
	Category string
	Text     string
}

// SeedTemplates inserts templates, ignoring rows that already exist.
// Called at boot with the content policy's template list.
func (s *Store) SeedTemplates(ctx context.Context, templates []Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin template seed: %w", err)
	}
	defer tx.Rollback()

	for _, t := range templates {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO templates (kind, category, text) VALUES (?, ?, ?)",
			t.Kind, t.Category, t.Text,
		); err != nil {
			return fmt.Errorf("failed to seed template: %w", err)
		}
	}
	return tx.Commit()
}

// RandomTemplate returns a uniformly random template text for (kind, category).
// Returns ErrNoRows-mapped (empty, false) when nothing matches.
func (s *Store) RandomTemplate(ctx context.Context, kind, category string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var text string
	err := s.db.QueryRowContext(ctx,
		"SELECT text FROM templates WHERE kind = ? AND category = ? ORDER BY RANDOM() LIMIT 1",
		kind, category,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch template: %w", err)
	}
	return text, true, nil
}

// InsertTemplate adds a single template row.
func (s *Store) InsertTemplate(ctx context.Context, t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO templates (kind, category, text) VALUES (?, ?, ?)",
		t.Kind, t.Category, t.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

// CountTemplates returns the number of stored templates.
func (s *Store) CountTemplates(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM templates").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return count, nil
}

package store

import (
	"context"
	"fmt"
	"time"
)

// RecordUsage appends one usage row for an API surface.
func (s *Store) RecordUsage(ctx context.Context, surface, endpoint string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO api_usage (surface, endpoint, success, created_at) VALUES (?, ?, ?, ?)",
		surface, endpoint, boolToInt(success), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// CountUsageSince counts usage rows for a surface created after the cutoff.
func (s *Store) CountUsageSince(ctx context.Context, surface string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM api_usage WHERE surface = ? AND created_at > ?",
		surface, since.UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}

// UsageBySurface returns per-surface usage counts since the cutoff.
func (s *Store) UsageBySurface(ctx context.Context, since time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT surface, COUNT(*) FROM api_usage WHERE created_at > ? GROUP BY surface",
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var surface string
		var count int
		if err := rows.Scan(&surface, &count); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		usage[surface] = count
	}
	return usage, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

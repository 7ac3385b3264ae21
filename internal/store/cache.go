package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheStats summarizes the generation cache for the ops API.
type CacheStats struct {
	TotalEntries int `json:"total_entries"`
	FreshEntries int `json:"fresh_entries"`
	CallsSaved   int `json:"estimated_api_calls_saved"`
}

// GetCachedResponse returns the cached response for a prompt if it is younger
// than ttl. Entries older than ttl are logically absent; the row itself is
// removed later by RunRetention.
func (s *Store) GetCachedResponse(ctx context.Context, prompt string, ttl time.Duration) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var response string
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT response, created_at FROM model_cache WHERE prompt = ?", prompt,
	).Scan(&response, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache: %w", err)
	}

	if time.Since(time.UnixMilli(createdAt)) >= ttl {
		return "", false, nil
	}
	return response, true, nil
}

// PutCachedResponse upserts a response keyed by the exact prompt string.
// The write is all-or-nothing per key.
func (s *Store) PutCachedResponse(ctx context.Context, prompt, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO model_cache (prompt, response, created_at) VALUES (?, ?, ?)",
		prompt, response, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// CacheStats reports cache occupancy and how many entries are still fresh.
func (s *Store) CacheStats(ctx context.Context, ttl time.Duration) (CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats CacheStats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM model_cache").Scan(&stats.TotalEntries); err != nil {
		return stats, fmt.Errorf("failed to count cache entries: %w", err)
	}

	cutoff := time.Now().Add(-ttl).UnixMilli()
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM model_cache WHERE created_at > ?", cutoff,
	).Scan(&stats.FreshEntries); err != nil {
		return stats, fmt.Errorf("failed to count fresh cache entries: %w", err)
	}

	stats.CallsSaved = stats.TotalEntries
	return stats, nil
}

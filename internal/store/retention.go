package store

import (
	"context"
	"fmt"
	"time"
)

// RunRetention cleans up old data according to retention policies: expired
// cache entries, usage rows older than the longest budget window, engagement
// rows past the weekly budget horizon and stale moderation flags.
func (s *Store) RunRetention(ctx context.Context, cacheTTL time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	cacheCutoff := now - cacheTTL.Milliseconds()
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM model_cache WHERE created_at < ?", cacheCutoff,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("cleared expired cache entries")
	}

	// Usage rows only matter inside a rolling window; keep a generous 7 days
	// so the ops API can still show daily history.
	usageCutoff := now - (7 * 24 * time.Hour).Milliseconds()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM api_usage WHERE created_at < ?", usageCutoff,
	); err != nil {
		return fmt.Errorf("failed to delete old usage rows: %w", err)
	}

	// Engagement history past two weekly budget windows.
	engagementCutoff := now - (14 * 24 * time.Hour).Milliseconds()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM engagement WHERE created_at < ?", engagementCutoff,
	); err != nil {
		return fmt.Errorf("failed to delete old engagement rows: %w", err)
	}

	// Moderation flags older than 30 days.
	flagCutoff := now - (30 * 24 * time.Hour).Milliseconds()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM flags WHERE created_at < ?", flagCutoff,
	); err != nil {
		return fmt.Errorf("failed to delete old flags: %w", err)
	}

	return nil
}

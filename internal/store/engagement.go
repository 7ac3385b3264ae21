package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LogEngagement records one like/retweet/comment action against an external post.
func (s *Store) LogEngagement(ctx context.Context, postID, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO engagement (post_id, action, created_at) VALUES (?, ?, ?)",
		postID, action, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to log engagement: %w", err)
	}
	return nil
}

// CountEngagementSince counts actions of one type after the cutoff. Used for
// the persisted weekly comment budget.
func (s *Store) CountEngagementSince(ctx context.Context, action string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM engagement WHERE action = ? AND created_at > ?",
		action, since.UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count engagement: %w", err)
	}
	return count, nil
}

// LogFlag records moderation-flagged content for manual review.
func (s *Store) LogFlag(ctx context.Context, text, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO flags (id, text, reason, created_at) VALUES (?, ?, ?, ?)",
		uuid.NewString(), text, reason, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to log flag: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Interaction is one replied-to inbound mention, keyed by the platform's post id.
type Interaction struct {
	ExternalID      string
	ReplyText       string
	Sentiment       string
	ContentKind     string
	Polarity        float64
	Subjectivity    float64
	IsQuestion      bool
	MentionsTopic   bool
	HasEmoji        bool
	TextLength      int
	SourceCreatedAt int64 // unix ms, 0 if unknown
	CreatedAt       int64 // unix ms
}

// SaveInteraction upserts an interaction record. Replaying the same external
// event overwrites the row rather than duplicating it.
func (s *Store) SaveInteraction(ctx context.Context, in *Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.CreatedAt == 0 {
		in.CreatedAt = time.Now().UnixMilli()
	}

	query := `
	INSERT OR REPLACE INTO interactions (
		external_id, reply_text, sentiment, content_kind,
		polarity, subjectivity, is_question, mentions_topic, has_emoji,
		text_length, source_created_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		in.ExternalID, in.ReplyText, in.Sentiment, in.ContentKind,
		in.Polarity, in.Subjectivity, boolToInt(in.IsQuestion),
		boolToInt(in.MentionsTopic), boolToInt(in.HasEmoji),
		in.TextLength,
		sql.NullInt64{Int64: in.SourceCreatedAt, Valid: in.SourceCreatedAt != 0},
		in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

// GetInteraction retrieves an interaction by external id. Returns nil when absent.
func (s *Store) GetInteraction(ctx context.Context, externalID string) (*Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in := &Interaction{}
	var isQuestion, mentionsTopic, hasEmoji int
	var sourceCreatedAt sql.NullInt64

	query := `
	SELECT external_id, reply_text, sentiment, content_kind,
	       polarity, subjectivity, is_question, mentions_topic, has_emoji,
	       text_length, source_created_at, created_at
	FROM interactions WHERE external_id = ?
	`
	err := s.db.QueryRowContext(ctx, query, externalID).Scan(
		&in.ExternalID, &in.ReplyText, &in.Sentiment, &in.ContentKind,
		&in.Polarity, &in.Subjectivity, &isQuestion, &mentionsTopic, &hasEmoji,
		&in.TextLength, &sourceCreatedAt, &in.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}

	in.IsQuestion = isQuestion != 0
	in.MentionsTopic = mentionsTopic != 0
	in.HasEmoji = hasEmoji != 0
	in.SourceCreatedAt = sourceCreatedAt.Int64
	return in, nil
}

// CountInteractionsSince counts interactions logged after the cutoff.
func (s *Store) CountInteractionsSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM interactions WHERE created_at > ?", since.UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return count, nil
}

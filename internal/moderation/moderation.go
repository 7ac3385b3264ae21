// Package moderation screens outbound content against a configured blocklist.
package moderation

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// FlagStore records flagged content for manual review.
type FlagStore interface {
	LogFlag(ctx context.Context, text, reason string) error
}

// Result is the outcome of one content check.
type Result struct {
	Clean        bool
	FlaggedWords []string
}

// Filter screens text before it leaves the system.
type Filter struct {
	blocklist []string
	flags     FlagStore
	logger    zerolog.Logger
}

// NewFilter creates a Filter over the blocklist.
func NewFilter(blocklist []string, flags FlagStore, logger zerolog.Logger) *Filter {
	return &Filter{
		blocklist: blocklist,
		flags:     flags,
		logger:    logger.With().Str("component", "moderation").Logger(),
	}
}

// Check matches text against the blocklist, case-insensitive substring.
// Flagged content is recorded for review; a recording failure does not
// unblock the content.
func (f *Filter) Check(ctx context.Context, text string) Result {
	if text == "" {
		return Result{Clean: true}
	}

	lower := strings.ToLower(text)
	var flagged []string
	for _, word := range f.blocklist {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			flagged = append(flagged, word)
		}
	}

	if len(flagged) == 0 {
		return Result{Clean: true}
	}

	reason := strings.Join(flagged, ", ")
	f.logger.Warn().Str("flagged", reason).Msg("content flagged for review")
	if err := f.flags.LogFlag(ctx, text, reason); err != nil {
		f.logger.Error().Err(err).Msg("recording flag")
	}
	return Result{Clean: false, FlaggedWords: flagged}
}

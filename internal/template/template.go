// Package template serves pre-written fallback texts when live generation is
// unavailable. It is the last tier of the fallback chain and never errors.
package template

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultText is the hard-coded last resort when no template row matches.
const DefaultText = "Ruck it Up with @getrucky! 🥾 #GetRucky"

// Template kinds.
const (
	KindPost      = "post"
	KindReply     = "reply"
	KindCrossPost = "cross-post"
)

// TemplateStore is the persistence port for template rows.
type TemplateStore interface {
	RandomTemplate(ctx context.Context, kind, category string) (string, bool, error)
}

// Store selects fallback templates and fills their placeholders.
type Store struct {
	db     TemplateStore
	logger zerolog.Logger
}

// New creates a template store over the persistence port.
func New(db TemplateStore, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "template").Logger(),
	}
}

// Random returns a uniformly random template for (kind, category). When no
// row matches or the store errors it returns DefaultText; this path must
// never fail.
func (s *Store) Random(ctx context.Context, kind, category string) string {
	text, ok, err := s.db.RandomTemplate(ctx, kind, category)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Str("category", category).Msg("template lookup failed")
		return DefaultText
	}
	if !ok {
		s.logger.Warn().Str("kind", kind).Str("category", category).Msg("no template found")
		return DefaultText
	}
	return text
}

// Fill substitutes {placeholder} markers with values. Substitution is
// best-effort: placeholders without a value are blanked rather than left as
// markers or raised as errors.
func Fill(text string, values map[string]string) string {
	var b strings.Builder
	b.Grow(len(text))

	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			b.WriteString(text)
			break
		}
		close := strings.IndexByte(text[open:], '}')
		if close < 0 {
			b.WriteString(text)
			break
		}
		close += open

		b.WriteString(text[:open])
		name := text[open+1 : close]
		if v, ok := values[name]; ok {
			b.WriteString(v)
		}
		text = text[close+1:]
	}
	return b.String()
}

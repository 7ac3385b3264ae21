package generator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/getrucky/marketing-agent/internal/template"
)

// Source identifies which fallback tier produced a text.
type Source string

const (
	SourceNone     Source = "none"
	SourceCache    Source = "cache"
	SourceProvider Source = "provider"
	SourceTemplate Source = "template"
)

// Resolver runs the full fallback chain: generation cache → live provider →
// static template. Given a working template store it always produces text.
type Resolver struct {
	gen       *Generator
	templates *template.Store
	logger    zerolog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(gen *Generator, templates *template.Store, logger zerolog.Logger) *Resolver {
	return &Resolver{
		gen:       gen,
		templates: templates,
		logger:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve returns text for the request, falling back to the (kind, category)
// template when generation yields nothing. The returned Source reports which
// tier served the text. Only fatal auth errors propagate.
func (r *Resolver) Resolve(ctx context.Context, req Request, kind, category string) (string, Source, error) {
	text, src, err := r.gen.Generate(ctx, req)
	if err != nil {
		return "", SourceNone, err
	}
	if text != "" {
		return text, src, nil
	}

	r.logger.Warn().Str("kind", kind).Str("category", category).Msg("falling back to template")
	return r.templates.Random(ctx, kind, category), SourceTemplate, nil
}

// Package generator resolves post text through the cache → provider →
// template fallback chain, with bounded retries around the provider call.
package generator

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/getrucky/marketing-agent/internal/budget"
	aerrors "github.com/getrucky/marketing-agent/internal/errors"
	"github.com/getrucky/marketing-agent/internal/retry"
)

// Ellipsis marks provider output truncated at the length limit.
const Ellipsis = "..."

// Provider is the external text-generation port.
type Provider interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// Cache is the generation-cache port. Reads must treat entries older than the
// TTL as absent.
type Cache interface {
	GetCachedResponse(ctx context.Context, prompt string, ttl time.Duration) (string, bool, error)
	PutCachedResponse(ctx context.Context, prompt, response string) error
}

// BudgetChecker gates provider calls on the "generate" surface budget.
type BudgetChecker interface {
	Check(ctx context.Context, surface string) budget.Status
	Record(ctx context.Context, surface string)
}

// Request describes one generation call.
type Request struct {
	System    string // persona/system preamble
	Prompt    string // task-specific instruction; also the cache key
	MaxLength int    // hard output length cap in runes
}

// Config holds generator tunables.
type Config struct {
	CacheTTL  time.Duration
	MaxTokens int
	Retry     retry.Config
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:  24 * time.Hour,
		MaxTokens: 100,
		Retry: retry.Config{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    time.Minute,
			Jitter:      false,
		},
	}
}

// Generator wraps the provider with caching, budget checks and retries.
type Generator struct {
	provider Provider
	cache    Cache
	budget   BudgetChecker
	cfg      Config
	sleep    retry.Sleeper
	logger   zerolog.Logger
}

// New creates a Generator.
func New(provider Provider, cache Cache, budget BudgetChecker, cfg Config, logger zerolog.Logger) *Generator {
	return &Generator{
		provider: provider,
		cache:    cache,
		budget:   budget,
		cfg:      cfg,
		sleep:    retry.DefaultSleeper,
		logger:   logger.With().Str("component", "generator").Logger(),
	}
}

// WithSleeper replaces the retry sleep function (tests).
func (g *Generator) WithSleeper(s retry.Sleeper) *Generator {
	g.sleep = s
	return g
}

// Generate resolves text for the request. It returns ("", SourceNone, nil)
// when the provider is throttled or retries are exhausted, so callers can
// fall back to templates. Auth failures propagate; they are never retried.
//
// The result is never longer than req.MaxLength runes.
func (g *Generator) Generate(ctx context.Context, req Request) (string, Source, error) {
	// Cache errors degrade to a miss; a broken cache never blocks generation.
	if cached, hit, err := g.cache.GetCachedResponse(ctx, req.Prompt, g.cfg.CacheTTL); err != nil {
		g.logger.Error().Err(err).Msg("cache read failed, treating as miss")
	} else if hit {
		g.logger.Debug().Str("prompt", snippet(req.Prompt)).Msg("cache hit")
		return cached, SourceCache, nil
	}

	if st := g.budget.Check(ctx, "generate"); st.Throttled {
		g.logger.Warn().Dur("wait", st.Wait).Msg("generation budget throttled, skipping provider call")
		return "", SourceNone, nil
	}

	var text string
	err := retry.DoWithSleeper(ctx, g.cfg.Retry, g.sleep, func(ctx context.Context) error {
		out, err := g.provider.Complete(ctx, req.System, req.Prompt, g.cfg.MaxTokens)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		if aerrors.IsAuth(err) {
			g.logger.Error().Err(err).Msg("provider rejected credentials")
			return "", SourceNone, err
		}
		g.logger.Error().Err(err).Str("prompt", snippet(req.Prompt)).Msg("generation failed after retries")
		return "", SourceNone, nil
	}

	g.budget.Record(ctx, "generate")

	if text == "" {
		g.logger.Warn().Str("prompt", snippet(req.Prompt)).Msg("provider returned empty text")
		return "", SourceNone, nil
	}

	text = Truncate(text, req.MaxLength)
	if err := g.cache.PutCachedResponse(ctx, req.Prompt, text); err != nil {
		g.logger.Error().Err(err).Msg("cache write failed")
	}
	return text, SourceProvider, nil
}

// Truncate caps text at max runes, cutting at the last whitespace before the
// limit and appending an ellipsis marker. max <= 0 means no limit.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	// No room for the marker below its own length; hard cut instead.
	if max <= len(Ellipsis) {
		return string(runes[:max])
	}

	cut := runes[:max-len(Ellipsis)]
	if idx := lastSpace(cut); idx > 0 {
		cut = cut[:idx]
	}
	return string(cut) + Ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t' {
			return i
		}
	}
	return -1
}

func snippet(s string) string {
	const n = 30
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

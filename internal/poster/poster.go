// Package poster implements the scheduled post jobs: regular content posts
// and session shout-out posts.
package poster

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/getrucky/marketing-agent/internal/budget"
	"github.com/getrucky/marketing-agent/internal/content"
	"github.com/getrucky/marketing-agent/internal/generator"
	"github.com/getrucky/marketing-agent/internal/metrics"
	"github.com/getrucky/marketing-agent/internal/moderation"
	"github.com/getrucky/marketing-agent/internal/platform"
	"github.com/getrucky/marketing-agent/internal/sessions"
	"github.com/getrucky/marketing-agent/internal/template"
)

// SessionSource supplies recent ruck sessions for the feature post.
type SessionSource interface {
	Recent(ctx context.Context, limit int) ([]sessions.Session, error)
}

// Poster builds and publishes posts.
type Poster struct {
	selector  *content.Selector
	prompts   *content.Prompts
	resolver  *generator.Resolver
	templates *template.Store
	filter    *moderation.Filter
	budget    *budget.Tracker
	client    platform.Client
	source    SessionSource // nil when the session app is not configured
	metrics   *metrics.Metrics
	maxLen    int
	logger    zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Poster. source may be nil; session posts then degrade to
// regular posts.
func New(
	selector *content.Selector,
	prompts *content.Prompts,
	resolver *generator.Resolver,
	templates *template.Store,
	filter *moderation.Filter,
	tracker *budget.Tracker,
	client platform.Client,
	source SessionSource,
	m *metrics.Metrics,
	maxLen int,
	rng *rand.Rand,
	logger zerolog.Logger,
) *Poster {
	return &Poster{
		selector:  selector,
		prompts:   prompts,
		resolver:  resolver,
		templates: templates,
		filter:    filter,
		budget:    tracker,
		client:    client,
		source:    source,
		metrics:   m,
		maxLen:    maxLen,
		rng:       rng,
		logger:    logger.With().Str("component", "poster").Logger(),
	}
}

// RegularPost runs one scheduled content post: select a kind, resolve text
// through the fallback chain, screen it and publish.
func (p *Poster) RegularPost(ctx context.Context) {
	now := time.Now().UTC()

	p.mu.Lock()
	sel := p.selector.Select(now, p.rng)
	p.mu.Unlock()

	if sel.Kind == content.KindMaps {
		if p.source != nil {
			p.SessionPost(ctx)
			return
		}
		sel.Kind = content.KindTheme
	}

	p.postKind(ctx, sel, now)
}

func (p *Poster) postKind(ctx context.Context, sel content.Selection, now time.Time) {
	p.mu.Lock()
	prompt := p.prompts.Build(sel, now, p.rng)
	p.mu.Unlock()

	// No prompt variants for the kind means templates only.
	if prompt == "" {
		text := p.templates.Random(ctx, "post", sel.Kind)
		p.metrics.RecordGeneration(string(generator.SourceTemplate))
		p.publish(ctx, sel.Kind, text)
		return
	}

	text, src, err := p.resolver.Resolve(ctx, generator.Request{
		System:    content.SystemPrompt,
		Prompt:    prompt,
		MaxLength: p.maxLen,
	}, "post", sel.Kind)
	if err != nil {
		p.logger.Error().Err(err).Str("kind", sel.Kind).Msg("resolving content")
		p.metrics.RecordPost(sel.Kind, "error")
		return
	}
	p.metrics.RecordGeneration(string(src))

	p.publish(ctx, sel.Kind, text)
}

// SessionPost publishes a shout-out for a recent ruck session, degrading to
// a regular post when no session qualifies.
func (p *Poster) SessionPost(ctx context.Context) {
	now := time.Now().UTC()
	if p.source == nil {
		p.postRegularFallback(ctx, now)
		return
	}

	recent, err := p.source.Recent(ctx, 10)
	if err != nil || len(recent) == 0 {
		if err != nil {
			p.logger.Warn().Err(err).Msg("fetching sessions")
		}
		p.postRegularFallback(ctx, now)
		return
	}

	p.mu.Lock()
	session := recent[p.rng.Intn(len(recent))]
	p.mu.Unlock()

	text, src, err := p.resolver.Resolve(ctx, generator.Request{
		System:    content.SystemPrompt,
		Prompt:    sessionPrompt(session),
		MaxLength: p.maxLen,
	}, "post", "shoutout")
	if err != nil {
		p.logger.Error().Err(err).Msg("resolving session post")
		p.metrics.RecordPost("session", "error")
		return
	}
	p.metrics.RecordGeneration(string(src))

	if src == generator.SourceTemplate {
		text = template.Fill(text, map[string]string{
			"user":         session.User,
			"distance":     strconv.FormatFloat(session.DistanceMiles, 'f', 1, 64),
			"duration":     session.Duration().String(),
			"achievements": session.AchievementText(),
			"emoji":        session.Emoji(),
		})
		text = generator.Truncate(text, p.maxLen)
	}

	p.publish(ctx, "session", text)
}

func (p *Poster) postRegularFallback(ctx context.Context, now time.Time) {
	p.logger.Info().Msg("no eligible session, posting regular content")

	p.mu.Lock()
	sel := p.selector.Select(now, p.rng)
	p.mu.Unlock()
	if sel.Kind == content.KindMaps {
		sel.Kind = content.KindTheme
	}
	p.postKind(ctx, sel, now)
}

// publish screens, budget-checks and posts the text.
func (p *Poster) publish(ctx context.Context, kind, text string) {
	if res := p.filter.Check(ctx, text); !res.Clean {
		p.metrics.RecordPost(kind, "flagged")
		return
	}

	if status := p.budget.Check(ctx, "post"); status.Throttled {
		p.logger.Warn().Dur("wait", status.Wait).Msg("post budget throttled, skipping slot")
		p.metrics.RecordThrottled("post")
		p.metrics.RecordPost(kind, "throttled")
		return
	}

	tweet, err := p.client.Post(ctx, text)
	p.budget.Record(ctx, "post")
	if err != nil {
		p.logger.Error().Err(err).Str("kind", kind).Msg("posting")
		p.metrics.RecordPost(kind, "error")
		return
	}

	p.logger.Info().Str("kind", kind).Str("tweet_id", tweet.ID).Msg("posted")
	p.metrics.RecordPost(kind, "ok")
}

func sessionPrompt(s sessions.Session) string {
	achievements := s.AchievementText()
	if achievements == "" {
		achievements = "None"
	}
	return "Create an engaging shout-out post for a ruck session:\n" +
		"User: " + s.User + "\n" +
		"Distance: " + strconv.FormatFloat(s.DistanceMiles, 'f', 1, 64) + " miles\n" +
		"Duration: " + s.Duration().String() + "\n" +
		"Achievements: " + achievements + "\n" +
		"Include relevant emojis and hashtags. Keep it under 280 characters."
}

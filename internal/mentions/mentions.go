// Package mentions polls the platform for mentions of the managed account
// and replies with sentiment-conditioned content.
package mentions

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/getrucky/marketing-agent/internal/budget"
	"github.com/getrucky/marketing-agent/internal/config"
	"github.com/getrucky/marketing-agent/internal/content"
	aerrors "github.com/getrucky/marketing-agent/internal/errors"
	"github.com/getrucky/marketing-agent/internal/generator"
	"github.com/getrucky/marketing-agent/internal/metrics"
	"github.com/getrucky/marketing-agent/internal/platform"
	"github.com/getrucky/marketing-agent/internal/sentiment"
	"github.com/getrucky/marketing-agent/internal/store"
)

// InteractionStore persists processed mentions.
type InteractionStore interface {
	SaveInteraction(ctx context.Context, in *store.Interaction) error
	GetInteraction(ctx context.Context, externalID string) (*store.Interaction, error)
	CountInteractionsSince(ctx context.Context, since time.Time) (int, error)
}

// Config holds the polling loop tunables.
type Config struct {
	PollInterval      time.Duration // between successful polls
	ErrorInterval     time.Duration // after a failed poll
	MaxRepliesPerHour int
	MaxPostLength     int
}

// Monitor runs the mention polling loop.
type Monitor struct {
	cfg      Config
	policy   *config.Policy
	client   platform.Client
	resolver *generator.Resolver
	budget   *budget.Tracker
	store    InteractionStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	sinceID string
}

// New creates a Monitor.
func New(cfg Config, policy *config.Policy, client platform.Client,
	resolver *generator.Resolver, tracker *budget.Tracker,
	interactions InteractionStore, m *metrics.Metrics,
	rng *rand.Rand, logger zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		policy:   policy,
		client:   client,
		resolver: resolver,
		budget:   tracker,
		store:    interactions,
		metrics:  m,
		rng:      rng,
		logger:   logger.With().Str("component", "mentions").Logger(),
	}
}

// Run polls until the context is cancelled. Poll failures back off to the
// error interval instead of stopping the loop.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info().Dur("interval", m.cfg.PollInterval).Msg("mention monitor started")

	for {
		wait := m.cfg.PollInterval
		if err := m.Poll(ctx); err != nil {
			m.logger.Error().Err(err).Msg("poll failed")
			wait = m.cfg.ErrorInterval
		}

		select {
		case <-ctx.Done():
			m.logger.Info().Msg("mention monitor stopped")
			return
		case <-time.After(wait):
		}
	}
}

// Poll fetches and processes one batch of mentions, oldest first. The
// since-id cursor only moves past mentions that were handled; deferred
// mentions are re-fetched by the next poll.
func (m *Monitor) Poll(ctx context.Context) error {
	mentions, err := m.client.Mentions(ctx, m.cursor())
	if err != nil {
		return err
	}
	if len(mentions) == 0 {
		return nil
	}

	replied, err := m.store.CountInteractionsSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		return err
	}

	for _, mention := range mentions {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Cap and budget deferrals leave the cursor in place so the rest
		// of the batch is retried on the next poll.
		if replied >= m.cfg.MaxRepliesPerHour {
			m.logger.Warn().Int("cap", m.cfg.MaxRepliesPerHour).Msg("hourly reply cap reached, deferring batch")
			return nil
		}

		seen, err := m.store.GetInteraction(ctx, mention.ID)
		if err != nil {
			m.logger.Error().Err(err).Str("mention_id", mention.ID).Msg("looking up interaction")
			m.advanceCursor(mention.ID)
			continue
		}
		if seen != nil {
			m.advanceCursor(mention.ID)
			continue
		}

		sent, err := m.reply(ctx, mention)
		if err != nil {
			if aerrors.IsAuth(err) {
				return err
			}
			m.logger.Warn().Err(err).Str("mention_id", mention.ID).Msg("reply failed")
			m.advanceCursor(mention.ID)
			continue
		}
		if !sent {
			return nil
		}
		m.advanceCursor(mention.ID)
		replied++
	}
	return nil
}

// reply classifies the mention and posts a sentiment-matched reply. It
// returns false without error when the post budget is throttled; the caller
// must then hold the cursor so the mention is retried.
func (m *Monitor) reply(ctx context.Context, mention platform.Tweet) (bool, error) {
	if status := m.budget.Check(ctx, "post"); status.Throttled {
		m.logger.Warn().Dur("wait", status.Wait).Msg("post budget throttled, deferring replies")
		m.metrics.RecordThrottled("post")
		return false, nil
	}

	label, sctx := sentiment.Classify(mention.Text)

	m.mu.Lock()
	kind := sentiment.ReplyKind(label, m.policy, m.rng)
	m.mu.Unlock()

	text, _, err := m.resolver.Resolve(ctx, generator.Request{
		System: content.SystemPrompt,
		Prompt: "Reply to this " + string(label) + " mention with a rucking " + kind +
			" in a friendly, on-brand voice, <240 characters. Mention: " + mention.Text,
		MaxLength: m.cfg.MaxPostLength,
	}, "reply", label.ReplyCategory())
	if err != nil {
		return false, err
	}

	if mention.AuthorUsername != "" {
		text = "@" + mention.AuthorUsername + " " + text
	}
	text = generator.Truncate(text, m.cfg.MaxPostLength)

	posted, err := m.client.Reply(ctx, text, mention.ID)
	m.budget.Record(ctx, "post")
	if err != nil {
		return false, err
	}

	record := &store.Interaction{
		ExternalID:    mention.ID,
		ReplyText:     text,
		Sentiment:     string(label),
		ContentKind:   kind,
		Polarity:      sctx.Polarity,
		Subjectivity:  sctx.Subjectivity,
		IsQuestion:    sctx.IsQuestion,
		MentionsTopic: sctx.MentionsRuck,
		HasEmoji:      sctx.HasEmoji,
		TextLength:    sctx.Length,
	}
	if !mention.CreatedAt.IsZero() {
		record.SourceCreatedAt = mention.CreatedAt.UnixMilli()
	}
	if err := m.store.SaveInteraction(ctx, record); err != nil {
		m.logger.Error().Err(err).Str("mention_id", mention.ID).Msg("saving interaction")
	}

	m.logger.Info().
		Str("mention_id", mention.ID).
		Str("sentiment", string(label)).
		Str("reply_id", posted.ID).
		Msg("replied")
	m.metrics.RecordReply(string(label.Base()))
	return true, nil
}

func (m *Monitor) cursor() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sinceID
}

func (m *Monitor) advanceCursor(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinceID = id
}

// Package engage implements the periodic community engagement sweep: liking,
// retweeting and commenting on posts that mention rucking.
package engage

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/getrucky/marketing-agent/internal/budget"
	"github.com/getrucky/marketing-agent/internal/content"
	"github.com/getrucky/marketing-agent/internal/generator"
	"github.com/getrucky/marketing-agent/internal/metrics"
	"github.com/getrucky/marketing-agent/internal/platform"
)

// EngagementStore persists engagement actions; the weekly comment budget is
// counted from it.
type EngagementStore interface {
	LogEngagement(ctx context.Context, postID, action string) error
	CountEngagementSince(ctx context.Context, action string, since time.Time) (int, error)
}

// Config holds sweep tunables.
type Config struct {
	SearchTerms      []string
	RetweetAccounts  []string
	LikeProbability  float64 // chance of liking an eligible post
	MinLikes         int     // engagement floor for eligibility
	MinFollowers     int     // retweet threshold for unknown authors
	WeeklyCommentCap int
	MaxResults       int
	MaxPostLength    int
}

// Sweeper runs engagement sweeps.
type Sweeper struct {
	cfg      Config
	client   platform.Client
	resolver *generator.Resolver
	budget   *budget.Tracker
	store    EngagementStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	self string // own username, resolved once
}

// New creates a Sweeper.
func New(cfg Config, client platform.Client, resolver *generator.Resolver,
	tracker *budget.Tracker, store EngagementStore, m *metrics.Metrics,
	rng *rand.Rand, logger zerolog.Logger) *Sweeper {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &Sweeper{
		cfg:      cfg,
		client:   client,
		resolver: resolver,
		budget:   tracker,
		store:    store,
		metrics:  m,
		rng:      rng,
		logger:   logger.With().Str("component", "engage").Logger(),
	}
}

// Sweep runs one engagement pass. Individual action failures are logged and
// skipped; the sweep continues with the remaining posts.
func (s *Sweeper) Sweep(ctx context.Context) {
	if len(s.cfg.SearchTerms) == 0 {
		return
	}

	if status := s.budget.Check(ctx, "search"); status.Throttled {
		s.logger.Warn().Dur("wait", status.Wait).Msg("search budget throttled, skipping sweep")
		s.metrics.RecordThrottled("search")
		return
	}

	s.mu.Lock()
	term := s.cfg.SearchTerms[s.rng.Intn(len(s.cfg.SearchTerms))]
	s.mu.Unlock()

	tweets, err := s.client.Search(ctx, term, s.cfg.MaxResults)
	s.budget.Record(ctx, "search")
	if err != nil {
		s.logger.Error().Err(err).Str("term", term).Msg("search failed")
		return
	}
	s.logger.Info().Str("term", term).Int("results", len(tweets)).Msg("sweep start")

	// Follower counts are cached for the duration of one sweep.
	followers := make(map[string]int)

	for _, tweet := range tweets {
		if ctx.Err() != nil {
			return
		}
		if tweet.Likes < s.cfg.MinLikes || s.isSelf(ctx, tweet) {
			continue
		}

		s.maybeLike(ctx, tweet)
		s.maybeRetweet(ctx, tweet, followers)
		s.maybeComment(ctx, tweet)
	}
}

func (s *Sweeper) isSelf(ctx context.Context, tweet platform.Tweet) bool {
	if s.self == "" {
		me, err := s.client.Me(ctx)
		if err != nil {
			return false
		}
		s.self = me.Username
	}
	return tweet.AuthorUsername == s.self
}

func (s *Sweeper) maybeLike(ctx context.Context, tweet platform.Tweet) {
	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()
	if roll >= s.cfg.LikeProbability {
		return
	}

	if status := s.budget.Check(ctx, "like"); status.Throttled {
		s.metrics.RecordThrottled("like")
		return
	}

	err := s.client.Like(ctx, tweet.ID)
	s.budget.Record(ctx, "like")
	if err != nil {
		s.logger.Warn().Err(err).Str("tweet_id", tweet.ID).Msg("like failed")
		s.metrics.RecordEngagement("like", "error")
		return
	}

	s.logEngagement(ctx, tweet.ID, "like")
	s.metrics.RecordEngagement("like", "ok")
}

func (s *Sweeper) maybeRetweet(ctx context.Context, tweet platform.Tweet, followers map[string]int) {
	if !s.retweetEligible(ctx, tweet, followers) {
		return
	}

	if status := s.budget.Check(ctx, "retweet"); status.Throttled {
		s.metrics.RecordThrottled("retweet")
		return
	}

	err := s.client.Retweet(ctx, tweet.ID)
	s.budget.Record(ctx, "retweet")
	if err != nil {
		s.logger.Warn().Err(err).Str("tweet_id", tweet.ID).Msg("retweet failed")
		s.metrics.RecordEngagement("retweet", "error")
		return
	}

	s.logEngagement(ctx, tweet.ID, "retweet")
	s.metrics.RecordEngagement("retweet", "ok")
}

func (s *Sweeper) retweetEligible(ctx context.Context, tweet platform.Tweet, followers map[string]int) bool {
	for _, account := range s.cfg.RetweetAccounts {
		if tweet.AuthorUsername == account {
			return true
		}
	}
	if tweet.AuthorUsername == "" {
		return false
	}

	count, ok := followers[tweet.AuthorUsername]
	if !ok {
		user, err := s.client.UserByUsername(ctx, tweet.AuthorUsername)
		if err != nil {
			s.logger.Warn().Err(err).Str("user", tweet.AuthorUsername).Msg("follower lookup failed")
			followers[tweet.AuthorUsername] = 0
			return false
		}
		count = user.Followers
		followers[tweet.AuthorUsername] = count
	}
	return count > s.cfg.MinFollowers
}

// maybeComment replies to the tweet if the durable weekly comment budget
// allows it.
func (s *Sweeper) maybeComment(ctx context.Context, tweet platform.Tweet) {
	used, err := s.store.CountEngagementSince(ctx, "comment", startOfWeek(time.Now().UTC()))
	if err != nil {
		s.logger.Error().Err(err).Msg("counting weekly comments")
		return
	}
	if used >= s.cfg.WeeklyCommentCap {
		return
	}

	if status := s.budget.Check(ctx, "post"); status.Throttled {
		s.metrics.RecordThrottled("post")
		return
	}

	text, _, err := s.resolver.Resolve(ctx, generator.Request{
		System:    content.SystemPrompt,
		Prompt:    "Generate an engaging comment for a user's ruck post, <280 characters. Their post: " + tweet.Text,
		MaxLength: s.cfg.MaxPostLength,
	}, "cross-post", "ugc")
	if err != nil || text == "" {
		return
	}

	_, err = s.client.Reply(ctx, text, tweet.ID)
	s.budget.Record(ctx, "post")
	if err != nil {
		s.logger.Warn().Err(err).Str("tweet_id", tweet.ID).Msg("comment failed")
		s.metrics.RecordEngagement("comment", "error")
		return
	}

	s.logEngagement(ctx, tweet.ID, "comment")
	s.metrics.RecordEngagement("comment", "ok")
}

func (s *Sweeper) logEngagement(ctx context.Context, postID, action string) {
	if err := s.store.LogEngagement(ctx, postID, action); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("logging engagement")
	}
}

// startOfWeek returns midnight UTC of the Monday of t's ISO week.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday closes the ISO week
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(weekday - 1))
}

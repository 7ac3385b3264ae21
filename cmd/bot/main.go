package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/getrucky/marketing-agent/internal/budget"
	"github.com/getrucky/marketing-agent/internal/config"
	"github.com/getrucky/marketing-agent/internal/content"
	"github.com/getrucky/marketing-agent/internal/engage"
	"github.com/getrucky/marketing-agent/internal/generator"
	"github.com/getrucky/marketing-agent/internal/health"
	"github.com/getrucky/marketing-agent/internal/mentions"
	"github.com/getrucky/marketing-agent/internal/metrics"
	"github.com/getrucky/marketing-agent/internal/moderation"
	"github.com/getrucky/marketing-agent/internal/ops"
	"github.com/getrucky/marketing-agent/internal/platform"
	"github.com/getrucky/marketing-agent/internal/poster"
	"github.com/getrucky/marketing-agent/internal/scheduler"
	"github.com/getrucky/marketing-agent/internal/sessions"
	"github.com/getrucky/marketing-agent/internal/store"
	"github.com/getrucky/marketing-agent/internal/template"
	"github.com/getrucky/marketing-agent/internal/xai"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Load content policy (falls back to the embedded default)
	policy, err := config.LoadPolicy(cfg.ContentPolicyPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.ContentPolicyPath).
			Msg("content policy not loaded, using built-in default")
		policy = config.DefaultPolicy()
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("account", cfg.Mention()).
		Str("ops_addr", cfg.OpsListenAddr).
		Bool("generation_enabled", cfg.GenerationEnabled()).
		Bool("sessions_enabled", cfg.SessionsEnabled()).
		Msg("starting marketing agent")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// SQLite store
	db, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open store")
	}

	seeds := make([]store.Template, 0, len(policy.Templates))
	for _, t := range policy.Templates {
		seeds = append(seeds, store.Template{Kind: t.Kind, Category: t.Category, Text: t.Text})
	}
	if err := db.SeedTemplates(ctx, seeds); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed templates")
	}

	// Rate budgets from the policy's limit table
	limits := make(map[string]budget.Limit, len(policy.Limits))
	for surface, l := range policy.Limits {
		limits[surface] = budget.Limit{Limit: l.Limit, Window: l.Window.Std()}
	}
	tracker := budget.New(db, limits, logger)

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("store", func(ctx context.Context) health.Status {
		if err := db.DB().PingContext(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// Generation provider (if configured)
	var provider generator.Provider
	if cfg.GenerationEnabled() {
		provider = xai.NewClient(cfg.XAIAPIKey, logger,
			xai.WithModel(cfg.XAIModel),
			xai.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		)
		logger.Info().Str("model", cfg.XAIModel).Msg("xAI client initialized")
	} else {
		provider = disabledProvider{}
		logger.Info().Msg("xAI not configured — posts will use cached and template content")
	}

	genCfg := generator.DefaultConfig()
	genCfg.CacheTTL = cfg.CacheTTL
	genCfg.Retry.MaxAttempts = cfg.RetryAttempts
	gen := generator.New(provider, db, tracker, genCfg, logger)

	templates := template.New(db, logger)
	resolver := generator.NewResolver(gen, templates, logger)

	// X platform client
	xClient := platform.NewXClient(cfg.XBearerToken, cfg.XAccessToken, logger,
		platform.WithXHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)
	checker.Register("x", func(ctx context.Context) health.Status {
		if _, err := xClient.UserByUsername(ctx, cfg.XAccountHandle); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// Rucking app sessions client (optional)
	var source poster.SessionSource
	if cfg.SessionsEnabled() {
		sessClient := sessions.NewClient(cfg.AppAPIBase, cfg.AppAPIToken, logger,
			sessions.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		)
		source = sessClient
		checker.Register("sessions", func(ctx context.Context) health.Status {
			if _, err := sessClient.Recent(ctx, 1); err != nil {
				return health.StatusDown
			}
			return health.StatusOK
		})
		logger.Info().Str("base", cfg.AppAPIBase).Msg("session client initialized")
	} else {
		logger.Info().Msg("rucking app API not configured — session posts degrade to regular posts")
	}

	m := metrics.New()
	filter := moderation.NewFilter(policy.Blocklist, db, logger)
	selector := content.NewSelector(policy, logger)
	prompts := content.NewPrompts(policy)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	post := poster.New(selector, prompts, resolver, templates, filter, tracker,
		xClient, source, m, cfg.MaxPostLength, rng, logger)

	sweeper := engage.New(engage.Config{
		SearchTerms:      policy.SearchTerms,
		RetweetAccounts:  policy.RetweetAccounts,
		LikeProbability:  cfg.LikeProbability,
		MinLikes:         cfg.MinLikes,
		MinFollowers:     cfg.MinFollowers,
		WeeklyCommentCap: cfg.WeeklyCommentCap,
		MaxPostLength:    cfg.MaxPostLength,
	}, xClient, resolver, tracker, db, m, rng, logger)

	// WaitGroup for in-flight work
	var wg sync.WaitGroup

	// Mention monitor (needs user-context credentials to reply)
	if cfg.XEnabled() {
		monitor := mentions.New(mentions.Config{
			PollInterval:      cfg.MentionPollInterval,
			ErrorInterval:     cfg.MentionErrorInterval,
			MaxRepliesPerHour: cfg.MaxRepliesPerHour,
			MaxPostLength:     cfg.MaxPostLength,
		}, policy, xClient, resolver, tracker, db, m, rng, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			monitor.Run(ctx)
		}()
	} else {
		logger.Info().Msg("X write credentials not configured — mention replies disabled")
	}

	// Scheduler drives the daily posting plan and the periodic jobs
	jobs := &runner{
		poster:  post,
		sweeper: sweeper,
		store:   db,
		metrics: m,
		ttl:     cfg.CacheTTL,
		logger:  logger,
	}
	sched := scheduler.New(ctx, scheduler.Config{
		MinPostsPerDay:  cfg.MinPostsPerDay,
		MaxPostsPerDay:  cfg.MaxPostsPerDay,
		PostHours:       policy.PostHours,
		EngagementEvery: cfg.EngagementEvery,
		RetentionEvery:  cfg.RetentionEvery,
	}, jobs, rng, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	// Ops API server
	handlers := ops.NewHandlers(db, tracker, checker, sched, cfg.CacheTTL, logger)
	opsServer := ops.NewServer(ops.ServerConfig{
		ListenAddr: cfg.OpsListenAddr,
		APIKey:     cfg.OpsAPIKey,
	}, handlers, m, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := opsServer.Start(); err != nil {
			logger.Error().Err(err).Msg("ops API server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	// Cancel context to signal all goroutines
	cancel()

	sched.Stop()

	if err := opsServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("ops API server shutdown error")
	}

	// Wait for in-flight work to complete
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	// The store closes last; a draining mention poll may still write to it.
	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("store close error")
	}

	logger.Info().Msg("marketing agent stopped")
}

// runner bridges the scheduler's job slots to their implementations.
type runner struct {
	poster  *poster.Poster
	sweeper *engage.Sweeper
	store   *store.Store
	metrics *metrics.Metrics
	ttl     time.Duration
	logger  zerolog.Logger
}

func (r *runner) RegularPost(ctx context.Context)     { r.poster.RegularPost(ctx) }
func (r *runner) SessionPost(ctx context.Context)     { r.poster.SessionPost(ctx) }
func (r *runner) EngagementSweep(ctx context.Context) { r.sweeper.Sweep(ctx) }

func (r *runner) Retention(ctx context.Context) {
	if err := r.store.RunRetention(ctx, r.ttl); err != nil {
		r.logger.Error().Err(err).Msg("retention run failed")
	}
	if stats, err := r.store.CacheStats(ctx, r.ttl); err == nil {
		r.metrics.SetCacheEntries(float64(stats.FreshEntries))
	}
}

// disabledProvider stands in when no xAI key is configured. Its error is not
// retryable, so the fallback chain moves straight to templates.
type disabledProvider struct{}

func (disabledProvider) Complete(context.Context, string, string, int) (string, error) {
	return "", fmt.Errorf("generation disabled: XAI_API_KEY not set")
}

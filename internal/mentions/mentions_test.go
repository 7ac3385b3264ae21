package mentions

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getrucky/marketing-agent/internal/budget"
	"github.com/getrucky/marketing-agent/internal/config"
	"github.com/getrucky/marketing-agent/internal/generator"
	"github.com/getrucky/marketing-agent/internal/metrics"
	"github.com/getrucky/marketing-agent/internal/platform"
	"github.com/getrucky/marketing-agent/internal/retry"
	"github.com/getrucky/marketing-agent/internal/store"
	"github.com/getrucky/marketing-agent/internal/template"
)

// ---- fakes ----

type fakePlatform struct {
	mu          sync.Mutex
	mentionsOut []platform.Tweet
	mentionsErr error
	sinceIDs    []string
	replies     map[string]string // mention id -> reply text
	replyErr    error
}

func newFakePlatform(mentions ...platform.Tweet) *fakePlatform {
	return &fakePlatform{mentionsOut: mentions, replies: make(map[string]string)}
}

func (f *fakePlatform) Post(context.Context, string) (platform.Tweet, error) {
	return platform.Tweet{}, nil
}

func (f *fakePlatform) Reply(_ context.Context, text, id string) (platform.Tweet, error) {
	if f.replyErr != nil {
		return platform.Tweet{}, f.replyErr
	}
	f.mu.Lock()
	f.replies[id] = text
	f.mu.Unlock()
	return platform.Tweet{ID: "r-" + id, Text: text}, nil
}

func (f *fakePlatform) Like(context.Context, string) error    { return nil }
func (f *fakePlatform) Retweet(context.Context, string) error { return nil }
func (f *fakePlatform) Search(context.Context, string, int) ([]platform.Tweet, error) {
	return nil, nil
}

func (f *fakePlatform) Mentions(_ context.Context, sinceID string) ([]platform.Tweet, error) {
	f.mu.Lock()
	f.sinceIDs = append(f.sinceIDs, sinceID)
	f.mu.Unlock()
	return f.mentionsOut, f.mentionsErr
}

func (f *fakePlatform) UserByUsername(context.Context, string) (platform.User, error) {
	return platform.User{}, nil
}

func (f *fakePlatform) Me(context.Context) (platform.User, error) {
	return platform.User{ID: "42", Username: "getrucky"}, nil
}

type memInteractions struct {
	mu   sync.Mutex
	rows map[string]*store.Interaction
}

func newMemInteractions() *memInteractions {
	return &memInteractions{rows: make(map[string]*store.Interaction)}
}

func (m *memInteractions) SaveInteraction(_ context.Context, in *store.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *in
	m.rows[in.ExternalID] = &cp
	return nil
}

func (m *memInteractions) GetInteraction(_ context.Context, id string) (*store.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id], nil
}

func (m *memInteractions) CountInteractionsSince(context.Context, time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

type fixedProvider struct{ text string }

func (p fixedProvider) Complete(context.Context, string, string, int) (string, error) {
	return p.text, nil
}

type recordingProvider struct {
	mu      sync.Mutex
	text    string
	prompts []string
}

func (p *recordingProvider) Complete(_ context.Context, _, prompt string, _ int) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()
	return p.text, nil
}

type nilCache struct{}

func (nilCache) GetCachedResponse(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, nil
}
func (nilCache) PutCachedResponse(context.Context, string, string) error { return nil }

type memUsage struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemUsage() *memUsage { return &memUsage{counts: make(map[string]int)} }

func (m *memUsage) RecordUsage(_ context.Context, surface, _ string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[surface]++
	return nil
}

func (m *memUsage) CountUsageSince(_ context.Context, surface string, _ time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[surface], nil
}

type replyTemplates struct{}

func (replyTemplates) RandomTemplate(_ context.Context, kind, category string) (string, bool, error) {
	return "Thanks for the mention! Ruck on! 🥾", true, nil
}

// ---- wiring ----

type monitorOpts struct {
	usage    *memUsage
	provider generator.Provider
	policy   *config.Policy
}

func buildMonitor(t *testing.T, client *fakePlatform, interactions *memInteractions, cfg Config, opts monitorOpts) *Monitor {
	t.Helper()
	logger := zerolog.Nop()

	if opts.usage == nil {
		opts.usage = newMemUsage()
	}
	if opts.provider == nil {
		opts.provider = fixedProvider{text: "Love the energy, keep rucking! 🥾"}
	}
	if opts.policy == nil {
		opts.policy = config.DefaultPolicy()
	}

	tracker := budget.New(opts.usage, map[string]budget.Limit{
		"post":     {Limit: 50, Window: time.Hour},
		"generate": {Limit: 100, Window: time.Hour},
	}, logger)

	genCfg := generator.DefaultConfig()
	genCfg.Retry = retry.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	gen := generator.New(opts.provider, nilCache{}, tracker, genCfg, logger)
	resolver := generator.NewResolver(gen, template.New(replyTemplates{}, logger), logger)

	return New(cfg, opts.policy, client, resolver, tracker,
		interactions, metrics.New(), rand.New(rand.NewSource(1)), logger)
}

func newMonitor(t *testing.T, client *fakePlatform, interactions *memInteractions, cfg Config) *Monitor {
	return buildMonitor(t, client, interactions, cfg, monitorOpts{})
}

func defaultConfig() Config {
	return Config{
		PollInterval:      5 * time.Minute,
		ErrorInterval:     10 * time.Minute,
		MaxRepliesPerHour: 50,
		MaxPostLength:     280,
	}
}

func mention(id, author, text string) platform.Tweet {
	return platform.Tweet{ID: id, AuthorUsername: author, Text: text, CreatedAt: time.Now()}
}

// ---- tests ----

func TestPoll_RepliesWithUserPrefix(t *testing.T) {
	client := newFakePlatform(mention("1", "fan", "Love my new ruck! This is awesome!"))
	interactions := newMemInteractions()

	m := newMonitor(t, client, interactions, defaultConfig())
	require.NoError(t, m.Poll(context.Background()))

	require.Contains(t, client.replies, "1")
	assert.True(t, strings.HasPrefix(client.replies["1"], "@fan "))

	record := interactions.rows["1"]
	require.NotNil(t, record)
	assert.Equal(t, "ruck_very_positive", record.Sentiment)
	assert.True(t, record.MentionsTopic)
	assert.NotEmpty(t, record.ContentKind)
}

func TestPoll_SkipsAlreadyProcessed(t *testing.T) {
	client := newFakePlatform(mention("1", "fan", "hello again"))
	interactions := newMemInteractions()
	interactions.rows["1"] = &store.Interaction{ExternalID: "1"}

	m := newMonitor(t, client, interactions, defaultConfig())
	require.NoError(t, m.Poll(context.Background()))

	assert.Empty(t, client.replies)
}

func TestPoll_AdvancesSinceID(t *testing.T) {
	client := newFakePlatform(
		mention("10", "a", "first"),
		mention("11", "b", "second"),
	)
	m := newMonitor(t, client, newMemInteractions(), defaultConfig())

	require.NoError(t, m.Poll(context.Background()))
	require.NoError(t, m.Poll(context.Background()))

	require.Len(t, client.sinceIDs, 2)
	assert.Equal(t, "", client.sinceIDs[0])
	assert.Equal(t, "11", client.sinceIDs[1])
}

func TestPoll_HourlyReplyCap(t *testing.T) {
	client := newFakePlatform(
		mention("1", "a", "one"),
		mention("2", "b", "two"),
	)
	interactions := newMemInteractions()
	cfg := defaultConfig()
	cfg.MaxRepliesPerHour = 1

	m := newMonitor(t, client, interactions, cfg)
	require.NoError(t, m.Poll(context.Background()))

	assert.Len(t, client.replies, 1)
	assert.Equal(t, "1", m.cursor(), "capped mentions stay behind the cursor for the next poll")
}

func TestPoll_ThrottledBudgetHoldsCursor(t *testing.T) {
	client := newFakePlatform(
		mention("m1", "a", "one"),
		mention("m2", "b", "two"),
	)
	interactions := newMemInteractions()
	usage := newMemUsage()
	usage.counts["post"] = 40 // soft ceiling of the 50/hour limit

	m := buildMonitor(t, client, interactions, defaultConfig(), monitorOpts{usage: usage})
	require.NoError(t, m.Poll(context.Background()))

	assert.Empty(t, client.replies)
	assert.Empty(t, interactions.rows)
	assert.Equal(t, "", m.cursor(), "deferred mentions are re-fetched, not dropped")

	// Once the budget clears, the same batch is processed.
	usage.mu.Lock()
	usage.counts["post"] = 0
	usage.mu.Unlock()
	require.NoError(t, m.Poll(context.Background()))

	assert.Len(t, client.replies, 2)
	assert.Equal(t, "m2", m.cursor())
}

func TestReply_PromptCarriesDrawnKind(t *testing.T) {
	for _, kind := range []string{"meme", "challenge"} {
		t.Run(kind, func(t *testing.T) {
			client := newFakePlatform(mention("1", "fan", "Love my new ruck! This is awesome!"))
			provider := &recordingProvider{text: "On it! 🥾"}

			policy := config.DefaultPolicy()
			policy.Weights = []config.WeightEntry{{Kind: kind, Weight: 1}}

			m := buildMonitor(t, client, newMemInteractions(), defaultConfig(),
				monitorOpts{provider: provider, policy: policy})
			require.NoError(t, m.Poll(context.Background()))

			require.Len(t, provider.prompts, 1)
			assert.Contains(t, provider.prompts[0], "rucking "+kind)
		})
	}
}

func TestPoll_ReturnsFetchError(t *testing.T) {
	client := newFakePlatform()
	client.mentionsErr = errors.New("network down")

	m := newMonitor(t, client, newMemInteractions(), defaultConfig())
	assert.Error(t, m.Poll(context.Background()))
}

func TestPoll_ReplyFailureContinues(t *testing.T) {
	client := newFakePlatform(
		mention("1", "a", "one"),
		mention("2", "b", "two"),
	)
	client.replyErr = errors.New("flaky")

	m := newMonitor(t, client, newMemInteractions(), defaultConfig())
	require.NoError(t, m.Poll(context.Background()))

	assert.Equal(t, "2", m.cursor(), "cursor advances past failed mentions")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	client := newFakePlatform()
	m := newMonitor(t, client, newMemInteractions(), defaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop on cancel")
	}
}

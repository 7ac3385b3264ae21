package poster

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
	"github.com/getrucky/marketing-agent/internal/content"
	aerrors "github.com/getrucky/marketing-agent/internal/errors"
	"github.com/getrucky/marketing-agent/internal/generator"
	"github.com/getrucky/marketing-agent/internal/metrics"
	"github.com/getrucky/marketing-agent/internal/moderation"
	"github.com/getrucky/marketing-agent/internal/platform"
	"github.com/getrucky/marketing-agent/internal/retry"
	"github.com/getrucky/marketing-agent/internal/sessions"
	"github.com/getrucky/marketing-agent/internal/template"
)

// ---- fakes ----

type fakeProvider struct {
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Complete(context.Context, string, string, int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]string)} }

func (m *memCache) GetCachedResponse(_ context.Context, prompt string, _ time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[prompt]
	return v, ok, nil
}

func (m *memCache) PutCachedResponse(_ context.Context, prompt, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[prompt] = response
	return nil
}

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

type fakeTemplateRows struct{ policy *config.Policy }

func (f fakeTemplateRows) RandomTemplate(_ context.Context, kind, category string) (string, bool, error) {
	for _, t := range f.policy.Templates {
		if t.Kind == kind && t.Category == category {
			return t.Text, true, nil
		}
	}
	return "", false, nil
}

type noFlags struct{}

func (noFlags) LogFlag(context.Context, string, string) error { return nil }

type fakePlatform struct {
	mu    sync.Mutex
	posts []string
	err   error
}

func (f *fakePlatform) Post(_ context.Context, text string) (platform.Tweet, error) {
	if f.err != nil {
		return platform.Tweet{}, f.err
	}
	f.mu.Lock()
	f.posts = append(f.posts, text)
	f.mu.Unlock()
	return platform.Tweet{ID: "1", Text: text}, nil
}

func (f *fakePlatform) Reply(context.Context, string, string) (platform.Tweet, error) {
	return platform.Tweet{}, nil
}
func (f *fakePlatform) Like(context.Context, string) error    { return nil }
func (f *fakePlatform) Retweet(context.Context, string) error { return nil }
func (f *fakePlatform) Search(context.Context, string, int) ([]platform.Tweet, error) {
	return nil, nil
}
func (f *fakePlatform) Mentions(context.Context, string) ([]platform.Tweet, error) {
	return nil, nil
}
func (f *fakePlatform) UserByUsername(context.Context, string) (platform.User, error) {
	return platform.User{}, nil
}
func (f *fakePlatform) Me(context.Context) (platform.User, error) {
	return platform.User{ID: "42", Username: "getrucky"}, nil
}

type fakeSessions struct {
	sessions []sessions.Session
	err      error
}

func (f *fakeSessions) Recent(context.Context, int) ([]sessions.Session, error) {
	return f.sessions, f.err
}

// ---- wiring ----

type fixture struct {
	poster   *Poster
	platform *fakePlatform
	usage    *memUsage
}

func newFixture(t *testing.T, provider generator.Provider, source SessionSource, blocklist []string) *fixture {
	return newPolicyFixture(t, provider, source, blocklist, config.DefaultPolicy())
}

func newPolicyFixture(t *testing.T, provider generator.Provider, source SessionSource,
	blocklist []string, policy *config.Policy) *fixture {
	t.Helper()
	logger := zerolog.Nop()

	usage := newMemUsage()
	limits := map[string]budget.Limit{
		"post":     {Limit: 50, Window: time.Hour},
		"generate": {Limit: 100, Window: time.Hour},
	}
	tracker := budget.New(usage, limits, logger)

	genCfg := generator.DefaultConfig()
	genCfg.Retry = retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	gen := generator.New(provider, newMemCache(), tracker, genCfg, logger).
		WithSleeper(func(context.Context, time.Duration) error { return nil })

	templates := template.New(fakeTemplateRows{policy: policy}, logger)
	resolver := generator.NewResolver(gen, templates, logger)
	client := &fakePlatform{}

	p := New(
		content.NewSelector(policy, logger),
		content.NewPrompts(policy),
		resolver,
		templates,
		moderation.NewFilter(blocklist, noFlags{}, logger),
		tracker,
		client,
		source,
		metrics.New(),
		280,
		rand.New(rand.NewSource(1)),
		logger,
	)
	return &fixture{poster: p, platform: client, usage: usage}
}

// ---- tests ----

func TestRegularPost_Publishes(t *testing.T) {
	fx := newFixture(t, &fakeProvider{text: "Ruck harder, smile wider! 🥾 #GetRucky"}, nil, nil)

	fx.poster.RegularPost(context.Background())

	require.Len(t, fx.platform.posts, 1)
	assert.Equal(t, "Ruck harder, smile wider! 🥾 #GetRucky", fx.platform.posts[0])
	assert.Equal(t, 1, fx.usage.counts["post"])
	assert.Equal(t, 1, fx.usage.counts["generate"])
}

func TestRegularPost_TemplateFallbackOnProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: aerrors.NewAPIError("xai", 503, "down")}
	fx := newFixture(t, provider, nil, nil)

	fx.poster.RegularPost(context.Background())

	require.Len(t, fx.platform.posts, 1)
	assert.NotEmpty(t, fx.platform.posts[0])
	assert.Zero(t, fx.usage.counts["generate"], "failed calls are not recorded")
}

func TestRegularPost_PromptlessKindUsesTemplatesOnly(t *testing.T) {
	provider := &fakeProvider{text: "should stay unused"}
	policy := config.DefaultPolicy()
	policy.Weights = []config.WeightEntry{{Kind: "poll", Weight: 1}}
	policy.ThemeChance = 0
	policy.MapPostDays = nil
	delete(policy.Prompts, "poll")

	fx := newPolicyFixture(t, provider, nil, nil, policy)
	fx.poster.RegularPost(context.Background())

	require.Len(t, fx.platform.posts, 1)
	assert.NotEmpty(t, fx.platform.posts[0])
	assert.Zero(t, provider.calls, "no provider call without a prompt")
	assert.Zero(t, fx.usage.counts["generate"])
}

func TestRegularPost_FlaggedContentIsNotPublished(t *testing.T) {
	fx := newFixture(t, &fakeProvider{text: "buy my spam product now"}, nil, []string{"spam"})

	fx.poster.RegularPost(context.Background())

	assert.Empty(t, fx.platform.posts)
	assert.Zero(t, fx.usage.counts["post"])
}

func TestRegularPost_SkipsWhenThrottled(t *testing.T) {
	fx := newFixture(t, &fakeProvider{text: "never posted"}, nil, nil)
	for i := 0; i < 45; i++ { // 45 >= 0.8 * 50
		fx.usage.RecordUsage(context.Background(), "post", "", true)
	}

	fx.poster.RegularPost(context.Background())

	assert.Empty(t, fx.platform.posts)
	assert.Equal(t, 45, fx.usage.counts["post"])
}

func TestSessionPost_FillsTemplatePlaceholders(t *testing.T) {
	provider := &fakeProvider{err: aerrors.NewAPIError("xai", 503, "down")}
	source := &fakeSessions{sessions: []sessions.Session{
		{ID: "s1", User: "alice", DistanceMiles: 12.5, DurationSeconds: 7200, StreakDays: 8},
	}}
	fx := newFixture(t, provider, source, nil)

	fx.poster.SessionPost(context.Background())

	require.Len(t, fx.platform.posts, 1)
	post := fx.platform.posts[0]
	assert.Contains(t, post, "alice")
	assert.Contains(t, post, "12.5")
	assert.NotContains(t, post, "{", "all placeholders filled")
	assert.Contains(t, post, "🏆", "achievements earn the trophy emoji")
}

func TestSessionPost_DegradesToRegularOnError(t *testing.T) {
	source := &fakeSessions{err: errors.New("app down")}
	fx := newFixture(t, &fakeProvider{text: "Plain ruck wisdom. #GetRucky"}, source, nil)

	fx.poster.SessionPost(context.Background())

	require.Len(t, fx.platform.posts, 1)
	assert.False(t, strings.Contains(fx.platform.posts[0], "{"))
}

func TestSessionPost_DegradesWhenNoSessions(t *testing.T) {
	fx := newFixture(t, &fakeProvider{text: "Plain ruck wisdom. #GetRucky"}, &fakeSessions{}, nil)

	fx.poster.SessionPost(context.Background())

	require.Len(t, fx.platform.posts, 1)
}

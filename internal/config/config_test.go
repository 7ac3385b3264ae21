package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5, cfg.MinPostsPerDay)
	assert.Equal(t, 10, cfg.MaxPostsPerDay)
	assert.Equal(t, 280, cfg.MaxPostLength)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 2*time.Hour, cfg.EngagementEvery)
	assert.Equal(t, 50, cfg.MaxRepliesPerHour)
	assert.Equal(t, "@getrucky", cfg.Mention())
}

func TestLoad_PostRangeValidation(t *testing.T) {
	t.Setenv("MIN_POSTS_PER_DAY", "8")
	t.Setenv("MAX_POSTS_PER_DAY", "3")
	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	require.Len(t, p.Weights, 7)
	assert.Equal(t, "pun", p.Weights[0].Kind)
	assert.InDelta(t, 0.3, p.Weights[0].Weight, 1e-9)
	assert.Equal(t, "pun", p.DefaultKind)

	assert.Equal(t, "Motivation Monday", p.WeeklyThemes[time.Monday])
	assert.Equal(t, "Ruck Fun Sunday", p.WeeklyThemes[time.Sunday])
	assert.Len(t, p.WeeklyThemes, 7)

	assert.True(t, p.MapDay(time.Tuesday))
	assert.True(t, p.MapDay(time.Saturday))
	assert.False(t, p.MapDay(time.Monday))

	post := p.Limits["post"]
	assert.Equal(t, 50, post.Limit)
	assert.Equal(t, time.Hour, post.Window.Std())
	like := p.Limits["like"]
	assert.Equal(t, 900, like.Limit)
	assert.Equal(t, 15*time.Minute, like.Window.Std())

	assert.NotEmpty(t, p.Prompts["pun"])
	assert.NotEmpty(t, p.Templates)
	assert.Contains(t, p.SearchTerms, "rucking")
}

func TestParsePolicy_Invalid(t *testing.T) {
	_, err := ParsePolicy([]byte("weights: []"))
	assert.Error(t, err)

	_, err = ParsePolicy([]byte("weights:\n  - {kind: pun, weight: -1}"))
	assert.Error(t, err)

	_, err = ParsePolicy([]byte("weights:\n  - {kind: pun, weight: 1}\nweekly_themes:\n  blursday: Nope"))
	assert.Error(t, err)

	_, err = ParsePolicy([]byte("weights:\n  - {kind: pun, weight: 1}\nlimits:\n  post: {limit: 0, window: 1h}"))
	assert.Error(t, err)
}

func TestParsePolicy_DefaultsApplied(t *testing.T) {
	p, err := ParsePolicy([]byte("weights:\n  - {kind: meme, weight: 1}"))
	require.NoError(t, err)
	assert.Equal(t, "meme", p.DefaultKind)
	assert.InDelta(t, 0.2, p.ThemeChance, 1e-9)
	assert.InDelta(t, 0.5, p.MapPostChance, 1e-9)
}

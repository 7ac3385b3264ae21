package content

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getrucky/marketing-agent/internal/config"
)

func TestPrompts_BuildFillsPlaceholders(t *testing.T) {
	p := NewPrompts(config.DefaultPolicy())
	rng := rand.New(rand.NewSource(1))
	july := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		prompt := p.Build(Selection{Kind: "challenge"}, july, rng)
		require.NotEmpty(t, prompt)
		assert.NotContains(t, prompt, "{season}")
		assert.NotContains(t, prompt, "{")
	}
}

func TestPrompts_BuildThemeVariant(t *testing.T) {
	p := NewPrompts(config.DefaultPolicy())
	rng := rand.New(rand.NewSource(2))
	monday := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	seen := false
	for i := 0; i < 50; i++ {
		prompt := p.Build(Selection{Kind: KindTheme, Theme: "Motivation Monday"}, monday, rng)
		require.NotEmpty(t, prompt)
		assert.NotContains(t, prompt, "{theme}")
		if strings.Contains(prompt, "Motivation Monday") {
			seen = true
		}
	}
	assert.True(t, seen, "at least one variant embeds the weekly theme")
}

func TestPrompts_BuildUnknownKind(t *testing.T) {
	p := NewPrompts(config.DefaultPolicy())
	rng := rand.New(rand.NewSource(3))

	assert.Empty(t, p.Build(Selection{Kind: "nonsense"}, time.Now(), rng))
}

func TestSeason(t *testing.T) {
	assert.Equal(t, "winter", Season(time.January))
	assert.Equal(t, "winter", Season(time.December))
	assert.Equal(t, "spring", Season(time.April))
	assert.Equal(t, "summer", Season(time.July))
	assert.Equal(t, "fall", Season(time.October))
}

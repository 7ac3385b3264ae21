package sentiment

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getrucky/marketing-agent/internal/config"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Label
	}{
		{"very positive", "This is awesome, best workout ever, love it!", VeryPositive},
		{"negative", "My shoulders hurt and I'm so tired after that", Negative},
		{"very negative", "I hate this, worst gear ever, total pain", VeryNegative},
		{"neutral", "Went out for a walk around the block today", Neutral},
		{"question prefix", "How much weight should I carry?", Label("question_neutral")},
		{"question wins over topic", "What pack do you ruck with?", Label("question_neutral")},
		{"topic prefix", "Just finished my first ruck, love it!", Label("ruck_very_positive")},
		{"negation flips polarity", "This is not good at all today", Negative},
		{"empty text", "", Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Classify(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Context(t *testing.T) {
	_, ctx := Classify("Love my morning ruck! 🥾 How far should I go?")
	assert.True(t, ctx.IsQuestion)
	assert.True(t, ctx.MentionsRuck)
	assert.True(t, ctx.HasEmoji)
	assert.Greater(t, ctx.Polarity, 0.1)
	assert.Greater(t, ctx.Length, 0)
}

func TestLabel_Base(t *testing.T) {
	assert.Equal(t, Positive, Label("question_positive").Base())
	assert.Equal(t, Neutral, Label("ruck_neutral").Base())
	assert.Equal(t, VeryNegative, VeryNegative.Base())
}

func TestLabel_ReplyCategory(t *testing.T) {
	assert.Equal(t, "question", Label("question_very_positive").ReplyCategory())
	assert.Equal(t, "positive", Label("ruck_positive").ReplyCategory())
	assert.Equal(t, "positive", VeryPositive.ReplyCategory())
	assert.Equal(t, "negative", VeryNegative.ReplyCategory())
	assert.Equal(t, "neutral", Neutral.ReplyCategory())
}

func TestReplyKind_BoostShiftsDistribution(t *testing.T) {
	policy := config.DefaultPolicy()

	draw := func(label Label, seed int64) map[string]int {
		rng := rand.New(rand.NewSource(seed))
		counts := make(map[string]int)
		for i := 0; i < 50_000; i++ {
			counts[ReplyKind(label, policy, rng)]++
		}
		return counts
	}

	base := draw(Neutral, 1)
	boosted := draw(VeryPositive, 1)
	assert.Greater(t, boosted["challenge"], base["challenge"],
		"very positive mentions draw more challenges")

	memed := draw(VeryNegative, 2)
	assert.Greater(t, memed["meme"], base["meme"],
		"very negative mentions draw more memes")

	themed := draw(Label("question_neutral"), 3)
	assert.Greater(t, themed["theme"], base["theme"],
		"questions draw more theme content")
}

func TestReplyKind_DegenerateTable(t *testing.T) {
	policy, err := config.ParsePolicy([]byte(`
weights:
  - {kind: pun, weight: 0}
default_kind: pun
`))
	assert.NoError(t, err)

	rng := rand.New(rand.NewSource(4))
	assert.Equal(t, "pun", ReplyKind(Neutral, policy, rng))
}

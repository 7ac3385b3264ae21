package sentiment

import (
	"math/rand"

	"github.com/getrucky/marketing-agent/internal/config"
)

// Boost factors applied to the base weight table when picking a reply kind.
const (
	challengeBoost = 1.5 // very positive mentions get challenged back
	memeBoost      = 1.5 // humor defuses very negative mentions
	themeBoost     = 1.4 // questions get informative theme content
	shoutoutBoost  = 1.3 // on-topic mentions get community shout-outs
)

// ReplyKind draws a content kind for replying to a mention with the given
// label. It reweights the policy table by the label's boost factors and
// walks the cumulative distribution; the policy default kind covers the
// degenerate table.
func ReplyKind(label Label, policy *config.Policy, rng *rand.Rand) string {
	weights := make([]config.WeightEntry, len(policy.Weights))
	copy(weights, policy.Weights)

	for i := range weights {
		weights[i].Weight *= boost(label, weights[i].Kind)
	}

	var total float64
	for _, w := range weights {
		total += w.Weight
	}
	if total <= 0 {
		return policy.DefaultKind
	}

	r := rng.Float64() * total
	var cum float64
	for _, w := range weights {
		cum += w.Weight
		if r < cum {
			return w.Kind
		}
	}
	return policy.DefaultKind
}

func boost(label Label, kind string) float64 {
	if label.IsQuestion() && kind == "theme" {
		return themeBoost
	}
	switch label.Base() {
	case VeryPositive:
		if kind == "challenge" {
			return challengeBoost
		}
	case VeryNegative:
		if kind == "meme" {
			return memeBoost
		}
	}
	if label != label.Base() && !label.IsQuestion() && kind == "shoutout" {
		return shoutoutBoost
	}
	return 1
}

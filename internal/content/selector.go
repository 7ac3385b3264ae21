// Package content decides what kind of post to publish and builds the
// generation prompts for it.
package content

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/getrucky/marketing-agent/internal/config"
)

// KindTheme is the weekly-theme content kind; it can be forced ahead of the
// weighted draw.
const KindTheme = "theme"

// KindMaps marks a session map post sourced from the rucking app.
const KindMaps = "maps"

// Selection is the outcome of one content draw.
type Selection struct {
	Kind  string
	Theme string // weekly theme for the draw's weekday, "" when none configured
}

// Selector picks content kinds according to the policy weight table.
type Selector struct {
	policy *config.Policy
	logger zerolog.Logger
}

// NewSelector creates a Selector over the given policy.
func NewSelector(policy *config.Policy, logger zerolog.Logger) *Selector {
	return &Selector{
		policy: policy,
		logger: logger.With().Str("component", "selector").Logger(),
	}
}

// Select draws a content kind for the given time. On configured map-post
// weekdays a session map post short-circuits the draw with the policy's
// map-post chance. Otherwise the weekly theme is forced with the theme
// chance, and the remaining draws walk the weight table in file order.
func (s *Selector) Select(now time.Time, rng *rand.Rand) Selection {
	sel := Selection{Theme: s.policy.WeeklyThemes[now.Weekday()]}

	if s.policy.MapDay(now.Weekday()) && rng.Float64() < s.policy.MapPostChance {
		sel.Kind = KindMaps
		return sel
	}
	if rng.Float64() < s.policy.ThemeChance {
		sel.Kind = KindTheme
		return sel
	}

	sel.Kind = s.draw(rng)
	return sel
}

// draw walks the cumulative weight table. The draw is scaled to the table's
// total so weights need not sum to 1.
func (s *Selector) draw(rng *rand.Rand) string {
	var total float64
	for _, w := range s.policy.Weights {
		total += w.Weight
	}
	if total <= 0 {
		return s.policy.DefaultKind
	}

	r := rng.Float64() * total
	var cum float64
	for _, w := range s.policy.Weights {
		cum += w.Weight
		if r < cum {
			return w.Kind
		}
	}
	return s.policy.DefaultKind
}

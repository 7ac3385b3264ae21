package content

import (
	"math/rand"
	"time"

	"github.com/getrucky/marketing-agent/internal/config"
	"github.com/getrucky/marketing-agent/internal/template"
)

// SystemPrompt is the persona preamble sent with every generation request.
const SystemPrompt = "You are the upbeat social voice of @getrucky, a rucking " +
	"community. You write short, energetic posts about rucking, always " +
	"positive, never political. Use at most two emoji and end with #GetRucky " +
	"when it fits."

// Prompts picks generation prompts for a selection.
type Prompts struct {
	policy *config.Policy
}

// NewPrompts creates a prompt builder over the policy's prompt variants.
func NewPrompts(policy *config.Policy) *Prompts {
	return &Prompts{policy: policy}
}

// Build returns a filled prompt for the selection, choosing uniformly among
// the policy's variants for the kind. The empty string means the policy has
// no prompts for the kind and the caller should go straight to templates.
func (p *Prompts) Build(sel Selection, now time.Time, rng *rand.Rand) string {
	variants := p.policy.Prompts[sel.Kind]
	if len(variants) == 0 {
		return ""
	}
	text := variants[rng.Intn(len(variants))]
	return template.Fill(text, map[string]string{
		"season": Season(now.Month()),
		"theme":  sel.Theme,
	})
}

// Season names the meteorological season for a month.
func Season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "fall"
	}
}

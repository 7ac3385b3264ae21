package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WeightEntry is one row of the content weight table. Order matters: the
// selector walks entries in file order when accumulating weights.
type WeightEntry struct {
	Kind   string  `yaml:"kind"`
	Weight float64 `yaml:"weight"`
}

// Duration wraps time.Duration so "15m"-style strings parse from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SurfaceLimit is a rolling-window rate limit for one external API surface.
type SurfaceLimit struct {
	Limit  int      `yaml:"limit"`
	Window Duration `yaml:"window"`
}

// TemplateSeed is a pre-written fallback text loaded into the template store at boot.
type TemplateSeed struct {
	Kind     string `yaml:"kind"`
	Category string `yaml:"category"`
	Text     string `yaml:"text"`
}

// Policy is the YAML content policy: what the account posts and under which limits.
type Policy struct {
	Weights        []WeightEntry           `yaml:"weights"`
	DefaultKind    string                  `yaml:"default_kind"`
	ThemeChance    float64                 `yaml:"theme_chance"`
	WeeklyThemes   map[time.Weekday]string `yaml:"-"`
	RawThemes      map[string]string       `yaml:"weekly_themes"`
	MapPostDays    []string                `yaml:"map_post_days"`
	MapPostChance  float64                 `yaml:"map_post_chance"`
	PostHours      []int                   `yaml:"post_hours"`
	Prompts        map[string][]string     `yaml:"prompts"`
	SearchTerms    []string                `yaml:"search_terms"`
	RetweetAccounts []string               `yaml:"retweet_accounts"`
	Blocklist      []string                `yaml:"blocklist"`
	Limits         map[string]SurfaceLimit `yaml:"limits"`
	Templates      []TemplateSeed          `yaml:"templates"`
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// LoadPolicy reads and validates the YAML content policy.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses policy YAML from a byte slice.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing content policy: %w", err)
	}

	if len(p.Weights) == 0 {
		return nil, fmt.Errorf("content policy: empty weight table")
	}
	for _, w := range p.Weights {
		if w.Weight < 0 {
			return nil, fmt.Errorf("content policy: negative weight for %q", w.Kind)
		}
	}
	if p.DefaultKind == "" {
		p.DefaultKind = p.Weights[0].Kind
	}
	if p.ThemeChance == 0 {
		p.ThemeChance = 0.2
	}
	if p.MapPostChance == 0 {
		p.MapPostChance = 0.5
	}
	if len(p.PostHours) == 0 {
		p.PostHours = []int{8, 10, 12, 15, 18, 21}
	}
	for _, h := range p.PostHours {
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("content policy: post hour %d out of range", h)
		}
	}

	p.WeeklyThemes = make(map[time.Weekday]string, len(p.RawThemes))
	for name, theme := range p.RawThemes {
		day, ok := weekdays[name]
		if !ok {
			return nil, fmt.Errorf("content policy: unknown weekday %q", name)
		}
		p.WeeklyThemes[day] = theme
	}

	for name := range p.Limits {
		l := p.Limits[name]
		if l.Limit <= 0 || l.Window <= 0 {
			return nil, fmt.Errorf("content policy: invalid limit for surface %q", name)
		}
	}

	return &p, nil
}

// MapDay reports whether d is a configured map-post weekday.
func (p *Policy) MapDay(d time.Weekday) bool {
	for _, name := range p.MapPostDays {
		if weekdays[name] == d {
			return true
		}
	}
	return false
}

// DefaultPolicy returns the built-in policy used when no file is present.
// Values mirror the account's production settings.
func DefaultPolicy() *Policy {
	p, err := ParsePolicy([]byte(defaultPolicyYAML))
	if err != nil {
		panic(err) // the embedded default must always parse
	}
	return p
}

const defaultPolicyYAML = `
weights:
  - {kind: pun, weight: 0.3}
  - {kind: challenge, weight: 0.2}
  - {kind: theme, weight: 0.2}
  - {kind: poll, weight: 0.1}
  - {kind: meme, weight: 0.1}
  - {kind: shoutout, weight: 0.05}
  - {kind: ugc, weight: 0.05}
default_kind: pun
theme_chance: 0.2
weekly_themes:
  monday: Motivation Monday
  tuesday: Ruck Tips Tuesday
  wednesday: Wellness Wednesday
  thursday: Throwback Thursday
  friday: Fitness Friday
  saturday: Shout-out Saturday
  sunday: Ruck Fun Sunday
map_post_days: [tuesday, saturday]
map_post_chance: 0.5
post_hours: [8, 10, 12, 15, 18, 21]
search_terms: ["ruck", "rucking", "#rucking", "#rucklife"]
retweet_accounts: ["GaryBrecka", "PeterAttiaMD"]
blocklist: []
limits:
  post: {limit: 50, window: 1h}
  like: {limit: 900, window: 15m}
  retweet: {limit: 300, window: 3h}
  search: {limit: 450, window: 15m}
  generate: {limit: 100, window: 1h}
prompts:
  pun:
    - "Generate a creative rucking pun that plays on words like 'ruck', 'pack', or 'march', <280 characters."
    - "Create a witty rucking pun that would make fellow ruckers smile, <280 characters."
    - "Write a clever rucking pun that incorporates fitness or outdoor themes, <280 characters."
  challenge:
    - "Generate a {season}-themed rucking challenge for 5 miles, <280 characters."
    - "Create a rucking challenge that encourages community participation, <280 characters."
    - "Design a progressive rucking challenge that builds endurance, <280 characters."
  theme:
    - "Generate a {theme} post about the health and fitness benefits of rucking. Make it informative and at least 50 characters, <280 characters."
    - "Create an engaging {theme} post highlighting why rucking is good for you. Ensure it is at least 50 characters, <280 characters."
    - "List a science-backed benefit of rucking in a detailed way (at least 50 characters), <280 characters."
    - "Share a motivational fact about how rucking improves health. Minimum 50 characters, <280 characters."
  poll:
    - "Generate a rucking poll about training preferences, <280 characters."
    - "Create a poll about favorite rucking locations, <280 characters."
    - "Design a poll about rucking gear preferences, <280 characters."
  meme:
    - "Generate a humorous rucking meme about common rucking experiences, <280 characters."
    - "Create a relatable rucking meme about training struggles, <280 characters."
    - "Write a funny rucking meme about gear or preparation, <280 characters."
  shoutout:
    - "Generate a motivational shout-out for a rucking achievement, <280 characters."
    - "Create an encouraging shout-out for consistent rucking, <280 characters."
    - "Write an inspiring shout-out for a rucking milestone, <280 characters."
  ugc:
    - "Generate an engaging comment for a user's ruck post, <280 characters."
    - "Create a supportive comment for a rucking achievement, <280 characters."
    - "Write an encouraging comment for a rucking milestone, <280 characters."
templates:
  - {kind: post, category: pun, text: "Why did the rucker cross the road? To get to the other pack! 🥾 #GetRucky"}
  - {kind: post, category: pun, text: "Ruck and roll all day long! 🎸🥾 #RuckLife #GetRucky"}
  - {kind: post, category: challenge, text: "Weekend mission: 5 miles with 20lbs. Who's in? 💪 #GetRucky"}
  - {kind: post, category: theme, text: "Rucking builds strength, endurance, and mental grit. One step at a time. 🥾 #GetRucky"}
  - {kind: post, category: poll, text: "Morning ruck or evening ruck? Sound off below! 🥾 #GetRucky"}
  - {kind: post, category: meme, text: "Me: just a short ruck today. Also me, 3 hours later... 🥾😅 #RuckLife"}
  - {kind: post, category: shoutout, text: "Huge shout-out to {user} for crushing {distance} miles{achievements}! {emoji} #GetRucky"}
  - {kind: post, category: ugc, text: "Love seeing the community get after it! Keep rucking! 🥾 #GetRucky"}
  - {kind: post, category: maps, text: "{user} just logged {distance} miles in {duration}! Another route conquered. 🗺️🥾 #GetRucky"}
  - {kind: reply, category: positive, text: "Love the energy! Keep crushing those miles! 🥾 #GetRucky"}
  - {kind: reply, category: negative, text: "Every step counts. Tomorrow's ruck is a fresh start, you've got this! 💪"}
  - {kind: reply, category: question, text: "Great question! Start light, go far. Check our page for rucking tips. 🥾"}
  - {kind: reply, category: neutral, text: "Thanks for the mention! Ruck on! 🥾 #GetRucky"}
  - {kind: cross-post, category: ugc, text: "Strong work! The pack makes everything better. 🥾 @getrucky #GetRucky"}
`

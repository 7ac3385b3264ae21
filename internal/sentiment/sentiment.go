// Package sentiment classifies inbound mention text and picks reply content
// kinds conditioned on it.
package sentiment

import (
	"strings"
	"unicode"
)

// Label is a sentiment band, optionally composed with question/topic prefixes
// ("question_positive", "ruck_neutral").
type Label string

const (
	VeryPositive Label = "very_positive"
	Positive     Label = "positive"
	Neutral      Label = "neutral"
	Negative     Label = "negative"
	VeryNegative Label = "very_negative"
)

// Context carries the classification signals alongside the band.
type Context struct {
	Polarity     float64 // [-1, 1]
	Subjectivity float64 // [0, 1]
	IsQuestion   bool
	MentionsRuck bool
	HasEmoji     bool
	Length       int // runes
}

// Small polarity lexicon tuned for fitness chatter. Scores are in [-1, 1].
var lexicon = map[string]float64{
	"love": 0.8, "loved": 0.8, "awesome": 0.9, "amazing": 0.9,
	"great": 0.7, "good": 0.5, "best": 0.8, "fun": 0.6, "strong": 0.5,
	"crushing": 0.7, "crushed": 0.7, "epic": 0.8, "beautiful": 0.7,
	"excited": 0.7, "happy": 0.7, "proud": 0.7, "thanks": 0.5,
	"thank": 0.5, "nice": 0.5, "solid": 0.4, "enjoy": 0.6,
	"motivated": 0.6, "inspiring": 0.8, "perfect": 0.9,

	"hate": -0.8, "hated": -0.8, "terrible": -0.9, "awful": -0.9,
	"bad": -0.5, "worst": -0.8, "hurt": -0.5, "hurts": -0.5,
	"pain": -0.5, "painful": -0.6, "tired": -0.3, "exhausted": -0.4,
	"sore": -0.3, "hard": -0.2, "struggle": -0.4, "struggling": -0.4,
	"quit": -0.6, "injury": -0.6, "injured": -0.6, "broken": -0.6,
	"disappointed": -0.7, "boring": -0.5, "sucks": -0.8,
}

// Subjective markers: first/second person and opinion verbs.
var subjective = map[string]bool{
	"i": true, "me": true, "my": true, "we": true, "you": true,
	"think": true, "feel": true, "felt": true, "believe": true,
	"love": true, "hate": true, "wish": true, "hope": true,
}

var interrogatives = map[string]bool{
	"how": true, "what": true, "why": true, "when": true, "where": true,
	"which": true, "who": true, "should": true, "can": true, "does": true,
	"do": true, "is": true, "are": true,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "dont": true, "don't": true,
	"cant": true, "can't": true, "won't": true, "wont": true, "isn't": true,
}

// Classify scores text and returns its sentiment band plus signals.
func Classify(text string) (Label, Context) {
	words := tokenize(text)

	var sum float64
	var hits, subj int
	for i, w := range words {
		score, ok := lexicon[w]
		if ok {
			if i > 0 && negators[words[i-1]] {
				score = -score
			}
			sum += score
			hits++
		}
		if subjective[w] {
			subj++
		}
	}

	ctx := Context{
		IsQuestion:   isQuestion(text, words),
		MentionsRuck: mentionsRuck(words),
		HasEmoji:     hasEmoji(text),
		Length:       len([]rune(text)),
	}
	if hits > 0 {
		ctx.Polarity = clamp(sum/float64(hits), -1, 1)
	}
	if len(words) > 0 {
		ctx.Subjectivity = clamp(float64(subj+hits)/float64(len(words)), 0, 1)
	}

	return compose(band(ctx.Polarity), ctx), ctx
}

func band(polarity float64) Label {
	switch {
	case polarity > 0.5:
		return VeryPositive
	case polarity > 0.1:
		return Positive
	case polarity < -0.5:
		return VeryNegative
	case polarity < -0.1:
		return Negative
	default:
		return Neutral
	}
}

// compose prefixes the band with question and topic markers. Question wins
// over topic when both apply.
func compose(base Label, ctx Context) Label {
	switch {
	case ctx.IsQuestion:
		return Label("question_" + string(base))
	case ctx.MentionsRuck:
		return Label("ruck_" + string(base))
	default:
		return base
	}
}

// Base reports the sentiment band with any question/topic prefix stripped.
func (l Label) Base() Label {
	s := string(l)
	s = strings.TrimPrefix(s, "question_")
	s = strings.TrimPrefix(s, "ruck_")
	return Label(s)
}

// IsQuestion reports whether the label carries the question prefix.
func (l Label) IsQuestion() bool {
	return strings.HasPrefix(string(l), "question_")
}

// ReplyCategory maps a label onto the reply template categories.
func (l Label) ReplyCategory() string {
	if l.IsQuestion() {
		return "question"
	}
	switch l.Base() {
	case VeryPositive, Positive:
		return "positive"
	case VeryNegative, Negative:
		return "negative"
	default:
		return "neutral"
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\'' && r != '#' && r != '@'
	})
}

func isQuestion(text string, words []string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	return len(words) > 0 && interrogatives[words[0]]
}

func mentionsRuck(words []string) bool {
	for _, w := range words {
		if strings.Contains(w, "ruck") {
			return true
		}
	}
	return false
}

func hasEmoji(text string) bool {
	for _, r := range text {
		if r >= 0x1F300 && r <= 0x1FAFF || r >= 0x2600 && r <= 0x27BF {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

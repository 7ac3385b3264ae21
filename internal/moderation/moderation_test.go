package moderation

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type recordingFlags struct {
	texts   []string
	reasons []string
}

func (r *recordingFlags) LogFlag(_ context.Context, text, reason string) error {
	r.texts = append(r.texts, text)
	r.reasons = append(r.reasons, reason)
	return nil
}

func TestCheck(t *testing.T) {
	flags := &recordingFlags{}
	f := NewFilter([]string{"spam", "Scam"}, flags, zerolog.Nop())

	res := f.Check(context.Background(), "Join my free SPAM scam today")
	assert.False(t, res.Clean)
	assert.Equal(t, []string{"spam", "Scam"}, res.FlaggedWords)
	assert.Equal(t, []string{"Join my free SPAM scam today"}, flags.texts)
	assert.Equal(t, []string{"spam, Scam"}, flags.reasons)
}

func TestCheck_CleanContent(t *testing.T) {
	flags := &recordingFlags{}
	f := NewFilter([]string{"spam"}, flags, zerolog.Nop())

	res := f.Check(context.Background(), "Ruck on, community! 🥾")
	assert.True(t, res.Clean)
	assert.Empty(t, res.FlaggedWords)
	assert.Empty(t, flags.texts)
}

func TestCheck_EmptyTextAndBlocklist(t *testing.T) {
	f := NewFilter(nil, &recordingFlags{}, zerolog.Nop())
	assert.True(t, f.Check(context.Background(), "").Clean)
	assert.True(t, f.Check(context.Background(), "anything").Clean)
}

// Package budget tracks rolling-window usage per external API surface and
// throttles actions before the platform's hard limits are hit.
package budget

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// softCeiling is the fraction of a hard limit at which callers are told to
// back off. Throttling at 80% is a safety margin, not the real cap.
const softCeiling = 0.8

// UsageStore is the persistence port for usage rows.
type UsageStore interface {
	RecordUsage(ctx context.Context, surface, endpoint string, success bool) error
	CountUsageSince(ctx context.Context, surface string, since time.Time) (int, error)
}

// Limit is a rolling-window budget for one surface.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Status is the outcome of a budget check.
type Status struct {
	Surface   string
	Throttled bool
	Count     int
	Limit     int
	Wait      time.Duration
}

// Tracker decides whether an external action is currently safe to attempt.
type Tracker struct {
	store  UsageStore
	limits map[string]Limit
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a Tracker over the given per-surface limits.
func New(store UsageStore, limits map[string]Limit, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		limits: limits,
		logger: logger.With().Str("component", "budget").Logger(),
		now:    time.Now,
	}
}

// Record logs one successful use of a surface.
func (t *Tracker) Record(ctx context.Context, surface string) {
	if err := t.store.RecordUsage(ctx, surface, "", true); err != nil {
		t.logger.Error().Err(err).Str("surface", surface).Msg("failed to record usage")
	}
}

// Check reports whether a surface is throttled and how long to wait. Unknown
// surfaces are unmetered. On storage error the tracker fails safe and reports
// throttled for the full window.
func (t *Tracker) Check(ctx context.Context, surface string) Status {
	limit, ok := t.limits[surface]
	if !ok {
		t.logger.Warn().Str("surface", surface).Msg("no budget configured for surface")
		return Status{Surface: surface}
	}

	windowStart := t.now().Add(-limit.Window)
	count, err := t.store.CountUsageSince(ctx, surface, windowStart)
	if err != nil {
		t.logger.Error().Err(err).Str("surface", surface).Msg("usage count failed, failing safe")
		return Status{Surface: surface, Throttled: true, Limit: limit.Limit, Wait: limit.Window}
	}

	status := Status{Surface: surface, Count: count, Limit: limit.Limit}
	if float64(count) >= softCeiling*float64(limit.Limit) {
		status.Throttled = true
		status.Wait = limit.Window
		t.logger.Warn().
			Str("surface", surface).
			Int("count", count).
			Int("limit", limit.Limit).
			Dur("wait", status.Wait).
			Msg("surface throttled at soft ceiling")
	}
	return status
}

// Limits returns the configured limits (for the ops API).
func (t *Tracker) Limits() map[string]Limit {
	out := make(map[string]Limit, len(t.limits))
	for k, v := range t.limits {
		out[k] = v
	}
	return out
}

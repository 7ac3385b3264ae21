// Package scheduler plans the daily posting slots and dispatches jobs
// through a cron runtime.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SlotState tracks a slot through its lifecycle.
type SlotState string

const (
	StateUnscheduled SlotState = "unscheduled"
	StateScheduled   SlotState = "scheduled"
	StateRunning     SlotState = "running"
	StateCompleted   SlotState = "completed"
)

// Slot is one planned posting time. The earliest slot of a day is the
// session/feature post.
type Slot struct {
	ID      string
	At      time.Time
	Session bool
	State   SlotState
}

// Runner supplies the job bodies the scheduler dispatches.
type Runner interface {
	RegularPost(ctx context.Context)
	SessionPost(ctx context.Context)
	EngagementSweep(ctx context.Context)
	Retention(ctx context.Context)
}

// Config holds planning bounds.
type Config struct {
	MinPostsPerDay  int
	MaxPostsPerDay  int
	PostHours       []int
	EngagementEvery time.Duration
	RetentionEvery  time.Duration
}

// Plan draws the day's posting slots: N in [MinPostsPerDay, MaxPostsPerDay]
// distinct hours from PostHours with random minutes, sorted ascending. The
// earliest slot becomes the session post. Slots are dated on now's UTC day.
func (c Config) Plan(now time.Time, rng *rand.Rand) []Slot {
	n := c.MinPostsPerDay
	if c.MaxPostsPerDay > c.MinPostsPerDay {
		n += rng.Intn(c.MaxPostsPerDay - c.MinPostsPerDay + 1)
	}
	if n > len(c.PostHours) {
		n = len(c.PostHours)
	}

	hours := make([]int, len(c.PostHours))
	copy(hours, c.PostHours)
	rng.Shuffle(len(hours), func(i, j int) { hours[i], hours[j] = hours[j], hours[i] })
	hours = hours[:n]
	sort.Ints(hours)

	day := now.UTC().Truncate(24 * time.Hour)
	slots := make([]Slot, 0, n)
	for _, h := range hours {
		slots = append(slots, Slot{
			ID:    uuid.NewString(),
			At:    day.Add(time.Duration(h)*time.Hour + time.Duration(rng.Intn(60))*time.Minute),
			State: StateScheduled,
		})
	}
	if len(slots) > 0 {
		slots[0].Session = true
	}
	return slots
}

// Scheduler owns the cron runtime and the day's slot table.
type Scheduler struct {
	cfg    Config
	runner Runner
	cron   *cron.Cron
	rng    *rand.Rand
	logger zerolog.Logger

	mu      sync.Mutex
	slots   map[string]*Slot
	entries []cron.EntryID // today's slot entries, replaced at rollover

	baseCtx context.Context
}

// New creates a Scheduler. The context bounds every dispatched job.
func New(ctx context.Context, cfg Config, runner Runner, rng *rand.Rand, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		runner:  runner,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		rng:     rng,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		slots:   make(map[string]*Slot),
		baseCtx: ctx,
	}
}

// Start plans the rest of today, registers the fixed entries and starts the
// cron runtime.
func (s *Scheduler) Start() error {
	s.replan(time.Now())

	// Midnight-UTC rollover replaces the day's slot entries.
	if _, err := s.cron.AddFunc("0 0 * * *", func() {
		s.replan(time.Now())
	}); err != nil {
		return fmt.Errorf("registering rollover: %w", err)
	}

	if _, err := s.cron.AddFunc(every(s.cfg.EngagementEvery), func() {
		s.guard("engagement", func(ctx context.Context) { s.runner.EngagementSweep(ctx) })
	}); err != nil {
		return fmt.Errorf("registering engagement sweep: %w", err)
	}

	if _, err := s.cron.AddFunc(every(s.cfg.RetentionEvery), func() {
		s.guard("retention", func(ctx context.Context) { s.runner.Retention(ctx) })
	}); err != nil {
		return fmt.Errorf("registering retention: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron runtime and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Slots returns a snapshot of the day's slot table, ordered by time.
func (s *Scheduler) Slots() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, *slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// replan swaps in a fresh daily plan, dropping slots already in the past.
func (s *Scheduler) replan(now time.Time) {
	plan := s.cfg.Plan(now, s.rng)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]
	s.slots = make(map[string]*Slot, len(plan))

	for i := range plan {
		slot := plan[i]
		if !slot.At.After(now) {
			continue
		}
		s.slots[slot.ID] = &plan[i]

		spec := fmt.Sprintf("%d %d * * *", slot.At.Minute(), slot.At.Hour())
		id, err := s.cron.AddFunc(spec, s.slotJob(slot.ID, slot.Session))
		if err != nil {
			s.logger.Error().Err(err).Str("spec", spec).Msg("registering slot")
			continue
		}
		s.entries = append(s.entries, id)
	}

	s.logger.Info().Int("slots", len(s.slots)).Time("day", now.UTC()).Msg("daily plan")
}

func (s *Scheduler) slotJob(id string, session bool) func() {
	return func() {
		s.setState(id, StateRunning)
		name := "regular_post"
		body := s.runner.RegularPost
		if session {
			name = "session_post"
			body = s.runner.SessionPost
		}
		s.guard(name, func(ctx context.Context) { body(ctx) })
		s.setState(id, StateCompleted)
	}
}

func (s *Scheduler) setState(id string, state SlotState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[id]; ok {
		slot.State = state
	}
}

// guard runs a job body behind a recover boundary so a panicking job cannot
// take down the cron runtime.
func (s *Scheduler) guard(name string, body func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("job", name).Msg("job panicked")
		}
	}()

	start := time.Now()
	s.logger.Info().Str("job", name).Msg("job start")
	body(s.baseCtx)
	s.logger.Info().Str("job", name).Dur("took", time.Since(start)).Msg("job done")
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

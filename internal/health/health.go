// Package health runs dependency health checks for the marketing agent.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status represents the health status of a dependency.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Result is one completed check.
type Result struct {
	Status    Status        `json:"status"`
	Latency   time.Duration `json:"latency_ms"`
	CheckedAt time.Time     `json:"checked_at"`
}

// CheckFunc checks a dependency's health.
type CheckFunc func(ctx context.Context) Status

// Checker manages health checks for the bot's dependencies: the sqlite
// store, the X API, the xAI API and the session app.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	cache   map[string]Result
	timeout time.Duration
	logger  zerolog.Logger
}

// NewChecker creates a health checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		cache:   make(map[string]Result),
		timeout: 5 * time.Second,
		logger:  logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a named health check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// RunAll executes all checks concurrently and caches the results.
func (c *Checker) RunAll(ctx context.Context) map[string]Result {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()

	results := make(map[string]Result, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, fn := range checks {
		wg.Add(1)
		go func(n string, f CheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			s := f(checkCtx)
			r := Result{Status: s, Latency: time.Since(start), CheckedAt: start}
			if s == StatusDown {
				c.logger.Warn().Str("check", n).Msg("dependency down")
			}

			mu.Lock()
			results[n] = r
			mu.Unlock()
		}(name, fn)
	}

	wg.Wait()

	c.mu.Lock()
	c.cache = results
	c.mu.Unlock()

	return results
}

// Snapshot returns the last cached results without running checks.
func (c *Checker) Snapshot() map[string]Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Result, len(c.cache))
	for k, v := range c.cache {
		out[k] = v
	}
	return out
}

// IsReady reports whether no dependency is down.
func (c *Checker) IsReady(ctx context.Context) bool {
	for _, r := range c.RunAll(ctx) {
		if r.Status == StatusDown {
			return false
		}
	}
	return true
}

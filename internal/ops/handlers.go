package ops

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/getrucky/marketing-agent/internal/budget"
	"github.com/getrucky/marketing-agent/internal/health"
	"github.com/getrucky/marketing-agent/internal/scheduler"
	"github.com/getrucky/marketing-agent/internal/store"
)

// StatsStore is the subset of the store the ops API reads.
type StatsStore interface {
	CacheStats(ctx context.Context, ttl time.Duration) (store.CacheStats, error)
	UsageBySurface(ctx context.Context, since time.Time) (map[string]int, error)
	CountTemplates(ctx context.Context) (int, error)
}

// SlotSource exposes the day's posting plan.
type SlotSource interface {
	Slots() []scheduler.Slot
}

// Handlers holds dependencies for the ops endpoints.
type Handlers struct {
	stats     StatsStore
	budget    *budget.Tracker
	checker   *health.Checker
	slots     SlotSource
	cacheTTL  time.Duration
	startTime time.Time
	logger    zerolog.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(stats StatsStore, tracker *budget.Tracker, checker *health.Checker,
	slots SlotSource, cacheTTL time.Duration, logger zerolog.Logger) *Handlers {
	return &Handlers{
		stats:     stats,
		budget:    tracker,
		checker:   checker,
		slots:     slots,
		cacheTTL:  cacheTTL,
		startTime: time.Now(),
		logger:    logger.With().Str("component", "ops_handlers").Logger(),
	}
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"status": "not_ready", "checks": h.checker.Snapshot()})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	checks := h.checker.RunAll(c.Context())
	ready := true
	for _, r := range checks {
		if r.Status == health.StatusDown {
			ready = false
			break
		}
	}
	return c.JSON(HealthResponse{Ready: ready, Checks: checks})
}

// Stats handles GET /api/v1/stats.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	ctx := c.Context()
	now := time.Now()

	cache, err := h.stats.CacheStats(ctx, h.cacheTTL)
	if err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"stats_unavailable", "Internal Server Error", err.Error())
	}
	hourly, err := h.stats.UsageBySurface(ctx, now.Add(-time.Hour))
	if err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"stats_unavailable", "Internal Server Error", err.Error())
	}
	daily, err := h.stats.UsageBySurface(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"stats_unavailable", "Internal Server Error", err.Error())
	}
	templates, err := h.stats.CountTemplates(ctx)
	if err != nil {
		return problemResponse(c, fiber.StatusInternalServerError,
			"stats_unavailable", "Internal Server Error", err.Error())
	}

	return c.JSON(StatsResponse{
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Cache:       cache,
		UsageHourly: hourly,
		UsageDaily:  daily,
		Templates:   templates,
	})
}

// Budget handles GET /api/v1/budget/:surface.
func (h *Handlers) Budget(c *fiber.Ctx) error {
	surface := c.Params("surface")
	if _, ok := h.budget.Limits()[surface]; !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"unknown_surface", "Not Found", "No budget configured for surface: "+surface)
	}

	status := h.budget.Check(c.Context(), surface)
	return c.JSON(BudgetResponse{
		Surface:     status.Surface,
		Count:       status.Count,
		Limit:       status.Limit,
		Throttled:   status.Throttled,
		WaitSeconds: status.Wait.Seconds(),
	})
}

// Slots handles GET /api/v1/slots.
func (h *Handlers) Slots(c *fiber.Ctx) error {
	if h.slots == nil {
		return c.JSON([]SlotResponse{})
	}
	return c.JSON(toSlotResponses(h.slots.Slots()))
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

package ops

import (
	"time"

	"github.com/getrucky/marketing-agent/internal/health"
	"github.com/getrucky/marketing-agent/internal/scheduler"
	"github.com/getrucky/marketing-agent/internal/store"
)

// ProblemDetail is an RFC 7807 error body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Uptime      string           `json:"uptime"`
	Cache       store.CacheStats `json:"cache"`
	UsageHourly map[string]int   `json:"usage_hourly"`
	UsageDaily  map[string]int   `json:"usage_daily"`
	Templates   int              `json:"templates"`
}

// BudgetResponse is the body of GET /api/v1/budget/:surface.
type BudgetResponse struct {
	Surface     string  `json:"surface"`
	Count       int     `json:"count"`
	Limit       int     `json:"limit"`
	Throttled   bool    `json:"throttled"`
	WaitSeconds float64 `json:"wait_seconds"`
}

// SlotResponse is one entry of GET /api/v1/slots.
type SlotResponse struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Session bool      `json:"session"`
	State   string    `json:"state"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Ready  bool                     `json:"ready"`
	Checks map[string]health.Result `json:"checks"`
}

func toSlotResponses(slots []scheduler.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			ID:      s.ID,
			At:      s.At,
			Session: s.Session,
			State:   string(s.State),
		})
	}
	return out
}

// Package sessions wraps the rucking app's session API, the source of
// feature-post material.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	aerrors "github.com/getrucky/marketing-agent/internal/errors"
)

const (
	// Sessions shorter than this are warm-ups, not worth a post.
	MinDuration = 5 * time.Minute

	// Minimum session distance in miles for the feature-post query.
	MinDistance = 5
)

// Session is one recorded ruck.
type Session struct {
	ID              string  `json:"id"`
	User            string  `json:"user"`
	DistanceMiles   float64 `json:"distance"`
	DurationSeconds int     `json:"duration_seconds"`
	TotalMiles      float64 `json:"total_distance"`
	StreakDays      int     `json:"streak"`
}

// Duration returns the session length.
func (s Session) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// Achievements lists the milestones this session unlocked.
func (s Session) Achievements() []string {
	var out []string
	if s.DistanceMiles >= 10 {
		out = append(out, "double-digit distance")
	}
	if s.TotalMiles >= 100 {
		out = append(out, "100-mile milestone")
	}
	if s.StreakDays >= 7 {
		out = append(out, fmt.Sprintf("%d-day streak", s.StreakDays))
	}
	return out
}

// AchievementText renders the achievements as a sentence fragment for
// template and prompt interpolation. Empty when there are none.
func (s Session) AchievementText() string {
	a := s.Achievements()
	if len(a) == 0 {
		return ""
	}
	return " and achieved " + strings.Join(a, ", ")
}

// Emoji returns the celebration emoji for the session's template slot.
func (s Session) Emoji() string {
	if len(s.Achievements()) > 0 {
		return "🏆"
	}
	return "🥾"
}

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches sessions from the rucking app API.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient HTTPClient
	logger     zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a session API client.
func NewClient(baseURL, apiToken string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("component", "sessions").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Recent returns up to limit recent sessions at least MinDistance miles
// long, filtered to those longer than MinDuration.
func (c *Client) Recent(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}
	path := "/api/sessions?limit=" + strconv.Itoa(limit) +
		"&min_distance=" + strconv.Itoa(MinDistance)

	var all []Session
	if err := c.get(ctx, path, &all); err != nil {
		return nil, err
	}

	out := make([]Session, 0, len(all))
	for _, s := range all {
		if s.Duration() >= MinDuration {
			out = append(out, s)
		}
	}
	c.logger.Debug().Int("fetched", len(all)).Int("eligible", len(out)).Msg("sessions")
	return out, nil
}

// Get fetches one session by id.
func (c *Client) Get(ctx context.Context, id string) (Session, error) {
	var s Session
	err := c.get(ctx, "/api/sessions/"+id, &s)
	return s, err
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sessions http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return aerrors.NewAPIError("sessions", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

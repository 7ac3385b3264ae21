// Package config loads agent configuration from environment variables and
// the YAML content policy file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"`

	// X platform credentials (OAuth2 bearer for reads, user token for writes)
	XBearerToken   string `envconfig:"X_BEARER_TOKEN"`
	XAccessToken   string `envconfig:"X_ACCESS_TOKEN"`
	XAccountHandle string `envconfig:"X_ACCOUNT_HANDLE" default:"getrucky"`

	// xAI generation API
	XAIAPIKey string `envconfig:"XAI_API_KEY"`
	XAIModel  string `envconfig:"XAI_MODEL" default:"grok-3-mini"`

	// Rucking app API (session/feature posts)
	AppAPIToken string `envconfig:"APP_API_TOKEN"`
	AppAPIBase  string `envconfig:"APP_API_BASE" default:"https://rucking-app.herokuapp.com"`

	// Storage
	DBPath string `envconfig:"DB_PATH" default:"/tmp/marketing-agent.db"`

	// Content policy file (weights, themes, prompts, templates, limits)
	ContentPolicyPath string `envconfig:"CONTENT_POLICY_PATH" default:"content.yaml"`

	// Scheduling
	MinPostsPerDay  int           `envconfig:"MIN_POSTS_PER_DAY" default:"5"`
	MaxPostsPerDay  int           `envconfig:"MAX_POSTS_PER_DAY" default:"10"`
	EngagementEvery time.Duration `envconfig:"ENGAGEMENT_EVERY" default:"2h"`
	RetentionEvery  time.Duration `envconfig:"RETENTION_EVERY" default:"6h"`

	// Mentions polling
	MentionPollInterval  time.Duration `envconfig:"MENTION_POLL_INTERVAL" default:"5m"`
	MentionErrorInterval time.Duration `envconfig:"MENTION_ERROR_INTERVAL" default:"10m"`
	MaxRepliesPerHour    int           `envconfig:"MAX_REPLIES_PER_HOUR" default:"50"`

	// Generation
	CacheTTL       time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	MaxPostLength  int           `envconfig:"MAX_POST_LENGTH" default:"280"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	RetryAttempts  int           `envconfig:"RETRY_ATTEMPTS" default:"3"`

	// Engagement
	LikeProbability  float64 `envconfig:"LIKE_PROBABILITY" default:"0.9"`
	MinFollowers     int     `envconfig:"MIN_FOLLOWERS" default:"1000"`
	MinLikes         int     `envconfig:"MIN_LIKES" default:"10"`
	WeeklyCommentCap int     `envconfig:"WEEKLY_COMMENT_CAP" default:"10"`

	// Ops API
	OpsListenAddr string `envconfig:"OPS_LISTEN_ADDR" default:":8090"`
	OpsAPIKey     string `envconfig:"OPS_API_KEY"`
}

// XEnabled returns true if platform write credentials are configured.
func (c *Config) XEnabled() bool {
	return c.XAccessToken != ""
}

// GenerationEnabled returns true if the xAI key is configured.
func (c *Config) GenerationEnabled() bool {
	return c.XAIAPIKey != ""
}

// SessionsEnabled returns true if the rucking app API is configured.
func (c *Config) SessionsEnabled() bool {
	return c.AppAPIToken != ""
}

// Mention returns the @-handle of the managed account.
func (c *Config) Mention() string {
	return "@" + strings.TrimPrefix(c.XAccountHandle, "@")
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.MinPostsPerDay < 1 || cfg.MaxPostsPerDay < cfg.MinPostsPerDay {
		return nil, fmt.Errorf("invalid posts-per-day range %d-%d", cfg.MinPostsPerDay, cfg.MaxPostsPerDay)
	}
	return &cfg, nil
}

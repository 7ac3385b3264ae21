// Package platform defines the social platform port and its X API v2
// implementation.
package platform

import (
	"context"
	"time"
)

// Tweet is one platform post, inbound or outbound.
type Tweet struct {
	ID             string
	Text           string
	AuthorID       string
	AuthorUsername string
	Likes          int
	Retweets       int
	CreatedAt      time.Time
}

// User is a platform account.
type User struct {
	ID        string
	Username  string
	Followers int
}

// Client is the outbound platform port. Implementations return typed
// APIErrors so callers can classify failures.
type Client interface {
	Post(ctx context.Context, text string) (Tweet, error)
	Reply(ctx context.Context, text, inReplyToID string) (Tweet, error)
	Like(ctx context.Context, tweetID string) error
	Retweet(ctx context.Context, tweetID string) error
	Search(ctx context.Context, query string, maxResults int) ([]Tweet, error)
	Mentions(ctx context.Context, sinceID string) ([]Tweet, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	Me(ctx context.Context) (User, error)
}

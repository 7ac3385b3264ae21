package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	aerrors "github.com/getrucky/marketing-agent/internal/errors"
)

const xAPIBase = "https://api.x.com/2"

// User lookup cache bounds. Engagement sweeps re-check the same authors
// often; a short TTL keeps follower counts reasonably current.
const (
	userCacheSize = 512
	userCacheTTL  = 15 * time.Minute
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// XClient implements Client against the X API v2.
type XClient struct {
	baseURL     string
	bearerToken string
	accessToken string
	httpClient  HTTPClient
	logger      zerolog.Logger
	users       *userCache

	mu   sync.Mutex
	self *User // cached /users/me result
}

// XOption configures the client.
type XOption func(*XClient)

func WithXBaseURL(u string) XOption {
	return func(c *XClient) { c.baseURL = strings.TrimSuffix(u, "/") }
}

func WithXHTTPClient(hc HTTPClient) XOption {
	return func(c *XClient) { c.httpClient = hc }
}

// NewXClient creates an X API client. The bearer token authenticates
// app-only reads; the access token authenticates writes on behalf of the
// managed account.
func NewXClient(bearerToken, accessToken string, logger zerolog.Logger, opts ...XOption) *XClient {
	c := &XClient{
		baseURL:     xAPIBase,
		bearerToken: bearerToken,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger.With().Str("component", "platform").Logger(),
		users:       newUserCache(userCacheSize, userCacheTTL),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---- wire types ----

type tweetData struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics *struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
	} `json:"public_metrics"`
}

type userData struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	PublicMetrics *struct {
		FollowersCount int `json:"followers_count"`
	} `json:"public_metrics"`
}

type tweetListResponse struct {
	Data     []tweetData `json:"data"`
	Includes struct {
		Users []userData `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NewestID    string `json:"newest_id"`
	} `json:"meta"`
}

func (td tweetData) toTweet(users map[string]userData) Tweet {
	t := Tweet{
		ID:       td.ID,
		Text:     td.Text,
		AuthorID: td.AuthorID,
	}
	if td.PublicMetrics != nil {
		t.Likes = td.PublicMetrics.LikeCount
		t.Retweets = td.PublicMetrics.RetweetCount
	}
	if u, ok := users[td.AuthorID]; ok {
		t.AuthorUsername = u.Username
	}
	if td.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, td.CreatedAt); err == nil {
			t.CreatedAt = ts
		}
	}
	return t
}

func userIndex(users []userData) map[string]userData {
	idx := make(map[string]userData, len(users))
	for _, u := range users {
		idx[u.ID] = u
	}
	return idx
}

// ---- request plumbing ----

func (c *XClient) do(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("x http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, c.apiError(resp, raw)
	}
	return raw, nil
}

func (c *XClient) apiError(resp *http.Response, raw []byte) error {
	var body struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Detail != "":
			msg = body.Detail
		case len(body.Errors) > 0:
			msg = body.Errors[0].Message
		}
	}

	apiErr := aerrors.NewAPIError("x", resp.StatusCode, msg)
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			apiErr.RetryAfter = secs
		}
	}
	// x-rate-limit-reset is an epoch; prefer Retry-After when both present.
	if apiErr.RetryAfter == 0 && resp.StatusCode == 429 {
		if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
			if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
				if wait := time.Until(time.Unix(epoch, 0)); wait > 0 {
					apiErr.RetryAfter = int(wait.Seconds()) + 1
				}
			}
		}
	}
	return apiErr
}

// ---- writes ----

// Post publishes a tweet on the managed account.
func (c *XClient) Post(ctx context.Context, text string) (Tweet, error) {
	return c.postTweet(ctx, map[string]any{"text": text})
}

// Reply publishes a reply to the given tweet.
func (c *XClient) Reply(ctx context.Context, text, inReplyToID string) (Tweet, error) {
	return c.postTweet(ctx, map[string]any{
		"text":  text,
		"reply": map[string]string{"in_reply_to_tweet_id": inReplyToID},
	})
}

func (c *XClient) postTweet(ctx context.Context, body map[string]any) (Tweet, error) {
	raw, err := c.do(ctx, http.MethodPost, "/tweets", c.accessToken, body)
	if err != nil {
		return Tweet{}, err
	}

	var out struct {
		Data tweetData `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Tweet{}, fmt.Errorf("unmarshal response: %w", err)
	}

	c.logger.Info().Str("tweet_id", out.Data.ID).Msg("posted")
	return out.Data.toTweet(nil), nil
}

// Like likes a tweet as the managed account.
func (c *XClient) Like(ctx context.Context, tweetID string) error {
	me, err := c.Me(ctx)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/users/"+me.ID+"/likes", c.accessToken,
		map[string]string{"tweet_id": tweetID})
	return err
}

// Retweet retweets a tweet as the managed account.
func (c *XClient) Retweet(ctx context.Context, tweetID string) error {
	me, err := c.Me(ctx)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/users/"+me.ID+"/retweets", c.accessToken,
		map[string]string{"tweet_id": tweetID})
	return err
}

// ---- reads ----

// Search returns recent tweets matching the query, newest first, with author
// usernames resolved from the expansion payload.
func (c *XClient) Search(ctx context.Context, query string, maxResults int) ([]Tweet, error) {
	if maxResults < 10 {
		maxResults = 10 // API minimum
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("tweet.fields", "public_metrics,author_id,created_at")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "public_metrics")

	raw, err := c.do(ctx, http.MethodGet, "/tweets/search/recent?"+q.Encode(), c.bearerToken, nil)
	if err != nil {
		return nil, err
	}
	return decodeTweetList(raw)
}

// Mentions returns mentions of the managed account newer than sinceID,
// oldest first.
func (c *XClient) Mentions(ctx context.Context, sinceID string) ([]Tweet, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("tweet.fields", "public_metrics,author_id,created_at")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "public_metrics")
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}

	raw, err := c.do(ctx, http.MethodGet, "/users/"+me.ID+"/mentions?"+q.Encode(), c.bearerToken, nil)
	if err != nil {
		return nil, err
	}

	tweets, err := decodeTweetList(raw)
	if err != nil {
		return nil, err
	}
	// The API returns newest first; callers process oldest first.
	for i, j := 0, len(tweets)-1; i < j; i, j = i+1, j-1 {
		tweets[i], tweets[j] = tweets[j], tweets[i]
	}
	return tweets, nil
}

func decodeTweetList(raw []byte) ([]Tweet, error) {
	var out tweetListResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	users := userIndex(out.Includes.Users)
	tweets := make([]Tweet, 0, len(out.Data))
	for _, td := range out.Data {
		tweets = append(tweets, td.toTweet(users))
	}
	return tweets, nil
}

// UserByUsername looks up an account and its follower count.
func (c *XClient) UserByUsername(ctx context.Context, username string) (User, error) {
	if u, ok := c.users.get(username); ok {
		return u, nil
	}

	q := url.Values{}
	q.Set("user.fields", "public_metrics")

	raw, err := c.do(ctx, http.MethodGet,
		"/users/by/username/"+url.PathEscape(username)+"?"+q.Encode(), c.bearerToken, nil)
	if err != nil {
		return User{}, err
	}
	u, err := decodeUser(raw)
	if err != nil {
		return User{}, err
	}
	c.users.put(username, u)
	return u, nil
}

// Me returns the managed account, cached after the first call.
func (c *XClient) Me(ctx context.Context) (User, error) {
	c.mu.Lock()
	if c.self != nil {
		u := *c.self
		c.mu.Unlock()
		return u, nil
	}
	c.mu.Unlock()

	// /users/me requires user context, not app-only auth.
	raw, err := c.do(ctx, http.MethodGet, "/users/me?user.fields=public_metrics", c.accessToken, nil)
	if err != nil {
		return User{}, err
	}
	u, err := decodeUser(raw)
	if err != nil {
		return User{}, err
	}

	c.mu.Lock()
	c.self = &u
	c.mu.Unlock()
	return u, nil
}

func decodeUser(raw []byte) (User, error) {
	var out struct {
		Data userData `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return User{}, fmt.Errorf("unmarshal response: %w", err)
	}

	u := User{ID: out.Data.ID, Username: out.Data.Username}
	if out.Data.PublicMetrics != nil {
		u.Followers = out.Data.PublicMetrics.FollowersCount
	}
	return u, nil
}

// Package reddit is a small client for the parts of the Reddit API the ingestion
// pipeline needs: subreddit listings, subreddit search and comment threads.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://oauth.reddit.com"
	DefaultTokenURL  = "https://www.reddit.com/api/v1/access_token"
	DefaultUserAgent = "threadsense/1.0"
	defaultTimeout   = 20 * time.Second
	defaultPerMinute = 60
	maxErrorBody     = 2048
)

// ErrRateLimited is returned (wrapped) when Reddit answers 429.
var ErrRateLimited = errors.New("reddit: rate limited")

// APIError is a non-2xx answer other than 429.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit api (%d): %s", e.StatusCode, e.Body)
}

// ContentClient is the capability the pipeline needs from the content source.
type ContentClient interface {
	// Listing returns up to limit posts of subreddit in the given order. window is
	// only sent when non-empty.
	Listing(ctx context.Context, subreddit string, sort Sort, window TimeWindow, limit int) ([]RawPost, error)
	// Search returns up to limit posts of subreddit matching query by relevance.
	Search(ctx context.Context, subreddit, query string, limit int) ([]RawPost, error)
	// Comments returns the top-level comments of a post with nested replies
	// decoded down to depth levels.
	Comments(ctx context.Context, postID string, limit, depth int) ([]RawComment, error)
}

// Options configures a Client. Credentials select the OAuth2 grant: username and
// password give the script-app password grant, otherwise client credentials.
type Options struct {
	ClientID          string
	ClientSecret      string
	Username          string
	Password          string
	UserAgent         string
	BaseURL           string
	TokenURL          string
	Timeout           time.Duration
	RequestsPerMinute int
	// HTTPClient, when set, is used as is and no OAuth2 transport is installed.
	HTTPClient *http.Client
}

// Client talks to the Reddit API. It is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

var _ ContentClient = (*Client)(nil)

// New builds a Client. ctx bounds token fetches for the lifetime of the client.
func New(ctx context.Context, opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid reddit base url: %w", err)
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perMinute := opts.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if opts.ClientID == "" {
			return nil, errors.New("reddit client id is required")
		}
		httpClient = newOAuthClient(ctx, opts, ua, timeout)
	}

	return &Client{
		baseURL:   base,
		userAgent: ua,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(perMinute/6, 1)),
	}, nil
}

// Listing implements ContentClient.
func (c *Client) Listing(ctx context.Context, subreddit string, sort Sort, window TimeWindow, limit int) ([]RawPost, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if window != "" {
		q.Set("t", string(window))
	}
	var l Listing
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/"+string(sort), q, &l); err != nil {
		return nil, err
	}
	return l.Posts()
}

// Search implements ContentClient.
func (c *Client) Search(ctx context.Context, subreddit, query string, limit int) ([]RawPost, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("restrict_sr", "1")
	q.Set("sort", "relevance")
	q.Set("type", "link")
	q.Set("limit", strconv.Itoa(limit))
	var l Listing
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/search", q, &l); err != nil {
		return nil, err
	}
	return l.Posts()
}

// Comments implements ContentClient. The endpoint answers with two listings: the
// post itself and its comment forest.
func (c *Client) Comments(ctx context.Context, postID string, limit, depth int) ([]RawComment, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("depth", strconv.Itoa(depth))
	q.Set("sort", "top")
	var pages []Listing
	if err := c.get(ctx, "/comments/"+url.PathEscape(postID), q, &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, fmt.Errorf("comments for %s: expected 2 listings, got %d", postID, len(pages))
	}
	return pages[1].Comments()
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	q.Set("raw_json", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w (retry after %q)", ErrRateLimited, resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

package x

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lysyi3m/social-comb/app/post"
	"github.com/lysyi3m/social-comb/app/sources"
)

const (
	defaultBaseURL = "https://api.twitter.com"
	searchPath     = "/2/tweets/search/recent"
	tweetFields    = "created_at,author_id,public_metrics"

	DefaultQuery      = "-is:retweet lang:en"
	DefaultMaxResults = 10
)

// Client fetches recent posts from the X API v2 recent-search endpoint.
type Client struct {
	bearerToken string
	baseURL     string
	query       string
	maxResults  int
	userAgent   string
	timeout     time.Duration
	httpClient  sources.HTTPClient
	logger      *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(client sources.HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithQuery(query string) ClientOption {
	return func(c *Client) {
		c.query = query
	}
}

func WithMaxResults(n int) ClientOption {
	return func(c *Client) {
		c.maxResults = n
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(bearerToken string, opts ...ClientOption) *Client {
	c := &Client{
		bearerToken: bearerToken,
		baseURL:     defaultBaseURL,
		query:       DefaultQuery,
		maxResults:  DefaultMaxResults,
		userAgent:   sources.DefaultUserAgent,
		timeout:     sources.DefaultTimeout,
		httpClient:  &http.Client{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Platform() post.Platform {
	return post.PlatformX
}

type searchResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		AuthorID      string `json:"author_id"`
		CreatedAt     string `json:"created_at"`
		PublicMetrics *struct {
			LikeCount    int64 `json:"like_count"`
			ReplyCount   int64 `json:"reply_count"`
			RetweetCount int64 `json:"retweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// Fetch returns the most recent matching posts. It never fails: any error is
// logged and yields an empty slice.
func (c *Client) Fetch(ctx context.Context) []post.Post {
	c.logger.Info("Fetching tweets from X")

	result := c.FetchResult(ctx)
	posts := result.Collapse(c.logger)
	if result.Err == nil {
		c.logger.Info("Collected tweets", "count", len(posts))
	}
	return posts
}

// FetchResult performs the search and maps the response, reporting failure in the result.
func (c *Client) FetchResult(ctx context.Context) sources.Result {
	params := url.Values{}
	params.Set("query", c.query)
	params.Set("max_results", strconv.Itoa(c.maxResults))
	params.Set("tweet.fields", tweetFields)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.bearerToken)
	header.Set("User-Agent", c.userAgent)

	var resp searchResponse
	if err := sources.GetJSON(ctx, c.httpClient, c.timeout, c.baseURL+searchPath+"?"+params.Encode(), header, &resp); err != nil {
		return sources.Failed(post.PlatformX, err)
	}

	posts := make([]post.Post, 0, len(resp.Data))
	for _, tweet := range resp.Data {
		p := post.Post{
			Platform:         post.PlatformX,
			PlatformPostID:   tweet.ID,
			PlatformAuthorID: tweet.AuthorID,
			Content:          post.TruncateContent(tweet.Text),
			PublishedAt:      tweet.CreatedAt,
		}
		if m := tweet.PublicMetrics; m != nil {
			p.LikesCount = m.LikeCount
			p.CommentsCount = m.ReplyCount
			p.SharesCount = m.RetweetCount
		}

		if err := post.Validate(p); err != nil {
			c.logger.Warn("Skipping tweet", "id", tweet.ID, "error", err)
			continue
		}
		posts = append(posts, p)
	}

	return sources.Succeeded(post.PlatformX, posts)
}

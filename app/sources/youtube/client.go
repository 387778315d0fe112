package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/social-comb/app/post"
	"github.com/lysyi3m/social-comb/app/sources"
)

const (
	defaultBaseURL = "https://www.googleapis.com"
	searchPath     = "/youtube/v3/search"
	videosPath     = "/youtube/v3/videos"

	DefaultQuery      = "latest videos"
	DefaultMaxResults = 10
)

// Client discovers recent videos with search.list and enriches them with
// engagement counts from videos.list.
type Client struct {
	apiKey     string
	baseURL    string
	query      string
	maxResults int
	userAgent  string
	timeout    time.Duration
	httpClient sources.HTTPClient
	logger     *slog.Logger
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

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		query:      DefaultQuery,
		maxResults: DefaultMaxResults,
		userAgent:  sources.DefaultUserAgent,
		timeout:    sources.DefaultTimeout,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Platform() post.Platform {
	return post.PlatformYouTube
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelID    string `json:"channelId"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

type statistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

type videosResponse struct {
	Items []struct {
		ID         string     `json:"id"`
		Statistics statistics `json:"statistics"`
	} `json:"items"`
}

// Fetch returns recent videos as posts. It never fails: any error in either
// call or in the join is logged and yields an empty slice.
func (c *Client) Fetch(ctx context.Context) []post.Post {
	c.logger.Info("Fetching YouTube videos")

	result := c.FetchResult(ctx)
	posts := result.Collapse(c.logger)
	if result.Err == nil {
		c.logger.Info("Collected videos", "count", len(posts))
	}
	return posts
}

func (c *Client) FetchResult(ctx context.Context) sources.Result {
	search, err := c.search(ctx)
	if err != nil {
		return sources.Failed(post.PlatformYouTube, fmt.Errorf("search: %w", err))
	}

	type discovered struct {
		videoID      string
		title        string
		channelID    string
		channelTitle string
		publishedAt  string
	}

	var videos []discovered
	var ids []string
	for _, item := range search.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, discovered{
			videoID:      item.ID.VideoID,
			title:        item.Snippet.Title,
			channelID:    item.Snippet.ChannelID,
			channelTitle: item.Snippet.ChannelTitle,
			publishedAt:  item.Snippet.PublishedAt,
		})
		ids = append(ids, item.ID.VideoID)
	}

	if len(ids) == 0 {
		c.logger.Debug("No video ids in search results, skipping statistics lookup", "items", len(search.Items))
		return sources.Succeeded(post.PlatformYouTube, []post.Post{})
	}

	stats, err := c.statistics(ctx, ids)
	if err != nil {
		return sources.Failed(post.PlatformYouTube, fmt.Errorf("videos: %w", err))
	}

	posts := make([]post.Post, 0, len(videos))
	for _, v := range videos {
		s := stats[v.videoID]

		likes, err := parseCount(s.LikeCount)
		if err != nil {
			return sources.Failed(post.PlatformYouTube, fmt.Errorf("video %s likeCount: %w", v.videoID, err))
		}
		comments, err := parseCount(s.CommentCount)
		if err != nil {
			return sources.Failed(post.PlatformYouTube, fmt.Errorf("video %s commentCount: %w", v.videoID, err))
		}

		p := post.Post{
			Platform:         post.PlatformYouTube,
			PlatformPostID:   v.videoID,
			PlatformAuthorID: v.channelID,
			AuthorUsername:   v.channelTitle,
			Content:          post.TruncateContent(v.title),
			LikesCount:       likes,
			CommentsCount:    comments,
			SharesCount:      0,
			PublishedAt:      v.publishedAt,
		}
		if err := post.Validate(p); err != nil {
			c.logger.Warn("Skipping video", "id", v.videoID, "error", err)
			continue
		}
		posts = append(posts, p)
	}

	return sources.Succeeded(post.PlatformYouTube, posts)
}

func (c *Client) search(ctx context.Context) (*searchResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", c.query)
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("order", "date")

	var resp searchResponse
	if err := sources.GetJSON(ctx, c.httpClient, c.timeout, c.baseURL+searchPath+"?"+params.Encode(), c.header(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// statistics returns video id -> statistics. Ids the API omitted are absent
// from the map and read as zero statistics.
func (c *Client) statistics(ctx context.Context, ids []string) (map[string]statistics, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("id", strings.Join(ids, ","))
	params.Set("part", "statistics")

	var resp videosResponse
	if err := sources.GetJSON(ctx, c.httpClient, c.timeout, c.baseURL+videosPath+"?"+params.Encode(), c.header(), &resp); err != nil {
		return nil, err
	}

	statsMap := make(map[string]statistics, len(resp.Items))
	for _, item := range resp.Items {
		statsMap[item.ID] = item.Statistics
	}
	return statsMap, nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", c.userAgent)
	return h
}

// parseCount parses a decimal count string. Absent counts are zero.
func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", sources.ErrMalformedResponse, err)
	}
	return n, nil
}

// Package reddit resolves Reddit post URLs into video posts using the
// public JSON representation every post page exposes under "/.json".
package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iconidentify/redgrabba/internal/config"
	"github.com/iconidentify/redgrabba/internal/domain"
)

// JSONSuffix is appended to a post URL to get its JSON representation.
const JSONSuffix = ".json"

// maxBodyBytes caps the post document; comment trees can get large.
const maxBodyBytes = 32 << 20

// Resolver turns a post URL into a resolved video post.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*domain.Post, error)
}

// Client fetches post data from Reddit.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a new Reddit client.
func NewClient(cfg config.RedditConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// NormalizeURL returns the JSON endpoint for a post URL. Exactly one
// suffix segment is added: ".json" after a trailing slash, "/.json"
// otherwise. URLs already ending in ".json" are returned unchanged.
func NormalizeURL(rawURL string) string {
	if strings.HasSuffix(rawURL, JSONSuffix) {
		return rawURL
	}
	if strings.HasSuffix(rawURL, "/") {
		return rawURL + JSONSuffix
	}
	return rawURL + "/" + JSONSuffix
}

// Resolve fetches the post behind rawURL and extracts its video.
// Every failure is returned as a *domain.PostError; a post without a
// video yields kind KindNotAVideo wrapping domain.ErrNotAVideo.
func (c *Client) Resolve(ctx context.Context, rawURL string) (*domain.Post, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, resolveError("", domain.ErrEmptyURL)
	}

	jsonURL := NormalizeURL(rawURL)

	body, err := c.fetch(ctx, jsonURL)
	if err != nil {
		return nil, resolveError("", err)
	}

	data, err := extractPostData(body)
	if err != nil {
		return nil, resolveError("", err)
	}

	post, err := data.toPost(jsonURL)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("post resolved",
		"post_id", post.ID,
		"subreddit", post.Subreddit,
		"duration_seconds", post.DurationSeconds,
	)

	return post, nil
}

func (c *Client) fetch(ctx context.Context, jsonURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsonURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Generic Go user agents get rejected by Reddit
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// listing mirrors one element of the post document array.
type listing struct {
	Data *struct {
		Children []struct {
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID        *string `json:"id"`
	Title     *string `json:"title"`
	IsVideo   bool    `json:"is_video"`
	Subreddit string  `json:"subreddit"`
	Author    string  `json:"author"`
	Permalink string  `json:"permalink"`
	Media     *struct {
		RedditVideo *struct {
			FallbackURL string `json:"fallback_url"`
			Duration    int    `json:"duration"`
			Width       int    `json:"width"`
			Height      int    `json:"height"`
		} `json:"reddit_video"`
	} `json:"media"`
}

// extractPostData walks root[0].data.children[0].data.
func extractPostData(body []byte) (*postData, error) {
	var root []listing
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	if len(root) == 0 {
		return nil, missing("[0]")
	}
	if root[0].Data == nil {
		return nil, missing("[0].data")
	}
	if len(root[0].Data.Children) == 0 {
		return nil, missing("[0].data.children[0]")
	}

	raw := root[0].Data.Children[0].Data
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, missing("[0].data.children[0].data")
	}

	var data postData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return &data, nil
}

func (d *postData) toPost(sourceURL string) (*domain.Post, error) {
	var id domain.PostID
	if d.ID != nil {
		id = domain.PostID(*d.ID)
	}

	if !d.IsVideo {
		return nil, domain.NewPostError(domain.KindNotAVideo, id, "resolve", domain.ErrNotAVideo)
	}

	if d.Media == nil || d.Media.RedditVideo == nil || d.Media.RedditVideo.FallbackURL == "" {
		return nil, resolveError(id, missing("media.reddit_video.fallback_url"))
	}
	if d.ID == nil {
		return nil, resolveError("", missing("id"))
	}
	if d.Title == nil {
		return nil, resolveError(id, missing("title"))
	}
	if !id.Valid() {
		return nil, resolveError("", fmt.Errorf("%w: %q", domain.ErrInvalidPostID, *d.ID))
	}

	video := d.Media.RedditVideo
	return &domain.Post{
		ID:              id,
		Title:           *d.Title,
		IsVideo:         true,
		FallbackURL:     video.FallbackURL,
		SourceURL:       sourceURL,
		Subreddit:       d.Subreddit,
		Author:          d.Author,
		Permalink:       d.Permalink,
		DurationSeconds: video.Duration,
		Width:           video.Width,
		Height:          video.Height,
	}, nil
}

func missing(path string) error {
	return fmt.Errorf("%w: %s", domain.ErrMissingField, path)
}

func resolveError(id domain.PostID, err error) error {
	return domain.NewPostError(domain.KindResolution, id, "resolve", err)
}

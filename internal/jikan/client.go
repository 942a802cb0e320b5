package jikan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

const (
	DefaultBaseURL = "https://api.jikan.moe/v4"
	userAgent      = "pokerjest/animeshelf/1.0 (https://github.com/pokerjest/animeshelf)"
)

var (
	ErrNotFound  = errors.New("jikan: anime not found")
	ErrMalformed = errors.New("jikan: malformed response")
)

// StatusError is a non-2xx answer other than 404.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jikan: unexpected status %s", e.Status)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Client performs single, unretried requests. Pacing and retries are the
// caller's job.
type Client struct {
	baseURL string
	client  *resty.Client
}

func NewClient(baseURL, proxyURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  c,
	}
}

// GetAnime fetches GET /anime/{id}.
func (c *Client) GetAnime(ctx context.Context, id int) (*Anime, error) {
	u := fmt.Sprintf("%s/anime/%d", c.baseURL, id)

	resp, err := c.client.R().
		SetContext(ctx).
		Get(u)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.IsError():
		return nil, &StatusError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	var result animeResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if result.Data == nil || result.Data.MalID == 0 {
		return nil, fmt.Errorf("%w: empty data object", ErrMalformed)
	}
	return result.Data, nil
}

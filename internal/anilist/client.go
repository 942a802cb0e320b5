package anilist

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
	GraphQLEndpoint = "https://graphql.anilist.co"
)

var (
	ErrNotFound  = errors.New("anilist: media not found")
	ErrMalformed = errors.New("anilist: malformed response")
)

type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AniList API Error: %s", e.Status)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

type Client struct {
	client   *resty.Client
	endpoint string
	Token    string
}

func NewClient(endpoint, token, proxyURL string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = GraphQLEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New()
	c.SetTimeout(timeout)
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	if token != "" {
		c.SetHeader("Authorization", "Bearer "+token)
	}
	c.SetHeader("Content-Type", "application/json")
	c.SetHeader("Accept", "application/json")

	return &Client{
		client:   c,
		endpoint: endpoint,
		Token:    token,
	}
}

type MediaTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

type CoverImage struct {
	ExtraLarge string `json:"extraLarge"`
	Large      string `json:"large"`
	Medium     string `json:"medium"`
}

// Best returns the highest resolution variant available.
func (c CoverImage) Best() string {
	for _, u := range []string{c.ExtraLarge, c.Large, c.Medium} {
		if u != "" {
			return u
		}
	}
	return ""
}

type Media struct {
	ID         int        `json:"id"`
	IDMal      int        `json:"idMal"`
	Title      MediaTitle `json:"title"`
	CoverImage CoverImage `json:"coverImage"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type mediaResponse struct {
	Data struct {
		Media *Media `json:"Media"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type searchResponse struct {
	Data struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

const mediaFields = `
	      id
	      idMal
	      title {
	        romaji
	        english
	        native
	      }
	      coverImage {
	        extraLarge
	        large
	        medium
	      }`

// GetByMalID looks a show up by its MyAnimeList id.
func (c *Client) GetByMalID(ctx context.Context, malID int) (*Media, error) {
	graphqlQuery := `
	query ($id: Int) {
	  Media(idMal: $id, type: ANIME) {` + mediaFields + `
	  }
	}
	`
	var result mediaResponse
	if err := c.post(ctx, graphqlQuery, map[string]interface{}{"id": malID}, &result); err != nil {
		return nil, err
	}
	if err := firstError(result.Errors); err != nil {
		return nil, err
	}
	if result.Data.Media == nil {
		return nil, ErrNotFound
	}
	return result.Data.Media, nil
}

// SearchAnime returns the best title match.
func (c *Client) SearchAnime(ctx context.Context, query string) (*Media, error) {
	graphqlQuery := `
	query ($search: String) {
	  Page(page: 1, perPage: 1) {
	    media(search: $search, type: ANIME, sort: SEARCH_MATCH) {` + mediaFields + `
	    }
	  }
	}
	`
	var result searchResponse
	if err := c.post(ctx, graphqlQuery, map[string]interface{}{"search": query}, &result); err != nil {
		return nil, err
	}
	if err := firstError(result.Errors); err != nil {
		return nil, err
	}
	if len(result.Data.Page.Media) == 0 {
		return nil, ErrNotFound
	}
	return &result.Data.Page.Media[0], nil
}

func (c *Client) post(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	payload := map[string]interface{}{
		"query":     query,
		"variables": variables,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.endpoint)
	if err != nil {
		return err
	}

	// AniList answers a missing Media with 404 and a GraphQL error body
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.IsError() {
		return &StatusError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func firstError(errs []graphQLError) error {
	if len(errs) == 0 {
		return nil
	}
	if errs[0].Status == http.StatusNotFound || strings.EqualFold(strings.TrimSpace(errs[0].Message), "not found.") {
		return ErrNotFound
	}
	return fmt.Errorf("AniList GraphQL Error: %s", errs[0].Message)
}

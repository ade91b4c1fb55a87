package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"shelfsync/internal/lookup"
)

const defaultBaseURL = "https://openlibrary.org"

// Client queries the Open Library search API for ISBN candidates.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint (tests use an
// httptest server).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.SetTimeout(timeout)
		}
	}
}

// New creates an Open Library client.
func New(opts ...Option) *Client {
	http := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")

	c := &Client{http: http}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the source in logs and lookup ordering.
func (c *Client) Name() string { return "openlibrary" }

type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Title      string   `json:"title"`
		AuthorName []string `json:"author_name"`
		ISBN       []string `json:"isbn"`
	} `json:"docs"`
}

// Search performs a title/author keyword search and returns up to five
// candidates with their raw identifier lists.
func (c *Client) Search(ctx context.Context, title, author string) ([]lookup.Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title must not be empty")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", fmt.Sprintf("title:%s author:%s", title, author)).
		SetQueryParam("limit", "5").
		Get("/search.json")
	if err != nil {
		return nil, fmt.Errorf("open library search: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("open library search returned %d", resp.StatusCode())
	}

	var payload searchResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode open library response: %w", err)
	}

	candidates := make([]lookup.Candidate, 0, len(payload.Docs))
	for _, doc := range payload.Docs {
		if len(doc.ISBN) == 0 {
			continue
		}
		candidates = append(candidates, lookup.Candidate{
			Title:   doc.Title,
			Authors: doc.AuthorName,
			ISBNs:   doc.ISBN,
		})
	}
	return candidates, nil
}

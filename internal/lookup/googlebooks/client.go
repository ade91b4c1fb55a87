package googlebooks

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

const defaultBaseURL = "https://www.googleapis.com"

// Client queries the Google Books volumes API for ISBN candidates.
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

// New creates a Google Books client.
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
func (c *Client) Name() string { return "googlebooks" }

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title               string   `json:"title"`
			Authors             []string `json:"authors"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Search performs a title/author keyword search and returns up to five
// candidates. ISBN-13 identifiers are listed before ISBN-10 so the
// resolver's preference order sees them first.
func (c *Client) Search(ctx context.Context, title, author string) ([]lookup.Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title must not be empty")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", fmt.Sprintf("intitle:%s inauthor:%s", title, author)).
		SetQueryParam("maxResults", "5").
		Get("/books/v1/volumes")
	if err != nil {
		return nil, fmt.Errorf("google books search: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("google books search returned %d", resp.StatusCode())
	}

	var payload volumesResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode google books response: %w", err)
	}

	candidates := make([]lookup.Candidate, 0, len(payload.Items))
	for _, item := range payload.Items {
		var thirteens, tens []string
		for _, identifier := range item.VolumeInfo.IndustryIdentifiers {
			switch identifier.Type {
			case "ISBN_13":
				thirteens = append(thirteens, identifier.Identifier)
			case "ISBN_10":
				tens = append(tens, identifier.Identifier)
			}
		}
		isbns := append(thirteens, tens...)
		if len(isbns) == 0 {
			continue
		}
		candidates = append(candidates, lookup.Candidate{
			Title:   item.VolumeInfo.Title,
			Authors: item.VolumeInfo.Authors,
			ISBNs:   isbns,
		})
	}
	return candidates, nil
}

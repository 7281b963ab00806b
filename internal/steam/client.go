package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nhoad/steamnews/internal/domain"
	"github.com/nhoad/steamnews/pkg/httpclient"
)

// Package steam talks to the Steam Web API. One client covers all three
// endpoints; the variants are endpoint URLs and query parameters, not types.

// ErrRateLimited is returned when the detail endpoint reports that the
// request budget for this client is exhausted.
var ErrRateLimited = errors.New("steam: rate limit exceeded")

// Endpoints holds the three upstream URLs.
type Endpoints struct {
	Catalog string
	Details string
	News    string
}

// Client is a thin, injectable Steam Web API client.
type Client struct {
	http httpclient.Client
	eps  Endpoints
}

// NewClient builds a Client. A nil http client gets a default resty one.
func NewClient(client httpclient.Client, eps Endpoints) *Client {
	if client == nil {
		client = httpclient.NewRestyClient(15 * time.Second)
	}
	return &Client{http: client, eps: eps}
}

// AppDetail is the per-id payload of the detail endpoint.
type AppDetail struct {
	Success bool          `json:"success"`
	Data    AppDetailData `json:"data"`
}

// AppDetailData carries the fields the engine derives a record from.
type AppDetailData struct {
	Type      string    `json:"type"`
	Genres    []Genre   `json:"genres"`
	Platforms Platforms `json:"platforms"`
}

// Genre is one genre tag. The upstream encodes ids inconsistently as
// numbers or strings, so the id gets a tolerant decoder.
type Genre struct {
	ID FlexInt `json:"id"`
}

// Platforms is the per-OS support map.
type Platforms struct {
	Windows bool `json:"windows"`
	Mac     bool `json:"mac"`
	Linux   bool `json:"linux"`
}

// FlexInt decodes a JSON number or a numeric JSON string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("genre id %q is not numeric: %w", s, err)
	}
	*f = FlexInt(n)
	return nil
}

// AppList fetches the full catalog of id/name pairs.
func (c *Client) AppList(ctx context.Context) ([]domain.CatalogEntry, error) {
	var payload struct {
		AppList struct {
			Apps []domain.CatalogEntry `json:"apps"`
		} `json:"applist"`
	}
	if err := c.getJSON(ctx, c.eps.Catalog, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch app list: %w", err)
	}
	return payload.AppList.Apps, nil
}

// AppDetails resolves a batch of ids against the detail endpoint. The result
// maps decimal id strings to their payloads; ids the server omitted are
// simply absent. A 429 response returns ErrRateLimited.
func (c *Client) AppDetails(ctx context.Context, ids []int) (map[string]AppDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	var payload map[string]AppDetail
	err := c.getJSON(ctx, c.eps.Details, map[string]string{
		"appids": strings.Join(parts, ","),
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("fetch app details: %w", err)
	}
	return payload, nil
}

// NewsForApp fetches up to count recent news items for the given id.
func (c *Client) NewsForApp(ctx context.Context, id, count int) ([]domain.NewsItem, error) {
	var payload struct {
		AppNews struct {
			NewsItems []domain.NewsItem `json:"newsitems"`
		} `json:"appnews"`
	}
	err := c.getJSON(ctx, c.eps.News, map[string]string{
		"appid":  strconv.Itoa(id),
		"count":  strconv.Itoa(count),
		"format": "json",
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("fetch news for %d: %w", id, err)
	}
	return payload.AppNews.NewsItems, nil
}

// getJSON is the single parametrized request operation all endpoints share.
func (c *Client) getJSON(ctx context.Context, url string, query map[string]string, out any) error {
	resp, err := c.http.Get(ctx, url, query)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

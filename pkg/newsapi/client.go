package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-news-snapshot/pkg/httpclient"
)

const (
	DefaultBaseURL  = "https://newsapi.org"
	DefaultCountry  = "jp"
	DefaultCategory = "general"
	DefaultLanguage = "jp"
	DefaultSortBy   = "relevancy"

	headlinesPath  = "/v2/top-headlines"
	everythingPath = "/v2/everything"
	apiKeyHeader   = "X-Api-Key"
)

// Options configures the fixed query parameters of a Client.
type Options struct {
	BaseURL  string
	APIKey   string
	Country  string
	Category string
	Language string
	SortBy   string
}

// Client queries NewsAPI over an httpclient.Client.
type Client struct {
	http httpclient.Client
	opts Options
}

// NewClient builds a Client, filling unset options with defaults.
// The API key is passed through as-is; a missing key surfaces as a fetch error.
func NewClient(client httpclient.Client, opts Options) *Client {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.Options{})
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Country == "" {
		opts.Country = DefaultCountry
	}
	if opts.Category == "" {
		opts.Category = DefaultCategory
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.SortBy == "" {
		opts.SortBy = DefaultSortBy
	}
	return &Client{http: client, opts: opts}
}

// FetchHeadlines returns up to count top headlines for the configured country and category.
func (c *Client) FetchHeadlines(ctx context.Context, count int) ([]Article, error) {
	return c.get(ctx, headlinesPath, map[string]string{
		"country":  c.opts.Country,
		"category": c.opts.Category,
		"pageSize": strconv.Itoa(count),
	})
}

// FetchByKeyword returns up to count articles matching keyword, by relevance.
func (c *Client) FetchByKeyword(ctx context.Context, keyword string, count int) ([]Article, error) {
	return c.get(ctx, everythingPath, map[string]string{
		"q":        keyword,
		"language": c.opts.Language,
		"sortBy":   c.opts.SortBy,
		"pageSize": strconv.Itoa(count),
	})
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]Article, error) {
	headers := map[string]string{"Accept": "application/json"}
	if c.opts.APIKey != "" {
		headers[apiKeyHeader] = c.opts.APIKey
	}

	resp, err := c.http.Get(ctx, c.opts.BaseURL+path, query, headers)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}

	var body response
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if resp.StatusCode() != http.StatusOK || body.Status == "error" {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Code: body.Code, Message: body.Message}
		if decodeErr != nil || apiErr.Message == "" {
			apiErr.Message = responseSnippet(resp.Body())
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, decodeErr)
	}

	if body.Articles == nil {
		return []Article{}, nil
	}
	return body.Articles, nil
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

// Package newsapi is a client for the NewsAPI v2 REST endpoints used to build
// article snapshots, plus the normalizer that turns provider records into
// domain articles.
package newsapi

import (
	"context"
	"fmt"
)

// Source is the provider's source descriptor.
type Source struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

// Article is a provider article record. Every field may be absent.
type Article struct {
	Source      *Source `json:"source"`
	Author      *string `json:"author"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt *string `json:"publishedAt"`
	Content     *string `json:"content"`
}

// response is the envelope shared by all v2 endpoints.
type response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
}

// Fetcher is the pair of queries the aggregator issues against the provider.
type Fetcher interface {
	FetchHeadlines(ctx context.Context, count int) ([]Article, error)
	FetchByKeyword(ctx context.Context, keyword string, count int) ([]Article, error)
}

// APIError is a failure reported by the provider.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("newsapi: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("newsapi: status %d %s: %s", e.StatusCode, e.Code, e.Message)
}

package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
	"github.com/samvad-hq/samvad-news-snapshot/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient serves canned pages per URL.
type stubHTTPClient struct {
	mu    sync.Mutex
	pages map[string]stubHTTPResponse
	calls []string
}

func (s *stubHTTPClient) Get(_ context.Context, url string, _, _ map[string]string) (httpclient.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()
	resp, ok := s.pages[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return resp, nil
}

func TestParseImagePrefersOGTags(t *testing.T) {
	html := []byte(`
<html>
  <head>
    <meta name="twitter:image" content="/tw.png">
    <meta property="og:image" content=" /img/og.png ">
  </head>
</html>`)

	img, err := parseImage(html)
	if err != nil {
		t.Fatalf("parseImage: %v", err)
	}
	if img != "/img/og.png" {
		t.Fatalf("unexpected image %q", img)
	}
}

func TestResolveURLHandlesRelative(t *testing.T) {
	got := resolveURL("/img.png", "https://example.com/articles/1")
	if got != "https://example.com/img.png" {
		t.Fatalf("resolveURL got %q", got)
	}
	if got := resolveURL("", "https://example.com"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestScraperEnrichFillsOnlyMissingImages(t *testing.T) {
	client := &stubHTTPClient{pages: map[string]stubHTTPResponse{
		"https://example.com/a": {statusCode: 200, body: []byte(`<meta property="og:image" content="/a.jpg">`)},
		"https://example.com/b": {statusCode: 500},
	}}
	scraper := NewScraper(client, 2, nil)

	in := []domain.Article{
		{Title: "a", URI: "https://example.com/a"},
		{Title: "b", URI: "https://example.com/b"},
		{Title: "c", URI: "https://example.com/c", URIToImage: "https://cdn/c.jpg"},
		{Title: "d"},
	}
	out := scraper.Enrich(context.Background(), in)

	if out[0].URIToImage != "https://example.com/a.jpg" {
		t.Fatalf("expected resolved image, got %q", out[0].URIToImage)
	}
	if out[1].URIToImage != "" {
		t.Fatalf("failed scrape must leave image empty, got %q", out[1].URIToImage)
	}
	if out[2].URIToImage != "https://cdn/c.jpg" {
		t.Fatalf("existing image overwritten: %q", out[2].URIToImage)
	}
	if in[0].URIToImage != "" {
		t.Fatalf("input slice must not be mutated")
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 page fetches, got %v", client.calls)
	}
}

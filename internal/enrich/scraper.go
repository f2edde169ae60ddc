// Package enrich fills in article images from the article pages' Open Graph tags.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
	"github.com/samvad-hq/samvad-news-snapshot/internal/logger"
	"github.com/samvad-hq/samvad-news-snapshot/pkg/httpclient"
)

const (
	maxHTMLBodyBytes   = 1 << 20 // 1 MiB
	defaultParallelism = 4
)

// Scraper fetches article pages and extracts og:image for articles without an image.
type Scraper struct {
	client      httpclient.Client
	parallelism int
	log         logger.Logger
}

// NewScraper constructs a scraper with the provided HTTP client (or default).
func NewScraper(client httpclient.Client, parallelism int, log logger.Logger) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.Options{})
	}
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &Scraper{client: client, parallelism: parallelism, log: logger.Ensure(log)}
}

// Enrich returns a copy of articles where missing images are filled from the
// article page. Failures leave the article unchanged.
func (s *Scraper) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := append([]domain.Article(nil), articles...)

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i := range out {
		if out[i].URIToImage != "" || out[i].URI == "" {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			img, err := s.fetchImage(ctx, out[i].URI)
			if err != nil {
				s.log.WarnObj("article image scrape failed", "enrich_error", map[string]any{
					"url":   out[i].URI,
					"error": err.Error(),
				})
				return nil
			}
			out[i].URIToImage = img
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Scraper) fetchImage(ctx context.Context, pageURL string) (string, error) {
	resp, err := s.client.Get(ctx, pageURL, nil, map[string]string{"Accept": "text/html"})
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}
	img, err := parseImage(body)
	if err != nil {
		return "", err
	}
	return resolveURL(img, pageURL), nil
}

func parseImage(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	for _, sel := range []string{
		`meta[property="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
	} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok && strings.TrimSpace(val) != "" {
				return strings.TrimSpace(val), nil
			}
		}
	}
	return "", nil
}

// resolveURL makes ref absolute against base; blank refs stay blank.
func resolveURL(ref, base string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

package newsapi

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
)

// Normalize converts a provider record into a domain article. Missing strings
// become empty and a missing or unparseable publishedAt becomes the NaN sentinel.
func Normalize(a Article) domain.Article {
	var source string
	if a.Source != nil {
		source = deref(a.Source.Name)
	}
	return domain.Article{
		Source:      source,
		Author:      deref(a.Author),
		Title:       deref(a.Title),
		Description: deref(a.Description),
		URI:         deref(a.URL),
		URIToImage:  deref(a.URLToImage),
		PublishedAt: ParsePublishedAt(deref(a.PublishedAt)),
	}
}

// NormalizeAll normalizes records in order.
func NormalizeAll(records []Article) []domain.Article {
	out := make([]domain.Article, len(records))
	for i, r := range records {
		out[i] = Normalize(r)
	}
	return out
}

// minPublishedYear rejects fallback parses that carry no real calendar date.
const minPublishedYear = 1970

// ParsePublishedAt parses a provider timestamp into epoch milliseconds.
// Zone-less values are read as UTC. Anything without a full date is NaN.
func ParsePublishedAt(raw string) domain.EpochMillis {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.NaN()
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return domain.MillisFromTime(t)
	}
	t, err := dateparse.ParseStrict(raw)
	if err != nil || t.Year() < minPublishedYear {
		return domain.NaN()
	}
	return domain.MillisFromTime(t)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

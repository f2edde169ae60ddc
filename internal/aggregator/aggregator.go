// Package aggregator runs one refresh cycle: it fans out every upstream fetch a
// snapshot needs, waits for all of them, and assembles the ordered result.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
	"github.com/samvad-hq/samvad-news-snapshot/internal/logger"
	"github.com/samvad-hq/samvad-news-snapshot/internal/metrics"
	"github.com/samvad-hq/samvad-news-snapshot/pkg/newsapi"
)

const (
	DefaultHeadlineCount = 15
	DefaultThemeBudget   = 6
)

// ThemeLister supplies the themes of a cycle in presentation order.
type ThemeLister interface {
	All(ctx context.Context) ([]domain.Theme, error)
}

// ImageEnricher fills in missing article images. It must not fail the cycle.
type ImageEnricher interface {
	Enrich(ctx context.Context, articles []domain.Article) []domain.Article
}

// Options tune a cycle. Zero values select the defaults; MaxInFlight and
// FetchTimeout stay disabled at zero.
type Options struct {
	HeadlineCount int
	ThemeBudget   int
	MaxInFlight   int
	FetchTimeout  time.Duration
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithEnricher enables image enrichment of the assembled snapshot.
func WithEnricher(e ImageEnricher) Option {
	return func(a *Aggregator) { a.enricher = e }
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Aggregator) { a.log = logger.Ensure(log) }
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator builds snapshots from the news provider and the theme source.
type Aggregator struct {
	fetcher  newsapi.Fetcher
	themes   ThemeLister
	opts     Options
	enricher ImageEnricher
	metrics  *metrics.Metrics
	log      logger.Logger
	now      func() time.Time
}

// New constructs an aggregator.
func New(fetcher newsapi.Fetcher, themes ThemeLister, opts Options, options ...Option) (*Aggregator, error) {
	if fetcher == nil {
		return nil, errors.New("aggregator: fetcher must not be nil")
	}
	if themes == nil {
		return nil, errors.New("aggregator: theme source must not be nil")
	}
	if opts.HeadlineCount <= 0 {
		opts.HeadlineCount = DefaultHeadlineCount
	}
	if opts.ThemeBudget <= 0 {
		opts.ThemeBudget = DefaultThemeBudget
	}
	a := &Aggregator{
		fetcher: fetcher,
		themes:  themes,
		opts:    opts,
		log:     logger.NopLogger{},
		now:     time.Now,
	}
	for _, o := range options {
		o(a)
	}
	return a, nil
}

// Quota is the per-keyword page size for a theme with k keywords.
func Quota(budget, k int) int {
	if k <= 0 {
		return budget
	}
	return max(1, budget/k)
}

// Run executes one cycle. Any fetch or theme source failure aborts the whole
// cycle and no snapshot is returned.
func (a *Aggregator) Run(ctx context.Context) (*domain.Snapshot, error) {
	list, err := a.themes.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	active := make([]domain.Theme, 0, len(list))
	for _, th := range list {
		if th.HasKeywords() {
			active = append(active, th)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.opts.MaxInFlight > 0 {
		g.SetLimit(a.opts.MaxInFlight)
	}

	var headlines []newsapi.Article
	g.Go(func() error {
		res, err := a.fetch(gctx, metrics.KindHeadlines, func(ctx context.Context) ([]newsapi.Article, error) {
			return a.fetcher.FetchHeadlines(ctx, a.opts.HeadlineCount)
		})
		if err != nil {
			return fmt.Errorf("fetch headlines: %w", err)
		}
		headlines = res
		return nil
	})

	// results[i][j] holds keyword j of active theme i.
	results := make([][][]newsapi.Article, len(active))
	for i, th := range active {
		results[i] = make([][]newsapi.Article, len(th.Keywords))
		quota := Quota(a.opts.ThemeBudget, len(th.Keywords))
		for j, kw := range th.Keywords {
			g.Go(func() error {
				res, err := a.fetch(gctx, metrics.KindKeyword, func(ctx context.Context) ([]newsapi.Article, error) {
					return a.fetcher.FetchByKeyword(ctx, kw, quota)
				})
				if err != nil {
					return fmt.Errorf("fetch theme %d keyword %q: %w", th.ID, kw, err)
				}
				results[i][j] = res
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{
		Latest:      sortedArticles(headlines),
		Related:     make([]domain.ThemeArticles, len(active)),
		CycleID:     uuid.NewString(),
		GeneratedAt: a.now().UTC(),
	}
	for i, th := range active {
		var merged []newsapi.Article
		for _, part := range results[i] {
			merged = append(merged, part...)
		}
		snap.Related[i] = domain.ThemeArticles{ThemeID: th.ID, Articles: sortedArticles(merged)}
	}

	if a.enricher != nil {
		a.enrich(ctx, snap)
	}

	a.log.DebugObj("snapshot assembled", "snapshot_meta", map[string]any{
		"cycle_id":        snap.CycleID,
		"headlines":       len(snap.Latest),
		"themes":          len(snap.Related),
		"themes_skipped":  len(list) - len(active),
		"related_article": snap.RelatedCount(),
	})
	return snap, nil
}

func (a *Aggregator) fetch(ctx context.Context, kind string, call func(context.Context) ([]newsapi.Article, error)) ([]newsapi.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.FetchTimeout)
		defer cancel()
	}
	res, err := call(ctx)
	a.metrics.RecordFetch(kind, err)
	return res, err
}

func (a *Aggregator) enrich(ctx context.Context, snap *domain.Snapshot) {
	snap.Latest = a.enricher.Enrich(ctx, snap.Latest)
	for i := range snap.Related {
		snap.Related[i].Articles = a.enricher.Enrich(ctx, snap.Related[i].Articles)
	}
}

// sortedArticles normalizes records and orders them ascending by publish time.
func sortedArticles(records []newsapi.Article) []domain.Article {
	out := newsapi.NormalizeAll(records)
	slices.SortStableFunc(out, domain.ComparePublishedAt)
	return out
}

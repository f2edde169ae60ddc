// Package app wires the snapshot engine together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-news-snapshot/internal/aggregator"
	"github.com/samvad-hq/samvad-news-snapshot/internal/config"
	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
	"github.com/samvad-hq/samvad-news-snapshot/internal/enrich"
	"github.com/samvad-hq/samvad-news-snapshot/internal/httpapi"
	"github.com/samvad-hq/samvad-news-snapshot/internal/logger"
	"github.com/samvad-hq/samvad-news-snapshot/internal/metrics"
	"github.com/samvad-hq/samvad-news-snapshot/internal/snapshot"
	"github.com/samvad-hq/samvad-news-snapshot/internal/themes"
	"github.com/samvad-hq/samvad-news-snapshot/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-snapshot/pkg/newsapi"
	"github.com/samvad-hq/samvad-news-snapshot/pkg/reports"
	"github.com/sony/gobreaker"
)

const shutdownTimeout = 5 * time.Second

// Runtime holds the wired components of the service.
type Runtime struct {
	cfg       *config.Config
	log       logger.Logger
	themes    themes.Source
	store     *snapshot.Store
	refresher *Refresher
	fanout    *reports.Fanout
	registry  *prometheus.Registry
	api       *httpapi.Server
}

// NewRuntime builds the runtime from config.
func NewRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := themes.NewSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("init theme source: %w", err)
	}
	log.InfoObj("theme source initialized", "theme_source", map[string]any{
		"type": cfg.ThemeSource,
	})

	fanout, err := newReportFanout(ctx, cfg, log)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	release := func() {
		_ = src.Close()
		_ = fanout.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	httpClient := httpclient.NewRestyClient(httpclient.Options{
		Timeout:    cfg.HTTPTimeout,
		RetryCount: cfg.HTTPRetryCount,
	})
	fetcher := newsapi.NewGuarded(newsapi.NewClient(httpClient, newsapi.Options{
		BaseURL:  cfg.NewsAPIBaseURL,
		APIKey:   cfg.NewsAPIKey,
		Country:  cfg.NewsAPICountry,
		Category: cfg.NewsAPICategory,
		Language: cfg.NewsAPILanguage,
		SortBy:   cfg.NewsAPISortBy,
	}), newsapi.GuardOptions{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		Breaker:           cfg.BreakerEnabled,
		BreakerName:       "newsapi",
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WarnObj("newsapi circuit breaker state changed", "breaker_state", map[string]any{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})

	aggOpts := []aggregator.Option{aggregator.WithLogger(log), aggregator.WithMetrics(m)}
	if cfg.EnrichImages {
		aggOpts = append(aggOpts, aggregator.WithEnricher(enrich.NewScraper(httpClient, 0, log)))
	}
	agg, err := aggregator.New(fetcher, src, aggregator.Options{
		HeadlineCount: cfg.HeadlineCount,
		ThemeBudget:   cfg.ThemeBudget,
		MaxInFlight:   cfg.MaxInFlightFetches,
		FetchTimeout:  cfg.FetchTimeout,
	}, aggOpts...)
	if err != nil {
		release()
		return nil, fmt.Errorf("init aggregator: %w", err)
	}

	store := snapshot.NewStore()
	refresher, err := NewRefresher(agg, store, RefresherOptions{
		Interval:      cfg.RefreshInterval,
		OverlapPolicy: cfg.OverlapPolicy,
		Reports:       fanout,
		Metrics:       m,
	}, log)
	if err != nil {
		release()
		return nil, fmt.Errorf("init refresher: %w", err)
	}

	return &Runtime{
		cfg:       cfg,
		log:       log,
		themes:    src,
		store:     store,
		refresher: refresher,
		fanout:    fanout,
		registry:  registry,
		api:       httpapi.New(store, src, registry, log),
	}, nil
}

// newReportFanout is swapped in tests to observe sink lifecycle.
var newReportFanout = buildReports

func buildReports(ctx context.Context, cfg *config.Config, log logger.Logger) (*reports.Fanout, error) {
	if cfg.ReportsFile == "" {
		return reports.NewFanout([]reports.Sink{reports.NewLogSink("log", log)}), nil
	}

	sinkCfgs, err := reports.LoadConfig(cfg.ReportsFile)
	if err != nil {
		return nil, fmt.Errorf("load reports config: %w", err)
	}
	sinks, err := reports.BuildAll(ctx, reports.DefaultRegistry(), sinkCfgs, log)
	if err != nil {
		return nil, fmt.Errorf("build report sinks: %w", err)
	}

	summaries := make([]map[string]string, 0, len(sinkCfgs))
	for _, sc := range sinkCfgs {
		summaries = append(summaries, map[string]string{"id": sc.ID, "type": sc.Type})
	}
	log.InfoObj("report sinks loaded", "reports_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return reports.NewFanout(sinks), nil
}

// Serve runs the refresher and the read API until ctx is cancelled.
func (rt *Runtime) Serve(ctx context.Context) error {
	if rt == nil || rt.refresher == nil {
		return errors.New("runtime is not initialized")
	}

	srv := &http.Server{
		Addr:              rt.cfg.HTTPAddr,
		Handler:           rt.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.refresher.Run(gctx)
	})
	g.Go(func() error {
		rt.log.InfoObj("read api listening", "http_addr", rt.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Refresh runs a single cycle and returns the published snapshot.
func (rt *Runtime) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	if err := rt.refresher.RunOnce(ctx, reports.TriggerManual); err != nil {
		return nil, err
	}
	snap, _ := rt.store.Current()
	return snap, nil
}

// Close releases the theme source and report sinks.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	return errors.Join(rt.themes.Close(), rt.fanout.Close())
}

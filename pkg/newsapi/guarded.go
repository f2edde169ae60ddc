package newsapi

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardOptions configures the protections applied by Guarded.
// Zero values disable the corresponding guard.
type GuardOptions struct {
	// RequestsPerSecond caps the sustained request rate towards the provider.
	RequestsPerSecond float64
	Burst             int

	// Breaker enables a circuit breaker that opens after repeated failures.
	Breaker        bool
	BreakerName    string
	BreakerTimeout time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests have been observed in the current interval.
	FailureThreshold float64
	MinRequests      uint32

	OnStateChange func(name string, from, to gobreaker.State)
}

// Guarded wraps a Fetcher with an optional rate limiter and circuit breaker.
type Guarded struct {
	next    Fetcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuarded returns next unchanged when no guard is enabled.
func NewGuarded(next Fetcher, opts GuardOptions) Fetcher {
	if opts.RequestsPerSecond <= 0 && !opts.Breaker {
		return next
	}
	g := &Guarded{next: next}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.Breaker {
		g.breaker = gobreaker.NewCircuitBreaker(breakerSettings(opts))
	}
	return g
}

func breakerSettings(opts GuardOptions) gobreaker.Settings {
	name := opts.BreakerName
	if name == "" {
		name = "newsapi"
	}
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	threshold := opts.FailureThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	minRequests := opts.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= threshold
		},
		OnStateChange: opts.OnStateChange,
	}
}

// FetchHeadlines applies the guards around the wrapped call.
func (g *Guarded) FetchHeadlines(ctx context.Context, count int) ([]Article, error) {
	return g.do(ctx, func() ([]Article, error) { return g.next.FetchHeadlines(ctx, count) })
}

// FetchByKeyword applies the guards around the wrapped call.
func (g *Guarded) FetchByKeyword(ctx context.Context, keyword string, count int) ([]Article, error) {
	return g.do(ctx, func() ([]Article, error) { return g.next.FetchByKeyword(ctx, keyword, count) })
}

// State reports the breaker state; closed when no breaker is configured.
func (g *Guarded) State() gobreaker.State {
	if g.breaker == nil {
		return gobreaker.StateClosed
	}
	return g.breaker.State()
}

func (g *Guarded) do(ctx context.Context, fn func() ([]Article, error)) ([]Article, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if g.breaker == nil {
		return fn()
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		articles, err := fn()
		return articles, err
	})
	if err != nil {
		return nil, err
	}
	return out.([]Article), nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/samvad-hq/samvad-news-snapshot/internal/config"
	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
	"github.com/samvad-hq/samvad-news-snapshot/internal/logger"
	"github.com/samvad-hq/samvad-news-snapshot/internal/metrics"
	"github.com/samvad-hq/samvad-news-snapshot/pkg/reports"
)

const reportTimeout = 10 * time.Second

// ErrCycleInProgress is returned when a cycle is skipped because another one is running.
var ErrCycleInProgress = errors.New("refresh cycle already in progress")

// Cycle produces one complete snapshot.
type Cycle interface {
	Run(ctx context.Context) (*domain.Snapshot, error)
}

// Publisher makes a snapshot visible to readers.
type Publisher interface {
	Publish(snap *domain.Snapshot)
}

// ReportSender delivers cycle reports.
type ReportSender interface {
	Send(ctx context.Context, r reports.Report) (int, error)
}

// RefresherOptions configures scheduling.
type RefresherOptions struct {
	Interval      time.Duration
	OverlapPolicy string
	Reports       ReportSender
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// Refresher runs refresh cycles on a schedule and publishes their snapshots.
type Refresher struct {
	cycle     Cycle
	publisher Publisher
	opts      RefresherOptions
	log       logger.Logger
	running   atomic.Bool
	wg        sync.WaitGroup
}

// NewRefresher wires a cycle to a publisher.
func NewRefresher(cycle Cycle, publisher Publisher, opts RefresherOptions, log logger.Logger) (*Refresher, error) {
	if cycle == nil || publisher == nil {
		return nil, errors.New("refresher requires a cycle and a publisher")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", opts.Interval)
	}
	switch opts.OverlapPolicy {
	case "":
		opts.OverlapPolicy = config.OverlapSkip
	case config.OverlapSkip, config.OverlapAllow:
	default:
		return nil, fmt.Errorf("unknown overlap policy %q", opts.OverlapPolicy)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Refresher{cycle: cycle, publisher: publisher, opts: opts, log: logger.Ensure(log)}, nil
}

// Run starts one cycle immediately in the background, then one per interval,
// until ctx is cancelled. It returns after in-flight cycles have drained.
func (r *Refresher) Run(ctx context.Context) error {
	c := cron.New(cron.WithLogger(cronLogger{log: r.log}))
	schedule := "@every " + r.opts.Interval.String()
	if _, err := c.AddFunc(schedule, func() {
		r.trigger(ctx, reports.TriggerScheduled)
	}); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", schedule, err)
	}

	r.log.InfoObj("refresher starting", "refresher_state", map[string]any{
		"interval":       r.opts.Interval.String(),
		"overlap_policy": r.opts.OverlapPolicy,
	})

	c.Start()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.trigger(ctx, reports.TriggerInitial)
	}()

	<-ctx.Done()
	r.log.InfoObj("refresher stopping", "reason", ctx.Err().Error())
	<-c.Stop().Done()
	r.wg.Wait()
	return nil
}

func (r *Refresher) trigger(ctx context.Context, trigger string) {
	if err := r.RunOnce(ctx, trigger); err != nil && !errors.Is(err, ErrCycleInProgress) {
		r.log.ErrorObj("refresh cycle failed", "refresh_error", map[string]any{
			"trigger": trigger,
			"error":   err.Error(),
		})
	}
}

// RunOnce executes a single cycle and publishes the result on success. Under
// the skip policy it returns ErrCycleInProgress when another cycle is running.
func (r *Refresher) RunOnce(ctx context.Context, trigger string) error {
	if r.opts.OverlapPolicy == config.OverlapSkip {
		if !r.running.CompareAndSwap(false, true) {
			r.skip(ctx, trigger)
			return ErrCycleInProgress
		}
		defer r.running.Store(false)
	}

	started := r.opts.Now()
	snap, err := r.cycle.Run(ctx)
	finished := r.opts.Now()
	elapsed := finished.Sub(started)

	rep := reports.Report{
		Trigger:    trigger,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		rep.CycleID = uuid.NewString()
		rep.Status = reports.StatusFailure
		rep.Error = err.Error()
		r.opts.Metrics.RecordCycle(metrics.StatusFailure, elapsed)
		r.send(ctx, rep)
		return err
	}

	r.publisher.Publish(snap)
	r.opts.Metrics.RecordCycle(metrics.StatusSuccess, elapsed)
	r.opts.Metrics.RecordPublish(finished, len(snap.Latest), snap.RelatedCount())

	rep.CycleID = snap.CycleID
	rep.Status = reports.StatusSuccess
	rep.HeadlineCount = len(snap.Latest)
	rep.ThemeCount = len(snap.Related)
	rep.RelatedArticleCount = snap.RelatedCount()
	r.log.InfoObj("snapshot published", "snapshot_meta", map[string]any{
		"cycle_id":    rep.CycleID,
		"trigger":     trigger,
		"headlines":   rep.HeadlineCount,
		"themes":      rep.ThemeCount,
		"related":     rep.RelatedArticleCount,
		"duration_ms": rep.DurationMS,
	})
	r.send(ctx, rep)
	return nil
}

func (r *Refresher) skip(ctx context.Context, trigger string) {
	now := r.opts.Now().UTC()
	r.log.WarnObj("refresh cycle skipped; previous cycle still running", "trigger", trigger)
	r.opts.Metrics.RecordCycle(metrics.StatusSkipped, 0)
	r.send(ctx, reports.Report{
		CycleID:    uuid.NewString(),
		Status:     reports.StatusSkipped,
		Trigger:    trigger,
		StartedAt:  now,
		FinishedAt: now,
	})
}

// send delivers the report even when ctx is already cancelled.
func (r *Refresher) send(ctx context.Context, rep reports.Report) {
	if r.opts.Reports == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()
	if _, err := r.opts.Reports.Send(sendCtx, rep); err != nil {
		r.log.WarnObj("cycle report delivery failed", "report_error", map[string]any{
			"cycle_id": rep.CycleID,
			"error":    err.Error(),
		})
	}
}

// cronLogger adapts the structured logger to cron's logging interface.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.DebugObj("cron: "+msg, "cron", pairs(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := pairs(keysAndValues)
	if err != nil {
		fields["error"] = err.Error()
	}
	c.log.ErrorObj("cron: "+msg, "cron", fields)
}

func pairs(kv []interface{}) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}

package advisory

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Publisher delivers a changed summary downstream.
type Publisher interface {
	Publish(ctx context.Context, region domain.Region, summary domain.Summary) error
}

// Watcher polls a Summarizer for one region and publishes the summary
// whenever its buckets differ from the last published one.
type Watcher struct {
	summarizer Summarizer
	publisher  Publisher
	region     domain.Region
	interval   time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics

	last      domain.Summary
	published bool
}

// NewWatcher creates a Watcher. A nil publisher only updates gauges.
func NewWatcher(s Summarizer, p Publisher, region domain.Region, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Watcher {
	return &Watcher{
		summarizer: s,
		publisher:  p,
		region:     region,
		interval:   interval,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run polls until the context is cancelled. Failures back off exponentially
// and are retried; they never end the loop.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("feed watcher started", "region", w.region, "interval", w.interval)
	w.metrics.WatcherRunning.Set(1)
	defer w.metrics.WatcherRunning.Set(0)

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("feed watcher stopping", "reason", ctx.Err())
			return nil
		default:
		}

		wait := w.interval
		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("feed watcher poll failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = nextBackoff(backoff, maxBackoff)
		} else {
			backoff = initialBackoff
		}

		if !sleepWithContext(ctx, wait) {
			w.logger.Info("feed watcher stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// poll runs one fetch-compare-publish cycle.
func (w *Watcher) poll(ctx context.Context) error {
	summary, err := w.summarizer.Summary(ctx, w.region)
	if err != nil {
		return err
	}

	for bucket, n := range summary.Counts() {
		w.metrics.ActiveAdvisories.WithLabelValues(string(bucket)).Set(float64(n))
	}

	if w.published && summary.SameEntries(w.last) {
		return nil
	}
	if w.publisher == nil {
		w.last, w.published = summary, true
		return nil
	}

	if err := w.publisher.Publish(ctx, w.region, summary); err != nil {
		return err
	}
	w.last, w.published = summary, true
	w.metrics.SummariesPublished.Inc()
	w.logger.Info("advisory summary changed",
		"region", w.region,
		"has_any", summary.HasAny,
		"updated_at", summary.UpdatedAt,
	)
	return nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

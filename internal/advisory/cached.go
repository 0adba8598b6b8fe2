package advisory

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
)

// SummaryCache stores summaries by region code. Implementations handle expiry.
type SummaryCache interface {
	Get(ctx context.Context, key string) (domain.Summary, bool, error)
	Set(ctx context.Context, key string, summary domain.Summary) error
}

// Cached wraps a Summarizer with a SummaryCache. Only successful summaries
// are stored. Cache failures are logged and the underlying Summarizer is used.
type Cached struct {
	next    Summarizer
	cache   SummaryCache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCached creates a caching decorator around next.
func NewCached(next Summarizer, cache SummaryCache, logger *slog.Logger, metrics *observability.Metrics) *Cached {
	return &Cached{
		next:    next,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *Cached) Summary(ctx context.Context, region domain.Region) (domain.Summary, error) {
	key := string(region)

	cached, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.SummaryCache.WithLabelValues("error").Inc()
		c.logger.Warn("summary cache read failed", "region", region, "error", err)
	case ok:
		c.metrics.SummaryCache.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		c.metrics.SummaryCache.WithLabelValues("miss").Inc()
	}

	summary, err := c.next.Summary(ctx, region)
	if err != nil {
		return domain.Summary{}, err
	}

	if err := c.cache.Set(ctx, key, summary); err != nil {
		c.metrics.SummaryCache.WithLabelValues("error").Inc()
		c.logger.Warn("summary cache write failed", "region", region, "error", err)
	}
	return summary, nil
}

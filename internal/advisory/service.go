// Package advisory serves normalized advisory summaries built from the JMA
// warning feed, with an optional cache in front and a background watcher
// that publishes changed summaries.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
)

// ErrUnknownRegion is returned for region codes outside the supported set.
var ErrUnknownRegion = errors.New("unknown region")

// FeedSource fetches the raw warning document for a region.
type FeedSource interface {
	FetchFeed(ctx context.Context, region domain.Region) (domain.Feed, error)
}

// Summarizer produces a normalized summary for a region. Service and Cached
// both implement it.
type Summarizer interface {
	Summary(ctx context.Context, region domain.Region) (domain.Summary, error)
}

// Service fetches and normalizes the feed on every call. It holds no state
// besides the readiness flag.
type Service struct {
	source  FeedSource
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// NewService creates a Service reading from source.
func NewService(source FeedSource, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// Summary fetches the region's feed and normalizes it. Upstream failures are
// returned wrapped; use errors.As with *domain.UpstreamFetchError to inspect them.
func (s *Service) Summary(ctx context.Context, region domain.Region) (domain.Summary, error) {
	if !region.Valid() {
		s.metrics.AlertRequests.WithLabelValues("error").Inc()
		return domain.Summary{}, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}

	feed, err := s.source.FetchFeed(ctx, region)
	if err != nil {
		s.metrics.AlertRequests.WithLabelValues("error").Inc()
		return domain.Summary{}, fmt.Errorf("fetch %s feed: %w", region, err)
	}
	s.ready.Store(true)

	summary := domain.NormalizeFeed(feed)
	s.metrics.AlertRequests.WithLabelValues("success").Inc()
	s.logger.Debug("advisory summary built",
		"region", region,
		"special", len(summary.Buckets.Special),
		"warning", len(summary.Buckets.Warning),
		"advisory", len(summary.Buckets.Advisory),
	)
	return summary, nil
}

// CheckReadiness returns nil once at least one upstream fetch has succeeded.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("advisory feed has not been fetched successfully yet")
	}
	return nil
}

package jma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
)

const userAgent = "zerodelay-service/1.0"

// Client fetches JMA warning documents. It implements advisory.FeedSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a JMA feed client. Every request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchFeed retrieves the warning document for a forecast office. Transport
// failures and non-2xx responses are returned as *domain.UpstreamFetchError.
func (c *Client) FetchFeed(ctx context.Context, region domain.Region) (domain.Feed, error) {
	u := fmt.Sprintf("%s/warning_%s.json", c.baseURL, region)

	start := time.Now()
	feed, err := c.doRequest(ctx, u)
	c.metrics.UpstreamFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamErrors.Inc()
		return domain.Feed{}, err
	}

	if n := len(feed.AreaTypes); n != 2 {
		c.logger.Warn("unexpected number of area groups in feed",
			"region", region,
			"area_groups", n,
		)
	}
	return feed, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Feed{}, &domain.UpstreamFetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Feed{}, &domain.UpstreamFetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("jma feed error: %s", body),
		}
	}

	var feed domain.Feed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		// A deadline hit mid-body is still a fetch failure, not a shape problem.
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return domain.Feed{}, &domain.UpstreamFetchError{StatusCode: resp.StatusCode, Err: err}
		}
		return domain.Feed{}, fmt.Errorf("decode feed: %w", err)
	}
	return feed, nil
}

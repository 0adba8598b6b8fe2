// Command lambda serves GET /api/alert from AWS Lambda behind API Gateway.
// The response body, status and cache headers match the HTTP server's.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/couchcryptid/zerodelay-service/internal/adapter/cache"
	"github.com/couchcryptid/zerodelay-service/internal/adapter/jma"
	"github.com/couchcryptid/zerodelay-service/internal/advisory"
	"github.com/couchcryptid/zerodelay-service/internal/config"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
)

const alertCacheControl = "public, max-age=60, s-maxage=60"

type handler struct {
	alerts        advisory.Summarizer
	defaultRegion domain.Region
	logger        *slog.Logger
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayProxyRequest) (*events.APIGatewayProxyResponse, error) {
	logger := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With("aws_request_id", lc.AwsRequestID)
	}

	region := h.defaultRegion
	if q := req.QueryStringParameters["region"]; q != "" {
		region = domain.Region(q)
	}

	summary, err := h.alerts.Summary(ctx, region)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, advisory.ErrUnknownRegion) {
			status = http.StatusBadRequest
		} else {
			logger.Error("advisory summary failed", "region", region, "error", err)
		}
		return jsonResponse(status, map[string]string{"error": err.Error()}, nil), nil
	}

	return jsonResponse(http.StatusOK, summary, map[string]string{"Cache-Control": alertCacheControl}), nil
}

func jsonResponse(status int, v any, headers map[string]string) *events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encode response"}`)
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return &events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    h,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	svc := advisory.NewService(jma.NewClient(cfg.JMABaseURL, cfg.JMATimeout, metrics, logger), logger, metrics)

	// Warm invocations share the container, so an in-process cache still helps.
	var summaries advisory.SummaryCache = cache.NewMemory(cfg.AlertCacheSize, cfg.AlertCacheTTL, nil)
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL, cfg.AlertCacheTTL)
		if err != nil {
			logger.Error("failed to configure redis cache", "error", err)
			os.Exit(1)
		}
		summaries = rc
	}

	h := &handler{
		alerts:        advisory.NewCached(svc, summaries, logger, metrics),
		defaultRegion: domain.Region(cfg.DefaultRegion),
		logger:        logger,
	}
	lambda.Start(h.handle)
}

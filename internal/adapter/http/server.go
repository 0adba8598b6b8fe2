package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
	"github.com/couchcryptid/zerodelay-service/internal/shelter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AlertService produces advisory summaries. advisory.Service and
// advisory.Cached implement it.
type AlertService interface {
	Summary(ctx context.Context, region domain.Region) (domain.Summary, error)
}

// ShelterService answers shelter queries.
type ShelterService interface {
	List(ctx context.Context) ([]domain.Shelter, error)
	InBounds(ctx context.Context, b domain.Bounds) ([]domain.Shelter, error)
	Nearby(ctx context.Context, origin string, limit int) (shelter.NearbyResult, error)
	Search(ctx context.Context, q string) ([]domain.Shelter, error)
	Fit(ctx context.Context) (domain.Bounds, error)
}

// SettingsService is the typed settings store.
type SettingsService interface {
	Get(ctx context.Context, user string, age int) (domain.Settings, error)
	Set(ctx context.Context, user string, patch domain.SettingsPatch) (domain.Settings, error)
	Subscribe(ctx context.Context, user string) <-chan domain.Settings
}

// Deps are the services behind the API routes.
type Deps struct {
	Alerts        AlertService
	DefaultRegion domain.Region
	Shelters      ShelterService
	Settings      SettingsService
	Ready         sharedobs.ReadinessChecker
}

// Server exposes the API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with the API routes and /healthz, /readyz, /metrics.
func NewServer(addr string, deps Deps, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			ReadTimeout: 10 * time.Second,
			// No WriteTimeout: the settings event stream is long-lived.
			IdleTimeout: 60 * time.Second,
		},
		deps:    deps,
		logger:  logger,
		metrics: metrics,
	}

	s.route(mux, "GET /api/alert", s.handleAlert)

	s.route(mux, "GET /api/shelters", s.handleShelters)
	s.route(mux, "POST /api/shelters/bounds", s.handleSheltersInBounds)
	s.route(mux, "GET /api/shelters/nearby", s.handleSheltersNearby)
	s.route(mux, "GET /api/shelters/fit", s.handleSheltersFit)

	s.route(mux, "GET /api/settings/{user}", s.handleGetSettings)
	s.route(mux, "PUT /api/settings/{user}", s.handlePutSettings)
	s.route(mux, "GET /api/settings/{user}/events", s.handleSettingsEvents)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer.Handler = requestID(mux)
	return s
}

// route registers h under pattern with logging and duration metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// Package shelter answers the map and list screens' shelter queries over a
// pluggable catalog store.
package shelter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
	"golang.org/x/text/unicode/norm"
)

// MaxNearby caps the number of shelters a nearby query returns.
const MaxNearby = 100

var (
	// ErrInvalidBounds is returned when a viewport rectangle fails validation.
	ErrInvalidBounds = errors.New("invalid bounds")
	// ErrNoShelters is returned by Fit when the catalog is empty.
	ErrNoShelters = errors.New("no shelters in catalog")
)

// Store returns the whole shelter catalog.
type Store interface {
	All(ctx context.Context) ([]domain.Shelter, error)
}

// NearbyResult is the distance-ordered answer to a nearby query.
type NearbyResult struct {
	Origin   domain.Position          `json:"origin"`
	Fallback bool                     `json:"fallback"`
	Shelters []domain.ShelterDistance `json:"shelters"`
}

// Service runs shelter queries against a Store.
type Service struct {
	store    Store
	fallback domain.Position
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService creates a Service. fallback is the origin used when a nearby
// query carries none.
func NewService(store Store, fallback domain.Position, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:    store,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
	}
}

// List returns every shelter in catalog order.
func (s *Service) List(ctx context.Context) ([]domain.Shelter, error) {
	s.metrics.ShelterQueries.WithLabelValues("list").Inc()
	return s.all(ctx)
}

// InBounds returns the shelters inside b, edges included.
func (s *Service) InBounds(ctx context.Context, b domain.Bounds) ([]domain.Shelter, error) {
	s.metrics.ShelterQueries.WithLabelValues("bounds").Inc()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBounds, err)
	}

	shelters, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Shelter, 0, len(shelters))
	for _, sh := range shelters {
		if b.Contains(sh.Position()) {
			out = append(out, sh)
		}
	}
	return out, nil
}

// Nearby orders shelters by great-circle distance from origin ("lat,lng" or a
// geohash). An empty or unparsable origin falls back to the configured one.
// limit <= 0 means all shelters, and results never exceed MaxNearby.
func (s *Service) Nearby(ctx context.Context, origin string, limit int) (NearbyResult, error) {
	s.metrics.ShelterQueries.WithLabelValues("nearby").Inc()

	res := NearbyResult{}
	pos, err := domain.ParseOrigin(origin)
	if err != nil {
		if origin != "" {
			s.logger.Debug("unusable origin, using fallback", "origin", origin, "error", err)
		}
		pos = s.fallback
		res.Fallback = true
	}
	res.Origin = pos

	shelters, err := s.all(ctx)
	if err != nil {
		return NearbyResult{}, err
	}

	ranked := make([]domain.ShelterDistance, len(shelters))
	for i, sh := range shelters {
		ranked[i] = domain.ShelterDistance{Shelter: sh, DistanceKm: domain.DistanceKm(pos, sh.Position())}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})

	if limit <= 0 || limit > MaxNearby {
		limit = MaxNearby
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	res.Shelters = ranked
	return res, nil
}

// Search matches q against name, kana and address, ignoring case and
// full-width/half-width differences. An empty query lists everything.
func (s *Service) Search(ctx context.Context, q string) ([]domain.Shelter, error) {
	s.metrics.ShelterQueries.WithLabelValues("search").Inc()

	shelters, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	needle := fold(q)
	if needle == "" {
		return shelters, nil
	}

	out := make([]domain.Shelter, 0)
	for _, sh := range shelters {
		if strings.Contains(fold(sh.Name), needle) ||
			strings.Contains(fold(sh.NameKana), needle) ||
			strings.Contains(fold(sh.Address), needle) {
			out = append(out, sh)
		}
	}
	return out, nil
}

// Fit returns the smallest rectangle covering every shelter.
func (s *Service) Fit(ctx context.Context) (domain.Bounds, error) {
	s.metrics.ShelterQueries.WithLabelValues("fit").Inc()

	shelters, err := s.all(ctx)
	if err != nil {
		return domain.Bounds{}, err
	}
	positions := make([]domain.Position, len(shelters))
	for i, sh := range shelters {
		positions[i] = sh.Position()
	}
	b, ok := domain.FitBounds(positions)
	if !ok {
		return domain.Bounds{}, ErrNoShelters
	}
	return b, nil
}

func (s *Service) all(ctx context.Context) ([]domain.Shelter, error) {
	shelters, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load shelters: %w", err)
	}
	out := make([]domain.Shelter, len(shelters))
	for i, sh := range shelters {
		out[i] = sh.WithGeohash()
	}
	return out, nil
}

func fold(s string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(s)))
}

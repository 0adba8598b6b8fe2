// Package postgres reads the shelter catalog from the "place" table.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const selectPlaces = `SELECT id, name, name_kana, address, lat, lon, url, tel FROM place ORDER BY id`

// placeRow mirrors the place table. Coordinates are stored as text.
type placeRow struct {
	ID       int64   `db:"id"`
	Name     *string `db:"name"`
	NameKana *string `db:"name_kana"`
	Address  *string `db:"address"`
	Lat      *string `db:"lat"`
	Lon      *string `db:"lon"`
	URL      *string `db:"url"`
	Tel      *string `db:"tel"`
}

// PlaceStore implements shelter.Store over Postgres.
type PlaceStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Connect opens and pings the database at dsn.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*PlaceStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PlaceStore{db: db, logger: logger}, nil
}

// All returns every place whose coordinates parse. Other rows are skipped.
func (s *PlaceStore) All(ctx context.Context) ([]domain.Shelter, error) {
	var rows []placeRow
	if err := s.db.SelectContext(ctx, &rows, selectPlaces); err != nil {
		return nil, fmt.Errorf("select places: %w", err)
	}

	shelters := make([]domain.Shelter, 0, len(rows))
	for _, r := range rows {
		sh, ok := r.toShelter()
		if !ok {
			s.logger.Debug("skipping place with unusable coordinates", "id", r.ID)
			continue
		}
		shelters = append(shelters, sh)
	}
	return shelters, nil
}

// CheckReadiness pings the database.
func (s *PlaceStore) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PlaceStore) Close() error {
	return s.db.Close()
}

func (r placeRow) toShelter() (domain.Shelter, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(deref(r.Lat)), 64)
	if err != nil {
		return domain.Shelter{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(deref(r.Lon)), 64)
	if err != nil {
		return domain.Shelter{}, false
	}
	sh := domain.Shelter{
		ID:       strconv.FormatInt(r.ID, 10),
		Name:     deref(r.Name),
		NameKana: deref(r.NameKana),
		Address:  deref(r.Address),
		Lat:      lat,
		Lng:      lng,
		URL:      deref(r.URL),
		Tel:      deref(r.Tel),
	}
	if !sh.Position().Valid() {
		return domain.Shelter{}, false
	}
	return sh, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

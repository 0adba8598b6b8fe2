package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/mmcloughlin/geohash"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0088

const (
	geohashPrecision = 7
	geohashAlphabet  = "0123456789bcdefghjkmnpqrstuvwxyz"
)

// ErrInvalidPosition is returned for coordinates or origins that cannot be used.
var ErrInvalidPosition = errors.New("invalid position")

// Position is a WGS-84 latitude/longitude pair in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the position lies within latitude/longitude ranges.
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Position) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lng)
}

// Shelter is an evacuation site shown on the map and in the shelter list.
type Shelter struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	NameKana string  `json:"name_kana,omitempty" yaml:"name_kana"`
	Address  string  `json:"address" yaml:"address"`
	Lat      float64 `json:"lat" yaml:"lat"`
	Lng      float64 `json:"lng" yaml:"lng"`
	URL      string  `json:"url,omitempty" yaml:"url"`
	Tel      string  `json:"tel,omitempty" yaml:"tel"`
	Geohash  string  `json:"geohash,omitempty" yaml:"-"`
}

// Position returns the shelter's coordinates.
func (s Shelter) Position() Position {
	return Position{Lat: s.Lat, Lng: s.Lng}
}

// WithGeohash fills the derived geohash field.
func (s Shelter) WithGeohash() Shelter {
	s.Geohash = geohash.EncodeWithPrecision(s.Lat, s.Lng, geohashPrecision)
	return s
}

// ShelterDistance pairs a shelter with its distance from a query origin.
type ShelterDistance struct {
	Shelter    Shelter `json:"shelter"`
	DistanceKm float64 `json:"distanceKm"`
}

// Bounds is a map viewport rectangle in degrees.
type Bounds struct {
	NorthLat float64 `json:"north_lat"`
	SouthLat float64 `json:"south_lat"`
	EastLon  float64 `json:"east_lon"`
	WestLon  float64 `json:"west_lon"`
}

// Validate checks ranges and ordering. Viewports crossing the antimeridian are not supported.
func (b Bounds) Validate() error {
	if !(Position{Lat: b.NorthLat, Lng: b.EastLon}).Valid() || !(Position{Lat: b.SouthLat, Lng: b.WestLon}).Valid() {
		return errors.New("bounds out of range")
	}
	if b.SouthLat > b.NorthLat {
		return fmt.Errorf("south_lat %.6f is north of north_lat %.6f", b.SouthLat, b.NorthLat)
	}
	if b.WestLon > b.EastLon {
		return fmt.Errorf("west_lon %.6f is east of east_lon %.6f", b.WestLon, b.EastLon)
	}
	return nil
}

// Contains reports whether p lies inside the rectangle, edges included.
func (b Bounds) Contains(p Position) bool {
	return p.Lat >= b.SouthLat && p.Lat <= b.NorthLat &&
		p.Lng >= b.WestLon && p.Lng <= b.EastLon
}

// DistanceKm returns the great-circle distance between two positions.
func DistanceKm(a, b Position) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusKm
}

// FitBounds returns the smallest rectangle covering all positions.
// ok is false when positions is empty.
func FitBounds(positions []Position) (Bounds, bool) {
	if len(positions) == 0 {
		return Bounds{}, false
	}
	rect := s2.RectFromLatLng(positions[0].latLng())
	for _, p := range positions[1:] {
		rect = rect.AddPoint(p.latLng())
	}
	lo, hi := rect.Lo(), rect.Hi()
	return Bounds{
		NorthLat: hi.Lat.Degrees(),
		SouthLat: lo.Lat.Degrees(),
		EastLon:  hi.Lng.Degrees(),
		WestLon:  lo.Lng.Degrees(),
	}, true
}

// ParseOrigin reads an origin given as "lat,lng" or as a geohash.
func ParseOrigin(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Position{}, ErrInvalidPosition
	}

	if lat, lng, ok := strings.Cut(s, ","); ok {
		la, errLat := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		ln, errLng := strconv.ParseFloat(strings.TrimSpace(lng), 64)
		if errLat != nil || errLng != nil {
			return Position{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidPosition, s)
		}
		p := Position{Lat: la, Lng: ln}
		if !p.Valid() {
			return Position{}, fmt.Errorf("%w: %q out of range", ErrInvalidPosition, s)
		}
		return p, nil
	}

	hash := strings.ToLower(s)
	if len(hash) > 12 || strings.Trim(hash, geohashAlphabet) != "" {
		return Position{}, fmt.Errorf("%w: %q is not a geohash", ErrInvalidPosition, s)
	}
	lat, lng := geohash.Decode(hash)
	return Position{Lat: lat, Lng: lng}, nil
}

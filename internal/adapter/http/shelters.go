package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/shelter"
)

const maxBodyBytes = 1 << 16

func (s *Server) handleShelters(w http.ResponseWriter, r *http.Request) {
	var (
		shelters []domain.Shelter
		err      error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		shelters, err = s.deps.Shelters.Search(r.Context(), q)
	} else {
		shelters, err = s.deps.Shelters.List(r.Context())
	}
	if err != nil {
		s.shelterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shelters)
}

func (s *Server) handleSheltersInBounds(w http.ResponseWriter, r *http.Request) {
	var b domain.Bounds
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid bounds body: "+err.Error())
		return
	}

	shelters, err := s.deps.Shelters.InBounds(r.Context(), b)
	if err != nil {
		s.shelterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shelters)
}

func (s *Server) handleSheltersNearby(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	res, err := s.deps.Shelters.Nearby(r.Context(), r.URL.Query().Get("origin"), limit)
	if err != nil {
		s.shelterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSheltersFit(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Shelters.Fit(r.Context())
	if err != nil {
		s.shelterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) shelterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shelter.ErrInvalidBounds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shelter.ErrNoShelters):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("shelter query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

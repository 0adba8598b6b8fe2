package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/zerodelay-service/internal/advisory"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
)

// alertCacheControl lets browsers and shared caches reuse a summary for a minute.
const alertCacheControl = "public, max-age=60, s-maxage=60"

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	region := s.deps.DefaultRegion
	if q := r.URL.Query().Get("region"); q != "" {
		region = domain.Region(q)
	}

	summary, err := s.deps.Alerts.Summary(r.Context(), region)
	if err != nil {
		if errors.Is(err, advisory.ErrUnknownRegion) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("advisory summary failed", "region", region, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Cache-Control", alertCacheControl)
	writeJSON(w, http.StatusOK, summary)
}

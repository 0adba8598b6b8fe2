package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/settings"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	age := 0
	if v := r.URL.Query().Get("age"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "age must be a non-negative integer")
			return
		}
		age = n
	}

	st, err := s.deps.Settings.Get(r.Context(), r.PathValue("user"), age)
	if err != nil {
		s.settingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings body: "+err.Error())
		return
	}

	st, err := s.deps.Settings.Set(r.Context(), r.PathValue("user"), patch)
	if err != nil {
		s.settingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleSettingsEvents streams the user's settings as server-sent events: the
// current value first, then one event per update.
func (s *Server) handleSettingsEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	user := r.PathValue("user")

	// Subscribe before reading so no update between the two is lost.
	updates := s.deps.Settings.Subscribe(r.Context(), user)
	current, err := s.deps.Settings.Get(r.Context(), user, 0)
	if err != nil {
		s.settingsError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, current); err != nil {
		return
	}
	flusher.Flush()

	for st := range updates {
		if err := writeEvent(w, st); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, st domain.Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: settings\ndata: %s\n\n", data)
	return err
}

func (s *Server) settingsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settings.ErrInvalidValue), errors.Is(err, settings.ErrInvalidUser):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("settings request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

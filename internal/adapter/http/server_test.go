package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/zerodelay-service/internal/adapter/catalog"
	httpadapter "github.com/couchcryptid/zerodelay-service/internal/adapter/http"
	"github.com/couchcryptid/zerodelay-service/internal/adapter/jma"
	"github.com/couchcryptid/zerodelay-service/internal/adapter/sqlite"
	"github.com/couchcryptid/zerodelay-service/internal/advisory"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
	"github.com/couchcryptid/zerodelay-service/internal/settings"
	"github.com/couchcryptid/zerodelay-service/internal/shelter"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type env struct {
	server   *httpadapter.Server
	settings *settings.Service
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newEnv wires real services against a fake JMA upstream, the embedded
// shelter catalog and an in-memory settings database.
func newEnv(t *testing.T, upstream http.HandlerFunc, readyErr error) *env {
	t.Helper()

	jmaSrv := httptest.NewServer(upstream)
	t.Cleanup(jmaSrv.Close)

	metrics := observability.NewMetricsForTesting()
	logger := discardLogger()

	alerts := advisory.NewService(jma.NewClient(jmaSrv.URL, 2*time.Second, metrics, logger), logger, metrics)

	shelters, err := catalog.Default()
	require.NoError(t, err)
	shelterSvc := shelter.NewService(shelters, domain.Position{Lat: 36.5781, Lng: 136.6478}, logger, metrics)

	repo, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	settingsSvc := settings.NewService(repo, logger, metrics)

	srv := httpadapter.NewServer(":0", httpadapter.Deps{
		Alerts:        alerts,
		DefaultRegion: domain.RegionIshikawa,
		Shelters:      shelterSvc,
		Settings:      settingsSvc,
		Ready:         &mockReadiness{err: readyErr},
	}, logger, metrics)

	return &env{server: srv, settings: settingsSvc}
}

func feedHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (e *env) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

// --- ops ---

func TestHealthzReturns200(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)
	rec := e.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)
	rec := e.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), fmt.Errorf("not ready yet"))
	rec := e.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)
	rec := e.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestIDHeader(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)

	rec := e.do(t, http.MethodGet, "/healthz", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/api/shelters", nil)
	req.Header.Set("X-Request-ID", "0b5c3f8e-3c55-4c1e-9a43-1f5a0c7e2d10")
	rec = httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	assert.Equal(t, "0b5c3f8e-3c55-4c1e-9a43-1f5a0c7e2d10", rec.Header().Get("X-Request-ID"))
}

// --- /api/alert ---

func TestAlert_SingleWarning(t *testing.T) {
	var gotPath string
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		feedHandler(`{
			"reportDatetime": "2024-07-01T10:00:00+09:00",
			"areaTypes": [
				{"areas": [{"code": "170010", "name": "加賀", "warnings": [{"code": "03", "name": "大雨警報", "status": "発表"}]}]},
				{"areas": []}
			]
		}`)(w, r)
	}, nil)

	rec := e.do(t, http.MethodGet, "/api/alert", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/warning_170000.json", gotPath)
	assert.Equal(t, "public, max-age=60, s-maxage=60", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got domain.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	want := domain.Summary{
		UpdatedAt: "2024-07-01T10:00:00+09:00",
		Buckets: domain.Buckets{
			Special:  []string{},
			Warning:  []string{"大雨警報（加賀）"},
			Advisory: []string{},
		},
		HasAny: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestAlert_EmptyBucketsAreArrays(t *testing.T) {
	e := newEnv(t, feedHandler(`{"reportDatetime":"2024-07-01T10:00:00+09:00"}`), nil)

	rec := e.do(t, http.MethodGet, "/api/alert", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"updatedAt": "2024-07-01T10:00:00+09:00",
		"buckets": {"special": [], "warning": [], "advisory": []},
		"hasAny": false
	}`, rec.Body.String())
}

func TestAlert_RegionParameter(t *testing.T) {
	var gotPath string
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		feedHandler(`{}`)(w, r)
	}, nil)

	rec := e.do(t, http.MethodGet, "/api/alert?region=160000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/warning_160000.json", gotPath)

	rec = e.do(t, http.MethodGet, "/api/alert?region=999999", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlert_UpstreamFailureReturns500(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, nil)

	rec := e.do(t, http.MethodGet, "/api/alert", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Cache-Control"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	msg, ok := body["error"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, msg)
}

func TestAlert_MalformedUpstreamReturns500(t *testing.T) {
	e := newEnv(t, feedHandler(`<html>maintenance</html>`), nil)

	rec := e.do(t, http.MethodGet, "/api/alert", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

// --- /api/shelters ---

func decodeShelters(t *testing.T, rec *httptest.ResponseRecorder) []domain.Shelter {
	t.Helper()
	var out []domain.Shelter
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestShelters_List(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)

	rec := e.do(t, http.MethodGet, "/api/shelters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	shelters := decodeShelters(t, rec)
	assert.Len(t, shelters, 5)
	assert.NotEmpty(t, shelters[0].Geohash)
}

func TestShelters_Search(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)

	rec := e.do(t, http.MethodGet, "/api/shelters?q=%E6%96%87%E5%8C%96", "") // 文化
	require.Equal(t, http.StatusOK, rec.Code)
	shelters := decodeShelters(t, rec)
	require.Len(t, shelters, 1)
	assert.Equal(t, "shelter-2", shelters[0].ID)
}

func TestShelters_InBounds(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)

	rec := e.do(t, http.MethodPost, "/api/shelters/bounds",
		`{"north_lat": 36.57, "south_lat": 36.56, "east_lon": 136.66, "west_lon": 136.64}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeShelters(t, rec), 3)

	rec = e.do(t, http.MethodPost, "/api/shelters/bounds",
		`{"north_lat": 36.0, "south_lat": 37.0, "east_lon": 137.0, "west_lon": 136.0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/shelters/bounds", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShelters_Nearby(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)

	rec := e.do(t, http.MethodGet, "/api/shelters/nearby?origin=36.5423,136.6695&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res shelter.NearbyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Fallback)
	require.Len(t, res.Shelters, 1)
	assert.Equal(t, "shelter-5", res.Shelters[0].Shelter.ID)

	rec = e.do(t, http.MethodGet, "/api/shelters/nearby", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Fallback)
	assert.Len(t, res.Shelters, 5)

	rec = e.do(t, http.MethodGet, "/api/shelters/nearby?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShelters_Fit(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)

	rec := e.do(t, http.MethodGet, "/api/shelters/fit", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var b domain.Bounds
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.InDelta(t, 36.5746, b.NorthLat, 1e-9)
	assert.InDelta(t, 136.6405, b.WestLon, 1e-9)
}

// --- /api/settings ---

func TestSettings_GetDefaults(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)

	rec := e.do(t, http.MethodGet, "/api/settings/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"region": "170000",
		"fontSize": "medium",
		"mapLayers": {"避難所": true},
		"useCurrentLocation": false
	}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/settings/u1?age=70", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fontSize":"large"`)

	rec = e.do(t, http.MethodGet, "/api/settings/u1?age=old", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings_PutThenGet(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)

	rec := e.do(t, http.MethodPut, "/api/settings/u1", `{"region": "180000", "mapLayers": {"避難所": false}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/settings/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.RegionFukui, got.Region)
	assert.False(t, got.LayerVisible(domain.LayerShelters))
}

func TestSettings_PutInvalid(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)

	rec := e.do(t, http.MethodPut, "/api/settings/u1", `{"fontSize": "huge"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/settings/u1", `{"theme": "dark"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings_EventStream(t *testing.T) {
	e := newEnv(t, feedHandler(`{}`), nil)
	ts := httptest.NewServer(e.server)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/settings/u1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan domain.Settings, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				var st domain.Settings
				if json.Unmarshal([]byte(data), &st) == nil {
					events <- st
				}
			}
		}
	}()

	first := <-events
	assert.Equal(t, domain.FontSizeMedium, first.FontSize)

	large := domain.FontSizeLarge
	_, err = e.settings.Set(context.Background(), "u1", domain.SettingsPatch{FontSize: &large})
	require.NoError(t, err)

	select {
	case st := <-events:
		assert.Equal(t, domain.FontSizeLarge, st.FontSize)
	case <-ctx.Done():
		t.Fatal("no update event received")
	}
}

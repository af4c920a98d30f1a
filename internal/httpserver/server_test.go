package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/sps30-replicator/internal/config"
	appmetrics "github.com/tamzrod/sps30-replicator/internal/metrics"
	"github.com/tamzrod/sps30-replicator/internal/poller"
	"github.com/tamzrod/sps30-replicator/internal/publish"
	"github.com/tamzrod/sps30-replicator/internal/sps30"
	"github.com/tamzrod/sps30-replicator/internal/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(board *Board) *Server {
	reg := appmetrics.NewRegistry()
	return New(config.HTTPConfig{Listen: ":0"}, appmetrics.Handler(reg), board)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthzMetrics(t *testing.T) {
	srv := newTestServer(NewBoard("lab"))

	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/metrics").Code)
}

func TestReadyz_WaitsForEveryUnit(t *testing.T) {
	board := NewBoard("a", "b")
	srv := newTestServer(board)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/readyz").Code)

	board.UpdateHealth(publish.NewHealth("a", status.Snapshot{Health: status.HealthOK}))
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/readyz").Code)

	board.UpdateHealth(publish.NewHealth("b", status.Snapshot{Health: status.HealthOK}))
	assert.Equal(t, http.StatusOK, get(t, srv, "/readyz").Code)

	// ready is sticky once reached
	board.UpdateHealth(publish.NewHealth("b", status.Snapshot{Health: status.HealthError}))
	assert.Equal(t, http.StatusOK, get(t, srv, "/readyz").Code)
}

func TestUnitsAPI(t *testing.T) {
	board := NewBoard("lab", "attic")
	board.SetIdentity("lab", poller.Identity{
		ProductType: "00080000",
		Serial:      "ABC",
		Firmware:    sps30.FirmwareVersion{Major: 2, Minor: 2},
	})
	board.UpdateReading(publish.NewReading(poller.PollResult{
		UnitID:      "lab",
		At:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Measurement: sps30.Measurement{MassPM25: 2.5},
	}))
	srv := newTestServer(board)

	rr := get(t, srv, "/api/units")
	require.Equal(t, http.StatusOK, rr.Code)

	var all []UnitView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, "attic", all[0].Unit)
	assert.Nil(t, all[0].Reading)
	assert.Equal(t, "unknown", all[0].Health.Health)

	rr = get(t, srv, "/api/units/lab")
	require.Equal(t, http.StatusOK, rr.Code)

	var one UnitView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &one))
	require.NotNil(t, one.Reading)
	assert.Equal(t, float32(2.5), one.Reading.MassPM25)
	require.NotNil(t, one.Identity)
	assert.Equal(t, "2.2", one.Identity.Firmware)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/units/nope").Code)
}

func TestBoard_IgnoresUnknownUnits(t *testing.T) {
	board := NewBoard("lab")
	board.UpdateReading(publish.Reading{Unit: "ghost"})
	board.UpdateHealth(publish.Health{Unit: "ghost", HealthCode: status.HealthOK})

	_, ok := board.Unit("ghost")
	assert.False(t, ok)
	assert.False(t, board.Ready())
}

type fakeCache struct {
	fields map[string]map[string]string
	err    error
	asked  []string
}

func (f *fakeCache) Latest(_ context.Context, unit string) (map[string]string, error) {
	f.asked = append(f.asked, unit)
	return f.fields[unit], f.err
}

func TestUnitAPI_FallsBackToCache(t *testing.T) {
	board := NewBoard("lab", "attic", "cellar")
	board.UpdateReading(publish.NewReading(poller.PollResult{UnitID: "lab", At: time.Now()}))

	fc := &fakeCache{fields: map[string]map[string]string{
		"attic": {"unit": "attic", "mass_pm2_5": "7.5"},
		"lab":   {"unit": "lab", "mass_pm2_5": "1"},
	}}
	srv := New(config.HTTPConfig{Listen: ":0"}, nil, board, WithCache(fc))

	var v UnitView
	rr := get(t, srv, "/api/units/attic")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Nil(t, v.Reading)
	assert.Equal(t, "7.5", v.Cached["mass_pm2_5"])

	// a fresh reading wins over the cache
	v = UnitView{}
	rr = get(t, srv, "/api/units/lab")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.NotNil(t, v.Reading)
	assert.Nil(t, v.Cached)

	v = UnitView{}
	rr = get(t, srv, "/api/units/cellar")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Nil(t, v.Cached)

	assert.Equal(t, []string{"attic", "cellar"}, fc.asked)
}

func TestUnitAPI_CacheError(t *testing.T) {
	board := NewBoard("lab")
	srv := New(config.HTTPConfig{Listen: ":0"}, nil, board, WithCache(&fakeCache{err: errors.New("redis down")}))

	assert.Equal(t, http.StatusBadGateway, get(t, srv, "/api/units/lab").Code)
}

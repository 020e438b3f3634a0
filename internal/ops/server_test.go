package ops

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketforge/portengine/internal/metrics"
	"github.com/marketforge/portengine/internal/risk"
)

func newTestServer(status StatusFunc) *Server {
	return NewServer("127.0.0.1:0", metrics.New(), status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRisk(t *testing.T) {
	s := newTestServer(func() Status {
		return Status{
			RunID:  "r1",
			Equity: 987654,
			Report: risk.Report{Level: risk.LevelNormal, PositionRatio: 0.8},
		}
	})
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/risk", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "r1", st.RunID)
	assert.Equal(t, risk.LevelNormal, st.Report.Level)
	assert.NotEmpty(t, st.Uptime)
}

func TestRisk_NoStatusSource(t *testing.T) {
	s := newTestServer(nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/risk", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.CyclesTotal.Inc()
	s := NewServer("127.0.0.1:0", m, nil)

	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portengine_cycles_total 1")
}

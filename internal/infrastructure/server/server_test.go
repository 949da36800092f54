package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/config"
)

// fakePeer stands in for every peer: it knows one job and accepts anything
// else with 202.
func fakePeer(t *testing.T, events *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/j1":
			_, _ = w.Write([]byte(`{"id":"j1","company_id":"co-1","title":"Engineer","status":"open","skills":["go"]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		case r.URL.Path == "/events":
			events.Add(1)
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusAccepted)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(peerURL string) *config.Config {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.RateLimit.Enabled = false
	cfg.Resilience.RetryBaseDelay = time.Millisecond
	cfg.Cache.SweepInterval = 0
	cfg.Peers = config.PeersConfig{
		JobStoreURL:     peerURL,
		CompanyURL:      peerURL,
		SearchURL:       peerURL,
		UserURL:         peerURL,
		AnalyticsURL:    peerURL,
		NotificationURL: peerURL,
	}
	return cfg
}

func TestServerServesJobs(t *testing.T) {
	var events atomic.Int32
	peerSrv := fakePeer(t, &events)

	srv, err := NewServer(testConfig(peerSrv.URL))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/jobs/j1", nil)
	req.Header.Set("x-request-id", "req-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"title":"Engineer"`)
	assert.Equal(t, "req-123", w.Header().Get("x-request-id"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Close(ctx))
	assert.Equal(t, int32(1), events.Load(), "job view event is sent before shutdown completes")
}

func TestServerDiagnostics(t *testing.T) {
	var events atomic.Int32
	srv, err := NewServer(testConfig(fakePeer(t, &events).URL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close(context.Background()) })

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/j1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "jobservice_http_requests_total"), "prometheus exposition")
	assert.True(t, strings.Contains(body, "jobservice_peer_calls_total"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/breakers", nil))
	assert.Contains(t, w.Body.String(), config.PeerJobStore)
}

func TestNewServerRejectsBadTopology(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Peers.TopologyFile = "/nonexistent/topology.yaml"

	_, err := NewServer(cfg)
	assert.Error(t, err)
}

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdalgunes/fidan-focusd/internal/session"
)

func newStateTestServer(t *testing.T) (*httptest.Server, *session.Registry) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	manager := NewConnectionManager(DefaultConnectionConfig())
	registry := session.NewRegistry(session.DefaultConfig(), clock, manager)
	t.Cleanup(registry.Stop)

	router := mux.NewRouter()
	NewStateHandler(registry, manager).RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, registry
}

func TestRoomSummaryEndpoint(t *testing.T) {
	server, registry := newStateTestServer(t)

	s, err := registry.Create("c1", "Ada", 0)
	require.NoError(t, err)
	_, err = registry.Join(s.RoomCode, "c2", "Grace")
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/api/rooms/" + s.RoomCode)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary session.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, s.RoomCode, summary.RoomCode)
	assert.Equal(t, 2, summary.ParticipantCount)
	assert.Equal(t, 4, summary.Capacity)
	assert.Equal(t, "waiting", summary.Status)
	assert.Equal(t, int64(25*60*1000), summary.TimeLeftMs)
}

func TestRoomSummaryNotFound(t *testing.T) {
	server, _ := newStateTestServer(t)

	resp, err := http.Get(server.URL + "/api/rooms/ZZZZZZ")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoomSummaryRejectsBadCode(t *testing.T) {
	server, _ := newStateTestServer(t)

	resp, err := http.Get(server.URL + "/api/rooms/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	server, registry := newStateTestServer(t)

	_, err := registry.Create("c1", "Ada", 0)
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"activeSessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.ActiveSessions)
}

func TestConnectionStatsEndpoint(t *testing.T) {
	server, _ := newStateTestServer(t)

	resp, err := http.Get(server.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 0, stats.TotalConnections)
}

package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdalgunes/fidan-focusd/internal/event"
	"github.com/erdalgunes/fidan-focusd/internal/session"
)

// dialTestServer spins up the full gateway behind httptest and dials one
// websocket client.
func dialTestServer(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// wsWaitFor reads frames until an event of the given kind arrives.
func wsWaitFor(t *testing.T, conn *websocket.Conn, kind event.Kind) *event.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", kind)
		var evt event.Event
		require.NoError(t, json.Unmarshal(data, &evt))
		if evt.Kind == kind {
			return &evt
		}
	}
}

func TestWebSocketEndToEnd(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := NewConnectionManager(DefaultConnectionConfig())
	registry := session.NewRegistry(session.DefaultConfig(), clock, manager)
	service := NewService(registry, manager, clock)
	t.Cleanup(registry.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go service.Start(ctx)

	router := mux.NewRouter()
	service.RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ada := dialTestServer(t, server)
	grace := dialTestServer(t, server)

	// Create over the wire.
	wsSend(t, ada, ClientMessage{Kind: KindCreateSession, DisplayName: "Ada", DurationMs: 2000})
	created := wsWaitFor(t, ada, event.KindSessionCreated)

	var createdPayload event.SessionCreatedPayload
	require.NoError(t, json.Unmarshal(created.Data, &createdPayload))
	require.Len(t, createdPayload.RoomCode, 6)

	// Join and observe the roster broadcast on both channels.
	wsSend(t, grace, ClientMessage{Kind: KindJoinSession, RoomCode: createdPayload.RoomCode, DisplayName: "Grace"})
	wsWaitFor(t, grace, event.KindSessionJoined)
	wsWaitFor(t, ada, event.KindParticipantJoined)
	wsWaitFor(t, grace, event.KindParticipantJoined)

	wsSend(t, ada, ClientMessage{Kind: KindStartSession})
	wsWaitFor(t, ada, event.KindSessionStarted)
	wsWaitFor(t, grace, event.KindSessionStarted)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	clock.Advance(time.Second)
	update := wsWaitFor(t, grace, event.KindTimeUpdate)
	var tick event.TimeUpdatePayload
	require.NoError(t, json.Unmarshal(update.Data, &tick))
	assert.Equal(t, int64(1000), tick.TimeLeftMs)
	wsWaitFor(t, ada, event.KindTimeUpdate)

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(time.Second)
	wsWaitFor(t, ada, event.KindSessionCompleted)
	wsWaitFor(t, grace, event.KindSessionCompleted)
}

func TestWebSocketDisconnectIsImplicitLeave(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := NewConnectionManager(DefaultConnectionConfig())
	registry := session.NewRegistry(session.DefaultConfig(), clock, manager)
	service := NewService(registry, manager, clock)
	t.Cleanup(registry.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go service.Start(ctx)

	router := mux.NewRouter()
	service.RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ada := dialTestServer(t, server)
	grace := dialTestServer(t, server)

	wsSend(t, ada, ClientMessage{Kind: KindCreateSession, DisplayName: "Ada"})
	created := wsWaitFor(t, ada, event.KindSessionCreated)
	var payload event.SessionCreatedPayload
	require.NoError(t, json.Unmarshal(created.Data, &payload))

	wsSend(t, grace, ClientMessage{Kind: KindJoinSession, RoomCode: payload.RoomCode, DisplayName: "Grace"})
	wsWaitFor(t, grace, event.KindSessionJoined)

	// Ada's channel dies without a leave message.
	ada.Close()

	wsWaitFor(t, grace, event.KindParticipantLeft)
	evt := wsWaitFor(t, grace, event.KindCreatorChanged)

	var creator event.CreatorChangedPayload
	require.NoError(t, json.Unmarshal(evt.Data, &creator))
	assert.NotEmpty(t, creator.ParticipantID)
}

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/erdalgunes/fidan-focusd/internal/event"
)

// MessageHandler receives decoded traffic from the connection pumps. The
// coordinator implements it.
type MessageHandler interface {
	HandleMessage(c *Connection, data []byte)
	HandleDisconnect(c *Connection)
}

// ConnectionManager owns every websocket channel and the fan-out loop.
// Sessions never touch a channel directly; they refer to connections by id.
type ConnectionManager struct {
	mu           sync.RWMutex
	conns        map[string]*Connection
	sessionConns map[uuid.UUID]map[*Connection]bool

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler

	broadcastCh  chan BroadcastMessage
	unregisterCh chan *Connection
}

// Connection represents one websocket channel to a client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	// bindMu guards the session binding.
	bindMu    sync.Mutex
	sessionID uuid.UUID
	bound     bool
}

// ConnectionConfig holds the websocket transport tunables.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage targets every connection bound to a session, optionally
// excluding one (a sender that already knows the outcome).
type BroadcastMessage struct {
	SessionID  uuid.UUID
	Event      *event.Event
	ExceptConn string
}

// DefaultConnectionConfig returns the default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a connection manager. SetHandler must be
// called before the first upgrade.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		conns:        make(map[string]*Connection),
		sessionConns: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:       config,
		broadcastCh:  make(chan BroadcastMessage, 1000),
		unregisterCh: make(chan *Connection, 256),
	}
}

// SetHandler installs the message handler. The coordinator and the manager
// reference each other, so the handler arrives after construction.
func (cm *ConnectionManager) SetHandler(h MessageHandler) {
	cm.handler = h
}

// Start runs the fan-out loop until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		case c := <-cm.unregisterCh:
			// Send queues are closed here, in the same goroutine that
			// writes to them, so fan-out never hits a closed channel.
			close(c.Send)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket channel and
// starts its pumps. The connection is unbound until the client creates or
// joins a session.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return err
	}

	now := time.Now()
	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: now,
	}

	cm.mu.Lock()
	cm.conns[connection.ID] = connection
	cm.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("conn_id", connection.ID).
		Str("remote", r.RemoteAddr).
		Msg("websocket connection established")
	return nil
}

// Bind attaches a connection to a session so broadcasts reach it.
func (cm *ConnectionManager) Bind(c *Connection, sessionID uuid.UUID) {
	c.bindMu.Lock()
	c.sessionID = sessionID
	c.bound = true
	c.bindMu.Unlock()

	cm.mu.Lock()
	if cm.sessionConns[sessionID] == nil {
		cm.sessionConns[sessionID] = make(map[*Connection]bool)
	}
	cm.sessionConns[sessionID][c] = true
	cm.mu.Unlock()

	log.Debug().
		Str("conn_id", c.ID).
		Str("session_id", sessionID.String()).
		Msg("connection bound to session")
}

// Unbind detaches a connection from its session, if any, and returns the
// session id it was bound to.
func (cm *ConnectionManager) Unbind(c *Connection) (uuid.UUID, bool) {
	c.bindMu.Lock()
	sessionID, wasBound := c.sessionID, c.bound
	c.sessionID = uuid.UUID{}
	c.bound = false
	c.bindMu.Unlock()

	if !wasBound {
		return uuid.UUID{}, false
	}

	cm.mu.Lock()
	if set, ok := cm.sessionConns[sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(cm.sessionConns, sessionID)
		}
	}
	cm.mu.Unlock()
	return sessionID, true
}

// Session returns the session a connection is currently bound to.
func (c *Connection) Session() (uuid.UUID, bool) {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	return c.sessionID, c.bound
}

// Broadcast enqueues an event for every connection bound to the session.
// Delivery is best-effort; a full queue drops the message.
func (cm *ConnectionManager) Broadcast(sessionID uuid.UUID, evt *event.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{SessionID: sessionID, Event: evt}:
	default:
		log.Warn().Str("session_id", sessionID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastExcept enqueues an event for every connection bound to the
// session except one.
func (cm *ConnectionManager) BroadcastExcept(sessionID uuid.UUID, exceptConnID string, evt *event.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{SessionID: sessionID, Event: evt, ExceptConn: exceptConnID}:
	default:
		log.Warn().Str("session_id", sessionID.String()).Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast fans one event out to its session's connections.
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	set, exists := cm.sessionConns[message.SessionID]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(set))
	for conn := range set {
		if message.ExceptConn != "" && conn.ID == message.ExceptConn {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			// Slow or dead consumer; drop the channel rather than block.
			log.Warn().
				Str("conn_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("kind", string(message.Event.Kind)).
		Str("session_id", message.SessionID.String()).
		Int("connections", len(targets)).
		Msg("event broadcast")
}

// SendTo writes an event directly to one connection, bypassing the fan-out
// queue. Used for request replies.
func (cm *ConnectionManager) SendTo(c *Connection, evt *event.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal reply event")
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn().Str("conn_id", c.ID).Msg("send buffer full, dropping reply")
	}
}

// Stats describes the live connection population.
type Stats struct {
	TotalConnections int `json:"totalConnections"`
	BoundSessions    int `json:"boundSessions"`
}

// GetStats returns statistics about active connections.
func (cm *ConnectionManager) GetStats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return Stats{
		TotalConnections: len(cm.conns),
		BoundSessions:    len(cm.sessionConns),
	}
}

// dropConnection finalizes a closed channel: removes it from the indices and
// tells the coordinator so the owning session sees a leave.
func (cm *ConnectionManager) dropConnection(c *Connection) {
	cm.mu.Lock()
	_, known := cm.conns[c.ID]
	if known {
		delete(cm.conns, c.ID)
	}
	cm.mu.Unlock()

	if !known {
		// Already dropped by the other pump.
		return
	}

	if cm.handler != nil {
		cm.handler.HandleDisconnect(c)
	}

	select {
	case cm.unregisterCh <- c:
	default:
		// Fan-out loop is gone (shutdown); close directly.
		close(c.Send)
	}

	log.Info().Str("conn_id", c.ID).Msg("connection closed")
}

// writePump drains the send queue onto the wire and keeps the channel alive
// with pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("conn_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client messages until the channel dies, then runs the
// disconnect path.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.dropConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().
					Err(err).
					Str("conn_id", c.ID).
					Msg("unexpected websocket close")
			}
			break
		}
		if c.Manager.handler != nil {
			c.Manager.handler.HandleMessage(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

package gateway

import (
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/erdalgunes/fidan-focusd/internal/event"
	"github.com/erdalgunes/fidan-focusd/internal/session"
)

// Message kinds accepted from clients.
const (
	KindCreateSession = "create_session"
	KindJoinSession   = "join_session"
	KindStartSession  = "start_session"
	KindUpdateStatus  = "update_status"
	KindLeaveSession  = "leave_session"
)

// ClientMessage is the envelope for every client-to-server message. Fields
// beyond Kind are populated per kind.
type ClientMessage struct {
	Kind        string `json:"kind"`
	DisplayName string `json:"displayName,omitempty"`
	DurationMs  int64  `json:"durationMs,omitempty"`
	RoomCode    string `json:"roomCode,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Coordinator routes client messages to the session registry and writes the
// replies. It implements MessageHandler.
type Coordinator struct {
	registry *session.Registry
	manager  *ConnectionManager
	clock    clockwork.Clock
}

// NewCoordinator wires the registry and the connection manager together and
// installs itself as the manager's message handler.
func NewCoordinator(registry *session.Registry, manager *ConnectionManager, clock clockwork.Clock) *Coordinator {
	c := &Coordinator{
		registry: registry,
		manager:  manager,
		clock:    clock,
	}
	manager.SetHandler(c)
	return c
}

// HandleMessage decodes and dispatches one client message. Malformed or
// rejected requests get a structured error reply; they never terminate the
// channel.
func (co *Coordinator) HandleMessage(c *Connection, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug().Err(err).Str("conn_id", c.ID).Msg("malformed client message")
		co.replyError(c, event.KindError, "malformed_message")
		return
	}

	switch msg.Kind {
	case KindCreateSession:
		co.handleCreate(c, msg)
	case KindJoinSession:
		co.handleJoin(c, msg)
	case KindStartSession:
		co.handleStart(c)
	case KindUpdateStatus:
		co.handleUpdateStatus(c, msg)
	case KindLeaveSession:
		co.handleLeave(c)
	default:
		log.Debug().Str("conn_id", c.ID).Str("kind", msg.Kind).Msg("unknown message kind")
		co.replyError(c, event.KindError, "unknown_kind")
	}
}

// HandleDisconnect treats a dead channel as an implicit leave.
func (co *Coordinator) HandleDisconnect(c *Connection) {
	sessionID, wasBound := co.manager.Unbind(c)
	if !wasBound {
		return
	}
	co.registry.Leave(sessionID, c.ID)
}

func (co *Coordinator) handleCreate(c *Connection, msg ClientMessage) {
	if _, bound := c.Session(); bound {
		co.replyError(c, event.KindError, "already_in_session")
		return
	}

	s, err := co.registry.Create(c.ID, msg.DisplayName, time.Duration(msg.DurationMs)*time.Millisecond)
	if err != nil {
		log.Error().Err(err).Str("conn_id", c.ID).Msg("failed to create session")
		co.replyError(c, event.KindError, "internal")
		return
	}
	co.manager.Bind(c, s.ID)

	co.reply(c, s.ID.String(), event.KindSessionCreated, event.SessionCreatedPayload{
		SessionID: s.ID.String(),
		RoomCode:  s.RoomCode,
		Session:   s.Snapshot(co.clock.Now()),
	})
}

func (co *Coordinator) handleJoin(c *Connection, msg ClientMessage) {
	if _, bound := c.Session(); bound {
		co.replyError(c, event.KindJoinError, "already_in_session")
		return
	}

	// Bind before joining so the joiner sees its own participant_joined;
	// the registry revalidates under the session lock. A rejected joiner
	// stays subscribed until the Unbind below and may see one stray room
	// broadcast from that window; clients discard events for sessions
	// they never joined.
	target, ok := co.registry.GetByCode(msg.RoomCode)
	if !ok {
		co.replyError(c, event.KindJoinError, session.Reason(session.ErrNotFound))
		return
	}
	co.manager.Bind(c, target.ID)

	s, err := co.registry.Join(msg.RoomCode, c.ID, msg.DisplayName)
	if err != nil {
		co.manager.Unbind(c)
		co.replyError(c, event.KindJoinError, session.Reason(err))
		return
	}

	co.reply(c, s.ID.String(), event.KindSessionJoined, event.SessionJoinedPayload{
		SessionID: s.ID.String(),
		RoomCode:  s.RoomCode,
		Session:   s.Snapshot(co.clock.Now()),
	})
}

func (co *Coordinator) handleStart(c *Connection) {
	sessionID, bound := c.Session()
	if !bound {
		co.replyError(c, event.KindError, session.Reason(session.ErrNotFound))
		return
	}
	if err := co.registry.Start(sessionID, c.ID); err != nil {
		co.replyError(c, event.KindError, session.Reason(err))
	}
}

func (co *Coordinator) handleUpdateStatus(c *Connection, msg ClientMessage) {
	sessionID, bound := c.Session()
	if !bound {
		co.replyError(c, event.KindError, session.Reason(session.ErrNotFound))
		return
	}
	status, err := session.ParseParticipantStatus(msg.Status)
	if err != nil {
		co.replyError(c, event.KindError, "invalid_status")
		return
	}
	if err := co.registry.UpdateStatus(sessionID, c.ID, status); err != nil {
		co.replyError(c, event.KindError, session.Reason(err))
	}
}

func (co *Coordinator) handleLeave(c *Connection) {
	sessionID, wasBound := co.manager.Unbind(c)
	if !wasBound {
		return
	}
	co.registry.Leave(sessionID, c.ID)
}

func (co *Coordinator) reply(c *Connection, sessionID string, kind event.Kind, payload any) {
	evt, err := event.New(sessionID, kind, co.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("failed to build reply")
		return
	}
	co.manager.SendTo(c, evt)
}

func (co *Coordinator) replyError(c *Connection, kind event.Kind, reason string) {
	evt, err := event.New("", kind, co.clock.Now(), event.ErrorPayload{Reason: reason})
	if err != nil {
		log.Error().Err(err).Msg("failed to build error reply")
		return
	}
	co.manager.SendTo(c, evt)
}

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/erdalgunes/fidan-focusd/internal/event"
	"github.com/erdalgunes/fidan-focusd/internal/roomcode"
)

// maxCodeAttempts bounds the collision-retry loop in Create. With a 32^6
// code space it is never reached in practice.
const maxCodeAttempts = 100

// Notifier fans an event out to the connections bound to a session. The
// gateway implements it; delivery is best-effort and never blocks the caller.
type Notifier interface {
	Broadcast(sessionID uuid.UUID, evt *event.Event)
	BroadcastExcept(sessionID uuid.UUID, exceptConnID string, evt *event.Event)
}

// Config holds the session-layer tunables.
type Config struct {
	MaxParticipants int
	DefaultDuration time.Duration
	GracePeriod     time.Duration
	TickInterval    time.Duration
}

// DefaultConfig returns the session-layer defaults.
func DefaultConfig() Config {
	return Config{
		MaxParticipants: 4,
		DefaultDuration: 25 * time.Minute,
		GracePeriod:     5 * time.Minute,
		TickInterval:    time.Second,
	}
}

// Registry is the authoritative in-memory table of active sessions. It is
// the only cross-session shared structure; its mutex guards the two indices
// and is never held across a broadcast.
type Registry struct {
	cfg    Config
	clock  clockwork.Clock
	notify Notifier

	mu     sync.RWMutex
	byID   map[uuid.UUID]*Session
	byCode map[string]*Session

	wg sync.WaitGroup
}

// NewRegistry creates an empty registry. The notifier may be nil in tests
// that only exercise bookkeeping.
func NewRegistry(cfg Config, clock clockwork.Clock, notify Notifier) *Registry {
	return &Registry{
		cfg:    cfg,
		clock:  clock,
		notify: notify,
		byID:   make(map[uuid.UUID]*Session),
		byCode: make(map[string]*Session),
	}
}

// Create allocates a new waiting session with the requester as sole
// participant and creator. A non-positive duration falls back to the default.
func (r *Registry) Create(connID, displayName string, duration time.Duration) (*Session, error) {
	if duration <= 0 {
		duration = r.cfg.DefaultDuration
	}
	now := r.clock.Now()

	s := &Session{
		ID:       uuid.New(),
		status:   StatusWaiting,
		duration: duration,
		participants: []*Participant{{
			ConnID:      connID,
			DisplayName: displayName,
			Status:      ParticipantReady,
			JoinedAt:    now,
		}},
		creatorConnID:  connID,
		createdAt:      now,
		lastActivityAt: now,
		done:           make(chan struct{}),
	}

	r.mu.Lock()
	code, err := r.uniqueCodeLocked()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	s.RoomCode = code
	r.byID[s.ID] = s
	r.byCode[code] = s
	r.mu.Unlock()

	log.Info().
		Str("session_id", s.ID.String()).
		Str("room_code", code).
		Str("conn_id", connID).
		Dur("duration", duration).
		Msg("session created")
	return s, nil
}

// uniqueCodeLocked draws codes until one is free among active sessions.
// Codes are free for reuse as soon as a session is evicted.
func (r *Registry) uniqueCodeLocked() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := roomcode.Generate()
		if _, taken := r.byCode[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("room code space exhausted after %d attempts", maxCodeAttempts)
}

// Join appends a participant to a waiting session looked up by room code.
func (r *Registry) Join(code, connID, displayName string) (*Session, error) {
	s, ok := r.GetByCode(code)
	if !ok {
		return nil, ErrNotFound
	}

	now := r.clock.Now()

	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if s.status != StatusWaiting {
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	if len(s.participants) >= r.cfg.MaxParticipants {
		s.mu.Unlock()
		return nil, ErrFull
	}
	p := &Participant{
		ConnID:      connID,
		DisplayName: displayName,
		Status:      ParticipantReady,
		JoinedAt:    now,
	}
	s.participants = append(s.participants, p)
	s.lastActivityAt = now
	count := len(s.participants)
	r.emitLocked(s, event.KindParticipantJoined, event.ParticipantJoinedPayload{
		Participant: event.ParticipantSnapshot{
			ParticipantID: p.ConnID,
			DisplayName:   p.DisplayName,
			Status:        string(p.Status),
			JoinedAt:      p.JoinedAt,
		},
		Count: count,
	}, "")
	s.mu.Unlock()

	log.Info().
		Str("session_id", s.ID.String()).
		Str("room_code", code).
		Str("conn_id", connID).
		Int("participants", count).
		Msg("participant joined")
	return s, nil
}

// Start performs the waiting to active transition. Only the designated
// creator may trigger it, and only while the session is still waiting.
func (r *Registry) Start(sessionID uuid.UUID, connID string) error {
	s, ok := r.GetByID(sessionID)
	if !ok {
		return ErrNotFound
	}

	now := r.clock.Now()

	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return ErrNotFound
	}
	if s.status != StatusWaiting {
		s.mu.Unlock()
		return ErrInvalidState
	}
	if s.creatorConnID != connID {
		s.mu.Unlock()
		return ErrUnauthorized
	}
	s.status = StatusActive
	s.startedAt = now
	s.lastActivityAt = now
	for _, p := range s.participants {
		p.Status = ParticipantFocusing
	}
	r.emitLocked(s, event.KindSessionStarted, event.SessionStartedPayload{
		StartedAt:  now,
		DurationMs: s.duration.Milliseconds(),
	}, "")
	s.mu.Unlock()

	r.wg.Add(1)
	go r.runCountdown(s)

	log.Info().
		Str("session_id", s.ID.String()).
		Str("room_code", s.RoomCode).
		Msg("session started")
	return nil
}

// GetByCode is a read-only lookup by room code.
func (r *Registry) GetByCode(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byCode[code]
	return s, ok
}

// GetByID is a read-only lookup by session id.
func (r *Registry) GetByID(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// SummaryByCode serves the room lookup endpoint.
func (r *Registry) SummaryByCode(code string) (Summary, bool) {
	s, ok := r.GetByCode(code)
	if !ok {
		return Summary{}, false
	}
	now := r.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		RoomCode:         s.RoomCode,
		Status:           string(s.status),
		ParticipantCount: len(s.participants),
		Capacity:         r.cfg.MaxParticipants,
		TimeLeftMs:       s.timeLeftLocked(now).Milliseconds(),
		CreatedAt:        s.createdAt,
	}, true
}

// Count returns the number of active sessions, for the health endpoint.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Remove deletes a session from both indices and stops its countdown.
// It is idempotent; removing an unknown id is a no-op.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	s, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byID, id)
	delete(r.byCode, s.RoomCode)
	r.mu.Unlock()

	s.mu.Lock()
	s.removed = true
	s.mu.Unlock()
	close(s.done)

	log.Info().
		Str("session_id", id.String()).
		Str("room_code", s.RoomCode).
		Msg("session removed")
}

// Stop removes every session and waits for the countdown goroutines and
// grace timers to drain. Called once, at shutdown.
func (r *Registry) Stop() {
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Remove(id)
	}
	r.wg.Wait()
}

// emitLocked enqueues a broadcast while the session lock is held, so events
// reach the gateway's fan-out queue in mutation order. The enqueue itself
// never blocks.
func (r *Registry) emitLocked(s *Session, kind event.Kind, payload any, exceptConnID string) {
	if r.notify == nil {
		return
	}
	evt, err := event.New(s.ID.String(), kind, r.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("failed to build event")
		return
	}
	if exceptConnID != "" {
		r.notify.BroadcastExcept(s.ID, exceptConnID, evt)
		return
	}
	r.notify.Broadcast(s.ID, evt)
}

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erdalgunes/fidan-focusd/internal/event"
)

// Status is the lifecycle state of a session. Transitions only move forward:
// waiting -> active -> completed.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ParticipantStatus is the self-reported state of one participant.
type ParticipantStatus string

const (
	ParticipantReady     ParticipantStatus = "ready"
	ParticipantFocusing  ParticipantStatus = "focusing"
	ParticipantPaused    ParticipantStatus = "paused"
	ParticipantCompleted ParticipantStatus = "completed"
	ParticipantFailed    ParticipantStatus = "failed"
)

// ParseParticipantStatus validates a status string from the wire.
func ParseParticipantStatus(s string) (ParticipantStatus, error) {
	switch ParticipantStatus(s) {
	case ParticipantReady, ParticipantFocusing, ParticipantPaused, ParticipantCompleted, ParticipantFailed:
		return ParticipantStatus(s), nil
	}
	return "", fmt.Errorf("unknown participant status %q", s)
}

// Participant is one connected client bound to a session. The gateway owns
// the underlying channel; the session only holds the opaque connection id.
type Participant struct {
	ConnID      string
	DisplayName string
	Status      ParticipantStatus
	JoinedAt    time.Time
}

// Session is one shared focus-timer room. All mutable fields are guarded by
// mu; every mutation to a given session is serialized through it, so
// operations on different sessions never block each other.
type Session struct {
	ID       uuid.UUID
	RoomCode string

	mu             sync.Mutex
	status         Status
	duration       time.Duration
	participants   []*Participant
	creatorConnID  string
	startedAt      time.Time
	createdAt      time.Time
	lastActivityAt time.Time
	removed        bool

	// done is closed exactly once, when the registry removes the session.
	// The countdown goroutine and the grace timer select on it.
	done chan struct{}
}

// timeLeftLocked derives the remaining time from the wall-clock delta since
// startedAt. It is recomputed on every read so delayed ticks self-correct
// instead of accumulating drift. Callers must hold mu.
func (s *Session) timeLeftLocked(now time.Time) time.Duration {
	if s.status == StatusWaiting {
		return s.duration
	}
	left := s.duration - now.Sub(s.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// participantLocked finds a participant by connection id. Callers must hold mu.
func (s *Session) participantLocked(connID string) *Participant {
	for _, p := range s.participants {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// snapshotLocked builds the wire form of the session. Callers must hold mu.
func (s *Session) snapshotLocked(now time.Time) event.SessionSnapshot {
	parts := make([]event.ParticipantSnapshot, 0, len(s.participants))
	for _, p := range s.participants {
		parts = append(parts, event.ParticipantSnapshot{
			ParticipantID: p.ConnID,
			DisplayName:   p.DisplayName,
			Status:        string(p.Status),
			JoinedAt:      p.JoinedAt,
		})
	}
	return event.SessionSnapshot{
		SessionID:    s.ID.String(),
		RoomCode:     s.RoomCode,
		Status:       string(s.status),
		CreatorID:    s.creatorConnID,
		DurationMs:   s.duration.Milliseconds(),
		TimeLeftMs:   s.timeLeftLocked(now).Milliseconds(),
		Participants: parts,
		CreatedAt:    s.createdAt,
	}
}

// Snapshot returns the wire form of the session.
func (s *Session) Snapshot(now time.Time) event.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(now)
}

// CurrentStatus returns the lifecycle state.
func (s *Session) CurrentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Summary is the read-only view served by the room lookup endpoint.
type Summary struct {
	RoomCode         string    `json:"roomCode"`
	Status           string    `json:"status"`
	ParticipantCount int       `json:"participantCount"`
	Capacity         int       `json:"capacity"`
	TimeLeftMs       int64     `json:"timeLeftMs"`
	CreatedAt        time.Time `json:"createdAt"`
}

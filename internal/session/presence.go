package session

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/erdalgunes/fidan-focusd/internal/event"
)

// UpdateStatus records a participant's self-reported status and tells the
// other participants. Statuses set while the session is still waiting are
// accepted but have no timer effect until the session starts.
func (r *Registry) UpdateStatus(sessionID uuid.UUID, connID string, status ParticipantStatus) error {
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
	p := s.participantLocked(connID)
	if p == nil {
		s.mu.Unlock()
		return ErrNotFound
	}
	p.Status = status
	s.lastActivityAt = now
	// The sender already knows its own status.
	r.emitLocked(s, event.KindParticipantStatusUpdated, event.ParticipantStatusUpdatedPayload{
		ParticipantID: p.ConnID,
		DisplayName:   p.DisplayName,
		Status:        string(status),
	}, connID)
	s.mu.Unlock()

	log.Debug().
		Str("session_id", sessionID.String()).
		Str("conn_id", connID).
		Str("status", string(status)).
		Msg("participant status updated")
	return nil
}

// Leave removes a participant from a session. A sudden disconnect and an
// explicit leave_session take the same path. Leaving never changes the
// session's lifecycle state; if the creator leaves, the earliest-joined
// remaining participant is promoted, and if nobody remains the session is
// deleted immediately regardless of state.
func (r *Registry) Leave(sessionID uuid.UUID, connID string) {
	s, ok := r.GetByID(sessionID)
	if !ok {
		return
	}

	now := r.clock.Now()

	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return
	}
	idx := -1
	for i, p := range s.participants {
		if p.ConnID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	left := s.participants[idx]
	s.participants = append(s.participants[:idx], s.participants[idx+1:]...)
	s.lastActivityAt = now

	if len(s.participants) == 0 {
		// Mark the session dead before dropping the lock so a Join that
		// already resolved the code cannot slip in between the unlock and
		// Remove and succeed against a session about to be deleted.
		s.removed = true
		s.mu.Unlock()
		r.Remove(sessionID)
		return
	}

	r.emitLocked(s, event.KindParticipantLeft, event.ParticipantLeftPayload{
		ParticipantID: left.ConnID,
		DisplayName:   left.DisplayName,
		Count:         len(s.participants),
	}, "")

	if s.creatorConnID == connID {
		// participants keep join order, so the head is the earliest joiner
		next := s.participants[0]
		s.creatorConnID = next.ConnID
		r.emitLocked(s, event.KindCreatorChanged, event.CreatorChangedPayload{
			ParticipantID: next.ConnID,
			DisplayName:   next.DisplayName,
		}, "")
		log.Info().
			Str("session_id", sessionID.String()).
			Str("conn_id", next.ConnID).
			Msg("creator reassigned")
	}
	s.mu.Unlock()

	log.Info().
		Str("session_id", sessionID.String()).
		Str("conn_id", connID).
		Msg("participant left")
}

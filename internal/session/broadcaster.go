package session

import (
	"github.com/rs/zerolog/log"

	"github.com/erdalgunes/fidan-focusd/internal/event"
)

// runCountdown is the per-session countdown loop, started on the waiting to
// active transition. One goroutine per active session; it exits when the
// countdown completes or the session is removed by any other path.
func (r *Registry) runCountdown(s *Session) {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.Chan():
			if r.tick(s) {
				return
			}
		}
	}
}

// tick recomputes the remaining time from the wall-clock delta and emits one
// time_update, or completes the session if the countdown hit zero. The
// return value reports whether ticking should stop. A tick against a removed
// session is a no-op.
func (r *Registry) tick(s *Session) bool {
	now := r.clock.Now()

	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return true
	}
	if s.status != StatusActive {
		s.mu.Unlock()
		return true
	}

	left := s.timeLeftLocked(now)
	elapsed := now.Sub(s.startedAt)
	if elapsed > s.duration {
		elapsed = s.duration
	}

	if left > 0 {
		r.emitLocked(s, event.KindTimeUpdate, event.TimeUpdatePayload{
			TimeLeftMs: left.Milliseconds(),
			ElapsedMs:  elapsed.Milliseconds(),
		}, "")
		s.mu.Unlock()
		return false
	}

	// Countdown reached zero: the one and only active -> completed
	// transition. Paused and failed participants keep their status.
	s.status = StatusCompleted
	s.lastActivityAt = now
	for _, p := range s.participants {
		if p.Status == ParticipantFocusing {
			p.Status = ParticipantCompleted
		}
	}
	r.emitLocked(s, event.KindSessionCompleted, event.SessionCompletedPayload{
		CompletedAt: now,
	}, "")
	s.mu.Unlock()

	log.Info().
		Str("session_id", s.ID.String()).
		Str("room_code", s.RoomCode).
		Msg("session completed")

	// Keep the completed session around for late result reads, then evict.
	r.wg.Add(1)
	go r.removeAfterGrace(s)
	return true
}

// removeAfterGrace deletes a completed session once the grace period passes,
// unless something else removed it first.
func (r *Registry) removeAfterGrace(s *Session) {
	defer r.wg.Done()

	timer := r.clock.NewTimer(r.cfg.GracePeriod)
	defer timer.Stop()

	select {
	case <-s.done:
	case <-timer.Chan():
		r.Remove(s.ID)
	}
}

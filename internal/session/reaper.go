package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ReaperConfig holds the sweep tunables.
type ReaperConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// DefaultReaperConfig returns the reaper defaults.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Interval:  30 * time.Minute,
		Retention: 2 * time.Hour,
	}
}

// Reaper periodically evicts sessions with no recent activity. It is the
// backstop against channels that died without a clean disconnect signal, so
// it removes stale sessions regardless of participant count.
type Reaper struct {
	registry *Registry
	clock    clockwork.Clock
	cfg      ReaperConfig
}

// NewReaper creates a reaper over the given registry.
func NewReaper(registry *Registry, clock clockwork.Clock, cfg ReaperConfig) *Reaper {
	return &Reaper{registry: registry, clock: clock, cfg: cfg}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (rp *Reaper) Run(ctx context.Context) {
	log.Info().
		Dur("interval", rp.cfg.Interval).
		Dur("retention", rp.cfg.Retention).
		Msg("session reaper started")

	ticker := rp.clock.NewTicker(rp.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session reaper stopped")
			return
		case <-ticker.Chan():
			if n := rp.Sweep(); n > 0 {
				log.Info().Int("reaped", n).Msg("stale sessions evicted")
			}
		}
	}
}

// Sweep removes every session whose last activity is older than the
// retention window and returns how many were evicted.
func (rp *Reaper) Sweep() int {
	cutoff := rp.clock.Now().Add(-rp.cfg.Retention)

	rp.registry.mu.RLock()
	stale := make([]uuid.UUID, 0)
	for id, s := range rp.registry.byID {
		s.mu.Lock()
		if s.lastActivityAt.Before(cutoff) {
			stale = append(stale, id)
		}
		s.mu.Unlock()
	}
	rp.registry.mu.RUnlock()

	for _, id := range stale {
		log.Warn().Str("session_id", id.String()).Msg("reaping stale session")
		rp.registry.Remove(id)
	}
	return len(stale)
}

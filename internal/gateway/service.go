package gateway

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/erdalgunes/fidan-focusd/internal/session"
)

// Service bundles the connection manager, the coordinator and the query
// handlers into one gateway.
type Service struct {
	manager      *ConnectionManager
	coordinator  *Coordinator
	stateHandler *StateHandler
	registry     *session.Registry
}

// NewService creates the gateway over an already-constructed registry. The
// registry's notifier must be the same connection manager.
func NewService(registry *session.Registry, manager *ConnectionManager, clock clockwork.Clock) *Service {
	return &Service{
		manager:      manager,
		coordinator:  NewCoordinator(registry, manager, clock),
		stateHandler: NewStateHandler(registry, manager),
		registry:     registry,
	}
}

// Start runs the fan-out loop until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.manager.Start(ctx)
}

// HandleWebSocket upgrades an HTTP request to a focus-session channel.
func (s *Service) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.UpgradeConnection(w, r); err != nil {
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

// RegisterRoutes registers the websocket and query routes.
func (s *Service) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", s.HandleWebSocket)
	s.stateHandler.RegisterRoutes(router)
	log.Info().Msg("gateway routes registered")
}

package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/erdalgunes/fidan-focusd/internal/roomcode"
	"github.com/erdalgunes/fidan-focusd/internal/session"
)

// StateHandler serves the read-only query surface: room summaries, process
// health and connection stats.
type StateHandler struct {
	registry *session.Registry
	manager  *ConnectionManager
}

// NewStateHandler creates a state handler.
func NewStateHandler(registry *session.Registry, manager *ConnectionManager) *StateHandler {
	return &StateHandler{registry: registry, manager: manager}
}

// HandleRoomSummary handles GET /api/rooms/{code}.
func (h *StateHandler) HandleRoomSummary(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])
	if !roomcode.Valid(code) {
		http.Error(w, "invalid room code", http.StatusBadRequest)
		return
	}

	summary, ok := h.registry.SummaryByCode(code)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	writeJSON(w, summary)
}

// healthResponse is the liveness reply.
type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"activeSessions"`
}

// HandleHealth handles GET /healthz.
func (h *StateHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:         "ok",
		ActiveSessions: h.registry.Count(),
	})
}

// HandleConnectionStats handles GET /ws/stats.
func (h *StateHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.manager.GetStats())
}

// RegisterRoutes registers the query routes.
func (h *StateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/rooms/{code}", h.HandleRoomSummary).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ws/stats", h.HandleConnectionStats).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for every server-to-client message. Payloads live in
// Data so the gateway can fan out marshaled bytes without knowing each kind.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Kind      Kind            `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Kind identifies an event on the wire.
type Kind string

const (
	KindSessionCreated           Kind = "session_created"
	KindSessionJoined            Kind = "session_joined"
	KindJoinError                Kind = "join_error"
	KindError                    Kind = "error"
	KindParticipantJoined        Kind = "participant_joined"
	KindParticipantLeft          Kind = "participant_left"
	KindCreatorChanged           Kind = "creator_changed"
	KindSessionStarted           Kind = "session_started"
	KindTimeUpdate               Kind = "time_update"
	KindSessionCompleted         Kind = "session_completed"
	KindParticipantStatusUpdated Kind = "participant_status_updated"
)

// New builds an event envelope around a marshaled payload.
func New(sessionID string, kind Kind, now time.Time, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Kind:      kind,
		Timestamp: now,
		Data:      data,
	}, nil
}

package event

import "time"

// Payload types shared between the session and gateway packages.

// ParticipantSnapshot is the wire form of one participant.
type ParticipantSnapshot struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	Status        string    `json:"status"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// SessionSnapshot is the wire form of a whole session, embedded in the
// create/join replies so a late joiner sees the current roster.
type SessionSnapshot struct {
	SessionID    string                `json:"sessionId"`
	RoomCode     string                `json:"roomCode"`
	Status       string                `json:"status"`
	CreatorID    string                `json:"creatorId"`
	DurationMs   int64                 `json:"durationMs"`
	TimeLeftMs   int64                 `json:"timeLeftMs"`
	Participants []ParticipantSnapshot `json:"participants"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// SessionCreatedPayload is the reply to create_session.
type SessionCreatedPayload struct {
	SessionID string          `json:"sessionId"`
	RoomCode  string          `json:"roomCode"`
	Session   SessionSnapshot `json:"session"`
}

// SessionJoinedPayload is the reply to a successful join_session.
type SessionJoinedPayload struct {
	SessionID string          `json:"sessionId"`
	RoomCode  string          `json:"roomCode"`
	Session   SessionSnapshot `json:"session"`
}

// ErrorPayload is the reply to any request the session layer rejected.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

// ParticipantJoinedPayload announces a new participant to the room.
type ParticipantJoinedPayload struct {
	Participant ParticipantSnapshot `json:"participant"`
	Count       int                 `json:"count"`
}

// ParticipantLeftPayload announces a departure.
type ParticipantLeftPayload struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Count         int    `json:"count"`
}

// CreatorChangedPayload announces creator promotion after the previous
// creator left.
type CreatorChangedPayload struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// SessionStartedPayload announces the Waiting to Active transition.
type SessionStartedPayload struct {
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
}

// TimeUpdatePayload is one countdown tick.
type TimeUpdatePayload struct {
	TimeLeftMs int64 `json:"timeLeftMs"`
	ElapsedMs  int64 `json:"elapsed"`
}

// SessionCompletedPayload announces the countdown reaching zero.
type SessionCompletedPayload struct {
	CompletedAt time.Time `json:"completedAt"`
}

// ParticipantStatusUpdatedPayload announces a status change to the other
// participants.
type ParticipantStatusUpdatedPayload struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Status        string `json:"status"`
}

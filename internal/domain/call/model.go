// Package call coordinates audio/video call sessions between linked patients
// and caregivers, and relays WebRTC signaling frames between their
// connections.
package call

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session statuses. Idle is the absence of an open row and is never stored.
const (
	StatusRinging  = "ringing"
	StatusInCall   = "in_call"
	StatusEnded    = "ended"
	StatusRejected = "rejected"
)

// Call types.
const (
	TypeAudio = "audio"
	TypeVideo = "video"
)

var validTypes = map[string]bool{
	TypeAudio: true,
	TypeVideo: true,
}

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("call session not found")
	// ErrPatientBusy is returned when the patient already has an open session.
	ErrPatientBusy = errors.New("patient is already in a call")
	// ErrInvalidTransition is returned when a session is not in a status the
	// requested transition starts from.
	ErrInvalidTransition = errors.New("invalid call state transition")
	// ErrNotParticipant is returned when a user acts on a session they are
	// not part of.
	ErrNotParticipant = errors.New("user is not a participant of this call")
)

// CallSession is one call attempt between two linked users.
type CallSession struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	CallerID        uuid.UUID       `db:"caller_id" json:"caller_id"`
	CalleeID        uuid.UUID       `db:"callee_id" json:"callee_id"`
	Type            string          `db:"type" json:"type"`
	Status          string          `db:"status" json:"status"`
	OfferPayload    json.RawMessage `db:"offer_payload" json:"offer_payload,omitempty"`
	AnswerPayload   json.RawMessage `db:"answer_payload" json:"answer_payload,omitempty"`
	StartedAt       *time.Time      `db:"started_at" json:"started_at,omitempty"`
	AnsweredAt      *time.Time      `db:"answered_at" json:"answered_at,omitempty"`
	EndedAt         *time.Time      `db:"ended_at" json:"ended_at,omitempty"`
	DurationSeconds int             `db:"duration_seconds" json:"duration_seconds"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// Open reports whether the session still occupies the patient.
func (s *CallSession) Open() bool {
	return s.Status == StatusRinging || s.Status == StatusInCall
}

// Participant reports whether the user is the caller or callee.
func (s *CallSession) Participant(userID uuid.UUID) bool {
	return s.CallerID == userID || s.CalleeID == userID
}

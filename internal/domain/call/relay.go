package call

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/ws"
)

// Signaling frame types relayed between call participants.
const (
	FrameOffer        = "offer"
	FrameAnswer       = "answer"
	FrameICECandidate = "ice_candidate"
	FrameError        = "error"
)

var relayedFrames = map[string]bool{
	FrameOffer:        true,
	FrameAnswer:       true,
	FrameICECandidate: true,
}

// SignalFrame is the wire format for signaling messages. Payload is opaque
// and forwarded verbatim.
type SignalFrame struct {
	Type         string          `json:"type"`
	TargetUserID uuid.UUID       `json:"target_user_id"`
	FromUserID   uuid.UUID       `json:"from_user_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// SessionChecker reports whether two users share an open call session.
type SessionChecker interface {
	HasOpenSessionBetween(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// Relay forwards signaling frames between the connections of call
// participants. Nothing is persisted; delivery is at-most-once and a target
// without connections drops the frame silently.
type Relay struct {
	hub      *ws.Hub
	sessions SessionChecker
	logger   zerolog.Logger
}

func NewRelay(hub *ws.Hub, sessions SessionChecker, logger zerolog.Logger) *Relay {
	return &Relay{hub: hub, sessions: sessions, logger: logger}
}

// HandleMessage processes one inbound frame from a connected client. Frames
// between users without an open session are dropped and answered with an
// error frame; unknown frame types are ignored.
func (r *Relay) HandleMessage(client *ws.Client, data []byte) {
	var frame SignalFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		r.logger.Debug().Err(err).Str("user_id", client.UserID.String()).
			Msg("dropping malformed signaling frame")
		return
	}
	if !relayedFrames[frame.Type] {
		return
	}
	if frame.TargetUserID == uuid.Nil {
		r.sendError(client, "target_user_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	open, err := r.sessions.HasOpenSessionBetween(ctx, client.UserID, frame.TargetUserID)
	if err != nil {
		r.logger.Error().Err(err).Msg("session check failed, dropping frame")
		r.sendError(client, "signaling temporarily unavailable")
		return
	}
	if !open {
		r.logger.Warn().
			Str("from", client.UserID.String()).
			Str("target", frame.TargetUserID.String()).
			Str("type", frame.Type).
			Msg("dropping signaling frame without an open call session")
		r.sendError(client, "no open call session with target user")
		return
	}

	out := SignalFrame{
		Type:         frame.Type,
		TargetUserID: frame.TargetUserID,
		FromUserID:   client.UserID,
		Payload:      frame.Payload,
	}
	r.hub.SendJSON(frame.TargetUserID, out)
}

func (r *Relay) sendError(client *ws.Client, msg string) {
	data, err := json.Marshal(SignalFrame{Type: FrameError, Error: msg})
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

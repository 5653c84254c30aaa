package call

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Repository persists call sessions. The MarkX methods carry the status
// precondition into the storage layer so transitions stay linearized per
// session: they report false when the session was not in the expected status.
type Repository interface {
	Create(ctx context.Context, s *CallSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*CallSession, error)
	FindOpenForUser(ctx context.Context, userID uuid.UUID) (*CallSession, error)
	HasOpenSessionBetween(ctx context.Context, a, b uuid.UUID) (bool, error)
	MarkAccepted(ctx context.Context, id uuid.UUID, answerPayload json.RawMessage) (bool, error)
	MarkRejected(ctx context.Context, id uuid.UUID) (bool, error)
	MarkEnded(ctx context.Context, id uuid.UUID) (bool, error)
}

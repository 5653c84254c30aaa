package notification

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists notifications. All read and mutate operations are
// scoped to the owning user; a mismatched user behaves like a missing row.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error)
	MarkManyRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

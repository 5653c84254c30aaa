package vitals

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists vital samples.
type Repository interface {
	Create(ctx context.Context, s *VitalSample) error
	Latest(ctx context.Context, userID uuid.UUID) (*VitalSample, error)
	History(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit, offset int) ([]*VitalSample, int, error)
	Stats(ctx context.Context, userID uuid.UUID, since time.Time) (*Stats, error)
}

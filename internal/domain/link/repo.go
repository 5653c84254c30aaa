package link

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists links. GetByPair returns ErrLinkNotFound when no row
// exists for the pair, active or not.
type Repository interface {
	Create(ctx context.Context, l *Link) error
	GetByPair(ctx context.Context, patientID, caregiverID uuid.UUID) (*Link, error)
	SetActive(ctx context.Context, patientID, caregiverID uuid.UUID, active bool) (bool, error)
	ListActiveCaregivers(ctx context.Context, patientID uuid.UUID) ([]*Link, error)
	ListActivePatients(ctx context.Context, caregiverID uuid.UUID) ([]*Link, error)
	IsActivelyLinked(ctx context.Context, patientID, caregiverID uuid.UUID) (bool, error)
}

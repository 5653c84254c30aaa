// Package link implements the registry of patient-caregiver relationships.
// A link is the permission edge everything else checks: calls, alert fanout
// and cross-user vitals reads all require an active link.
package link

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyLinked is returned when an active link already exists for the pair.
	ErrAlreadyLinked = errors.New("users are already linked")
	// ErrLinkNotFound is returned when no link row exists for the pair.
	ErrLinkNotFound = errors.New("link not found")
	// ErrInvalidRoleCombination is returned when the pair is not one patient
	// and one caregiver.
	ErrInvalidRoleCombination = errors.New("link requires one patient and one caregiver")
	// ErrNotLinked is returned by link-gated operations when no active link
	// exists between the two users.
	ErrNotLinked = errors.New("users are not linked")
)

// Link is a patient-caregiver relationship. Deactivation is a soft delete:
// the row stays and can be reactivated.
type Link struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	CaregiverID uuid.UUID `db:"caregiver_id" json:"caregiver_id"`
	Active      bool      `db:"active" json:"active"`
	LinkedAt    time.Time `db:"linked_at" json:"linked_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// LinkedUser is a counterparty in a listing, enriched with directory data.
type LinkedUser struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	LinkedAt    time.Time `json:"linked_at"`
}

package link

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/notification"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/db"
	"github.com/carelink/carelink/internal/platform/directory"
)

// Notifier creates notifications for link events.
type Notifier interface {
	Create(ctx context.Context, n *notification.Notification) error
}

type Service struct {
	repo     Repository
	dir      directory.Directory
	notifier Notifier
	tx       db.TxRunner
	logger   zerolog.Logger
}

func NewService(repo Repository, dir directory.Directory, notifier Notifier, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, dir: dir, notifier: notifier, tx: tx, logger: logger}
}

// resolvePair maps (caller, counterparty) onto (patient, caregiver). Either
// side may initiate; the pair must be exactly one patient and one caregiver.
func (s *Service) resolvePair(ctx context.Context, callerID uuid.UUID, callerRole string, otherID uuid.UUID) (patientID, caregiverID uuid.UUID, err error) {
	if callerID == otherID {
		return uuid.Nil, uuid.Nil, ErrInvalidRoleCombination
	}

	other, err := s.dir.Lookup(ctx, otherID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	switch {
	case callerRole == auth.RolePatient && other.Role == auth.RoleCaregiver:
		return callerID, otherID, nil
	case callerRole == auth.RoleCaregiver && other.Role == auth.RolePatient:
		return otherID, callerID, nil
	default:
		return uuid.Nil, uuid.Nil, ErrInvalidRoleCombination
	}
}

// CreateOrReactivateLink links the caller with the given user. A previously
// deactivated link is reactivated; an active one yields ErrAlreadyLinked.
func (s *Service) CreateOrReactivateLink(ctx context.Context, callerID uuid.UUID, callerRole string, otherID uuid.UUID) (*Link, error) {
	patientID, caregiverID, err := s.resolvePair(ctx, callerID, callerRole, otherID)
	if err != nil {
		return nil, err
	}

	var result *Link
	err = s.tx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByPair(ctx, patientID, caregiverID)
		switch {
		case err == nil && existing.Active:
			return ErrAlreadyLinked
		case err == nil:
			if _, err := s.repo.SetActive(ctx, patientID, caregiverID, true); err != nil {
				return err
			}
			result, err = s.repo.GetByPair(ctx, patientID, caregiverID)
			return err
		case err == ErrLinkNotFound:
			result = &Link{PatientID: patientID, CaregiverID: caregiverID}
			return s.repo.Create(ctx, result)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	s.notifyCaregiverLinked(ctx, patientID, caregiverID)
	return result, nil
}

// notifyCaregiverLinked tells the patient about the new caregiver. A failure
// here never fails the link operation.
func (s *Service) notifyCaregiverLinked(ctx context.Context, patientID, caregiverID uuid.UUID) {
	caregiverName := "A caregiver"
	if caregiver, err := s.dir.Lookup(ctx, caregiverID); err == nil {
		caregiverName = caregiver.DisplayName
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"caregiver_id":   caregiverID.String(),
		"caregiver_name": caregiverName,
	})
	n := &notification.Notification{
		UserID:  patientID,
		Kind:    notification.KindNewCaregiverLinked,
		Title:   "New Caregiver Linked",
		Message: fmt.Sprintf("%s is now your caregiver", caregiverName),
		Payload: payload,
	}
	if err := s.notifier.Create(ctx, n); err != nil {
		s.logger.Warn().Err(err).
			Str("patient_id", patientID.String()).
			Str("caregiver_id", caregiverID.String()).
			Msg("failed to notify patient about new caregiver")
	}
}

// DeactivateLink soft-deletes the link between the caller and the given user.
func (s *Service) DeactivateLink(ctx context.Context, callerID uuid.UUID, callerRole string, otherID uuid.UUID) error {
	patientID, caregiverID, err := s.resolvePair(ctx, callerID, callerRole, otherID)
	if err != nil {
		return err
	}

	found, err := s.repo.SetActive(ctx, patientID, caregiverID, false)
	if err != nil {
		return err
	}
	if !found {
		return ErrLinkNotFound
	}
	return nil
}

// ListLinkedUsers returns the caller's active counterparties: caregivers for
// a patient, patients for a caregiver, ordered by link time.
func (s *Service) ListLinkedUsers(ctx context.Context, callerID uuid.UUID, callerRole string) ([]*LinkedUser, error) {
	var links []*Link
	var err error
	var pick func(l *Link) uuid.UUID

	switch callerRole {
	case auth.RolePatient:
		links, err = s.repo.ListActiveCaregivers(ctx, callerID)
		pick = func(l *Link) uuid.UUID { return l.CaregiverID }
	case auth.RoleCaregiver:
		links, err = s.repo.ListActivePatients(ctx, callerID)
		pick = func(l *Link) uuid.UUID { return l.PatientID }
	default:
		return nil, ErrInvalidRoleCombination
	}
	if err != nil {
		return nil, err
	}

	users := make([]*LinkedUser, 0, len(links))
	for _, l := range links {
		id := pick(l)
		name := "Unknown user"
		if u, err := s.dir.Lookup(ctx, id); err == nil {
			name = u.DisplayName
		}
		users = append(users, &LinkedUser{UserID: id, DisplayName: name, LinkedAt: l.LinkedAt})
	}
	return users, nil
}

// IsActivelyLinked reports whether an active link exists between the patient
// and the caregiver. Other domains gate on this.
func (s *Service) IsActivelyLinked(ctx context.Context, patientID, caregiverID uuid.UUID) (bool, error) {
	return s.repo.IsActivelyLinked(ctx, patientID, caregiverID)
}

// ActiveCaregiverIDs returns the ids of the patient's active caregivers in
// link order. The alert fanout consumes this.
func (s *Service) ActiveCaregiverIDs(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	links, err := s.repo.ListActiveCaregivers(ctx, patientID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.CaregiverID)
	}
	return ids, nil
}

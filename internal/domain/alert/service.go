// Package alert turns health events into notifications. Its main job is the
// emergency fanout: one alertable blood-pressure sample becomes one
// notification per active caregiver.
package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/notification"
	"github.com/carelink/carelink/internal/domain/vitals"
	"github.com/carelink/carelink/internal/platform/directory"
)

// Caregiver actions offered on an emergency alert.
var emergencyActions = []string{"call_patient", "video_call_patient", "view_details"}

// CaregiverResolver returns the active caregivers of a patient.
type CaregiverResolver interface {
	ActiveCaregiverIDs(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
}

// Notifier creates notifications for alert events.
type Notifier interface {
	Create(ctx context.Context, n *notification.Notification) error
}

type Service struct {
	links    CaregiverResolver
	notifier Notifier
	dir      directory.Directory
	logger   zerolog.Logger
}

func NewService(links CaregiverResolver, notifier Notifier, dir directory.Directory, logger zerolog.Logger) *Service {
	return &Service{links: links, notifier: notifier, dir: dir, logger: logger}
}

// patientName resolves a display name for alert text. Directory outages never
// fail an alert.
func (s *Service) patientName(ctx context.Context, patientID uuid.UUID) string {
	u, err := s.dir.Lookup(ctx, patientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("patient_id", patientID.String()).
			Msg("directory lookup failed, using generic name")
		return "your patient"
	}
	return u.DisplayName
}

// RaiseEmergencyAlert notifies every active caregiver of the patient about an
// alertable reading. Zero caregivers is a quiet no-op. A failure for one
// caregiver does not stop delivery to the rest; the joined errors come back
// so the caller can log and retry.
func (s *Service) RaiseEmergencyAlert(ctx context.Context, sample *vitals.VitalSample) error {
	caregiverIDs, err := s.links.ActiveCaregiverIDs(ctx, sample.UserID)
	if err != nil {
		return fmt.Errorf("resolving caregivers: %w", err)
	}
	if len(caregiverIDs) == 0 {
		return nil
	}

	name := s.patientName(ctx, sample.UserID)
	payload, _ := json.Marshal(map[string]interface{}{
		"sample_id":    sample.ID.String(),
		"patient_id":   sample.UserID.String(),
		"patient_name": name,
		"systolic":     sample.Systolic,
		"diastolic":    sample.Diastolic,
		"risk_tier":    string(sample.RiskTier),
		"actions":      emergencyActions,
	})

	var errs []error
	for _, caregiverID := range caregiverIDs {
		n := &notification.Notification{
			UserID:  caregiverID,
			Kind:    notification.KindEmergencyBPAlert,
			Title:   fmt.Sprintf("Emergency BP Alert: %s", name),
			Message: fmt.Sprintf("Blood pressure: %d/%d mmHg - Risk: %s", sample.Systolic, sample.Diastolic, sample.RiskTier),
			Payload: payload,
		}
		if err := s.notifier.Create(ctx, n); err != nil {
			s.logger.Error().Err(err).
				Str("caregiver_id", caregiverID.String()).
				Str("sample_id", sample.ID.String()).
				Msg("emergency alert delivery failed")
			errs = append(errs, fmt.Errorf("caregiver %s: %w", caregiverID, err))
		}
	}
	return errors.Join(errs...)
}

// SendSensorDisconnection tells the patient their sensor dropped off.
func (s *Service) SendSensorDisconnection(ctx context.Context, patientID uuid.UUID, deviceName string) error {
	if deviceName == "" {
		deviceName = "Blood pressure sensor"
	}
	payload, _ := json.Marshal(map[string]interface{}{"device_name": deviceName})

	return s.notifier.Create(ctx, &notification.Notification{
		UserID:  patientID,
		Kind:    notification.KindSensorDisconnection,
		Title:   "Sensor Disconnected",
		Message: fmt.Sprintf("%s has been disconnected. Reconnect it to keep monitoring.", deviceName),
		Payload: payload,
	})
}

// SendMedicationReminder nudges the patient to take a medication.
func (s *Service) SendMedicationReminder(ctx context.Context, patientID uuid.UUID, medication, dosage string) error {
	if medication == "" {
		return fmt.Errorf("medication is required")
	}
	message := fmt.Sprintf("Time to take %s", medication)
	if dosage != "" {
		message = fmt.Sprintf("Time to take %s (%s)", medication, dosage)
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"medication": medication,
		"dosage":     dosage,
	})

	return s.notifier.Create(ctx, &notification.Notification{
		UserID:  patientID,
		Kind:    notification.KindMedicationReminder,
		Title:   "Medication Reminder",
		Message: message,
		Payload: payload,
	})
}

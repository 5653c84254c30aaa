package vitals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/link"
	"github.com/carelink/carelink/internal/platform/cache"
)

const latestReadingTTL = 5 * time.Minute

func latestReadingKey(userID uuid.UUID) string {
	return "vitals:latest:" + userID.String()
}

// AlertRaiser fans an alertable sample out to the patient's caregivers.
type AlertRaiser interface {
	RaiseEmergencyAlert(ctx context.Context, sample *VitalSample) error
}

// LinkChecker gates caregiver access to patient readings.
type LinkChecker interface {
	IsActivelyLinked(ctx context.Context, patientID, caregiverID uuid.UUID) (bool, error)
}

type Service struct {
	repo   Repository
	links  LinkChecker
	alerts AlertRaiser
	cache  *cache.Cache
	logger zerolog.Logger
}

func NewService(repo Repository, links LinkChecker, alerts AlertRaiser, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{repo: repo, links: links, alerts: alerts, cache: c, logger: logger}
}

// SubmitReading classifies and persists a reading. HIGH and CRITICAL tiers
// trigger the caregiver fanout; a fanout failure is logged and never surfaced
// to the submitter.
func (s *Service) SubmitReading(ctx context.Context, userID uuid.UUID, systolic, diastolic int, heartRate *int, source string, measuredAt *time.Time) (*VitalSample, error) {
	if systolic <= 0 || diastolic <= 0 {
		return nil, fmt.Errorf("systolic and diastolic must be positive")
	}
	if systolic > 400 || diastolic > 300 {
		return nil, fmt.Errorf("reading out of physiological range")
	}
	if heartRate != nil && (*heartRate <= 0 || *heartRate > 300) {
		return nil, fmt.Errorf("heart rate out of range")
	}
	if source == "" {
		source = SourceManual
	}
	if !validSources[source] {
		return nil, fmt.Errorf("invalid source: %s", source)
	}

	at := time.Now().UTC()
	if measuredAt != nil {
		at = measuredAt.UTC()
	}

	sample := &VitalSample{
		UserID:     userID,
		Systolic:   systolic,
		Diastolic:  diastolic,
		HeartRate:  heartRate,
		RiskTier:   Classify(systolic, diastolic),
		Source:     source,
		MeasuredAt: at,
	}
	if err := s.repo.Create(ctx, sample); err != nil {
		return nil, err
	}
	s.cacheLatest(ctx, sample)

	if sample.RiskTier.Alertable() {
		if err := s.alerts.RaiseEmergencyAlert(ctx, sample); err != nil {
			s.logger.Error().Err(err).
				Str("user_id", userID.String()).
				Str("sample_id", sample.ID.String()).
				Str("risk_tier", string(sample.RiskTier)).
				Msg("emergency alert fanout failed")
		}
	}
	return sample, nil
}

func (s *Service) cacheLatest(ctx context.Context, sample *VitalSample) {
	data, err := json.Marshal(sample)
	if err != nil {
		return
	}
	s.cache.Set(ctx, latestReadingKey(sample.UserID), string(data), latestReadingTTL)
}

// Latest returns the user's most recent reading, served from cache when
// possible.
func (s *Service) Latest(ctx context.Context, userID uuid.UUID) (*VitalSample, error) {
	if cached, ok := s.cache.Get(ctx, latestReadingKey(userID)); ok {
		var sample VitalSample
		if err := json.Unmarshal([]byte(cached), &sample); err == nil {
			return &sample, nil
		}
	}

	sample, err := s.repo.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cacheLatest(ctx, sample)
	return sample, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit, offset int) ([]*VitalSample, int, error) {
	return s.repo.History(ctx, userID, from, to, limit, offset)
}

// Stats aggregates the user's readings over the trailing window.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID, days int) (*Stats, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	st, err := s.repo.Stats(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	st.Days = days
	return st, nil
}

// LatestForPatient is the caregiver view of Latest, gated by an active link.
func (s *Service) LatestForPatient(ctx context.Context, caregiverID, patientID uuid.UUID) (*VitalSample, error) {
	if err := s.requireLink(ctx, patientID, caregiverID); err != nil {
		return nil, err
	}
	return s.Latest(ctx, patientID)
}

// HistoryForPatient is the caregiver view of History, gated by an active link.
func (s *Service) HistoryForPatient(ctx context.Context, caregiverID, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*VitalSample, int, error) {
	if err := s.requireLink(ctx, patientID, caregiverID); err != nil {
		return nil, 0, err
	}
	return s.History(ctx, patientID, from, to, limit, offset)
}

func (s *Service) requireLink(ctx context.Context, patientID, caregiverID uuid.UUID) error {
	linked, err := s.links.IsActivelyLinked(ctx, patientID, caregiverID)
	if err != nil {
		return err
	}
	if !linked {
		return link.ErrNotLinked
	}
	return nil
}

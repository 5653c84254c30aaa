// Package vitals handles blood-pressure readings: risk classification,
// ingestion, history and aggregate stats. Readings above the HIGH threshold
// trigger the emergency alert fanout.
package vitals

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RiskTier is the classified severity of a blood-pressure reading.
type RiskTier string

const (
	TierLow      RiskTier = "LOW"
	TierNormal   RiskTier = "NORMAL"
	TierModerate RiskTier = "MODERATE"
	TierHigh     RiskTier = "HIGH"
	TierCritical RiskTier = "CRITICAL"
)

// Reading sources.
const (
	SourceManual    = "manual"
	SourceSensor    = "sensor"
	SourcePredicted = "predicted"
)

var validSources = map[string]bool{
	SourceManual:    true,
	SourceSensor:    true,
	SourcePredicted: true,
}

// ErrNotFound is returned when a user has no readings.
var ErrNotFound = errors.New("vital sample not found")

// Classify maps a blood-pressure reading onto a risk tier. The hypotension
// check runs before the hypertension ladder: a reading like 85/120 is LOW,
// not CRITICAL.
func Classify(systolic, diastolic int) RiskTier {
	switch {
	case systolic < 90 || diastolic < 60:
		return TierLow
	case systolic >= 180 || diastolic >= 120:
		return TierCritical
	case systolic >= 140 || diastolic >= 90:
		return TierHigh
	case systolic >= 120 || diastolic >= 80:
		return TierModerate
	default:
		return TierNormal
	}
}

// Alertable reports whether a tier triggers the emergency fanout.
func (t RiskTier) Alertable() bool {
	return t == TierHigh || t == TierCritical
}

// VitalSample is a persisted blood-pressure reading. RiskTier is derived at
// ingestion and never updated.
type VitalSample struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	Systolic   int       `db:"systolic" json:"systolic"`
	Diastolic  int       `db:"diastolic" json:"diastolic"`
	HeartRate  *int      `db:"heart_rate" json:"heart_rate,omitempty"`
	RiskTier   RiskTier  `db:"risk_tier" json:"risk_tier"`
	Source     string    `db:"source" json:"source"`
	MeasuredAt time.Time `db:"measured_at" json:"measured_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Stats aggregates a user's readings over a window.
type Stats struct {
	Count        int     `json:"count"`
	AvgSystolic  float64 `json:"avg_systolic"`
	AvgDiastolic float64 `json:"avg_diastolic"`
	MinSystolic  int     `json:"min_systolic"`
	MaxSystolic  int     `json:"max_systolic"`
	MinDiastolic int     `json:"min_diastolic"`
	MaxDiastolic int     `json:"max_diastolic"`
	Days         int     `json:"days"`
}

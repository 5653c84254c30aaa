// Package notification implements the per-user notification store. Other
// domains (alerts, calls, links) create notifications here; users list, read
// and delete their own.
package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Notification kinds. The payload shape depends on the kind and is opaque to
// the store.
const (
	KindEmergencyBPAlert    = "emergency_bp_alert"
	KindIncomingCall        = "incoming_call"
	KindMissedCall          = "missed_call"
	KindMedicationReminder  = "medication_reminder"
	KindSensorDisconnection = "sensor_disconnection"
	KindNewCaregiverLinked  = "new_caregiver_linked"
)

var validKinds = map[string]bool{
	KindEmergencyBPAlert:    true,
	KindIncomingCall:        true,
	KindMissedCall:          true,
	KindMedicationReminder:  true,
	KindSensorDisconnection: true,
	KindNewCaregiverLinked:  true,
}

// ValidKind reports whether kind is one of the known notification kinds.
func ValidKind(kind string) bool { return validKinds[kind] }

// ErrNotFound is returned when a notification does not exist or belongs to
// another user.
var ErrNotFound = errors.New("notification not found")

// Notification is a single entry in a user's notification feed.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Kind      string          `db:"kind" json:"kind"`
	Title     string          `db:"title" json:"title"`
	Message   string          `db:"message" json:"message"`
	Payload   json.RawMessage `db:"payload" json:"payload,omitempty"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	ReadAt    *time.Time      `db:"read_at" json:"read_at,omitempty"`
}

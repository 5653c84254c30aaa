// Package push abstracts the push-delivery provider. Delivery is best-effort:
// failures are logged by callers and never surfaced as a core error, since the
// persisted notification row is the durability guarantee.
package push

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Message is the payload handed to the delivery provider.
type Message struct {
	UserID  uuid.UUID
	Title   string
	Body    string
	Payload map[string]interface{}
}

// Sender is the interface for the push-delivery provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender is a Sender that only logs. Used until a real provider (FCM, APNs)
// is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("user_id", msg.UserID.String()).
		Str("title", msg.Title).
		Msg("push notification sent")
	return nil
}

// MockSender is a test double that records every call.
type MockSender struct {
	mu         sync.Mutex
	calls      []Message
	ShouldFail bool
	FailError  string
}

func (m *MockSender) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, msg)
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded messages.
func (m *MockSender) Calls() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.calls))
	copy(out, m.calls)
	return out
}

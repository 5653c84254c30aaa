package link

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/notification"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/db"
	"github.com/carelink/carelink/internal/platform/directory"
)

// -- Mocks --

type pairKey struct{ patient, caregiver uuid.UUID }

type mockRepo struct {
	mu    sync.Mutex
	items map[pairKey]*Link
	clock time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[pairKey]*Link), clock: time.Now()}
}

func (m *mockRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockRepo) Create(_ context.Context, l *Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.New()
	l.Active = true
	l.LinkedAt = m.tick()
	l.UpdatedAt = l.LinkedAt
	cp := *l
	m.items[pairKey{l.PatientID, l.CaregiverID}] = &cp
	return nil
}

func (m *mockRepo) GetByPair(_ context.Context, patientID, caregiverID uuid.UUID) (*Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[pairKey{patientID, caregiverID}]
	if !ok {
		return nil, ErrLinkNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *mockRepo) SetActive(_ context.Context, patientID, caregiverID uuid.UUID, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[pairKey{patientID, caregiverID}]
	if !ok {
		return false, nil
	}
	l.Active = active
	if active {
		l.LinkedAt = m.tick()
	}
	l.UpdatedAt = m.tick()
	return true, nil
}

func (m *mockRepo) ListActiveCaregivers(_ context.Context, patientID uuid.UUID) ([]*Link, error) {
	return m.list(func(l *Link) bool { return l.PatientID == patientID })
}

func (m *mockRepo) ListActivePatients(_ context.Context, caregiverID uuid.UUID) ([]*Link, error) {
	return m.list(func(l *Link) bool { return l.CaregiverID == caregiverID })
}

func (m *mockRepo) list(match func(*Link) bool) ([]*Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Link
	for _, l := range m.items {
		if l.Active && match(l) {
			cp := *l
			out = append(out, &cp)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].LinkedAt.Before(out[i].LinkedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *mockRepo) IsActivelyLinked(_ context.Context, patientID, caregiverID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[pairKey{patientID, caregiverID}]
	return ok && l.Active, nil
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []notification.Notification
}

func (m *mockNotifier) Create(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, *n)
	return nil
}

func (m *mockNotifier) Calls() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notification.Notification, len(m.calls))
	copy(out, m.calls)
	return out
}

type fixture struct {
	svc       *Service
	repo      *mockRepo
	notifier  *mockNotifier
	patient   directory.User
	caregiver directory.User
}

func newFixture() *fixture {
	patient := directory.User{ID: uuid.New(), DisplayName: "Pat Doe", Role: auth.RolePatient}
	caregiver := directory.User{ID: uuid.New(), DisplayName: "Carol Giver", Role: auth.RoleCaregiver}
	repo := newMockRepo()
	notifier := &mockNotifier{}
	svc := NewService(repo, directory.NewStatic(patient, caregiver), notifier,
		db.PassthroughRunner, zerolog.Nop())
	return &fixture{svc: svc, repo: repo, notifier: notifier, patient: patient, caregiver: caregiver}
}

// -- Tests --

func TestCreateLink_PatientInitiated(t *testing.T) {
	f := newFixture()

	l, err := f.svc.CreateOrReactivateLink(context.Background(), f.patient.ID, auth.RolePatient, f.caregiver.ID)
	if err != nil {
		t.Fatalf("CreateOrReactivateLink failed: %v", err)
	}
	if l.PatientID != f.patient.ID || l.CaregiverID != f.caregiver.ID {
		t.Fatal("pair resolved the wrong way around")
	}
	if !l.Active {
		t.Fatal("expected link to be active")
	}
}

func TestCreateLink_CaregiverInitiated(t *testing.T) {
	f := newFixture()

	l, err := f.svc.CreateOrReactivateLink(context.Background(), f.caregiver.ID, auth.RoleCaregiver, f.patient.ID)
	if err != nil {
		t.Fatalf("CreateOrReactivateLink failed: %v", err)
	}
	if l.PatientID != f.patient.ID || l.CaregiverID != f.caregiver.ID {
		t.Fatal("pair resolved the wrong way around")
	}
}

func TestCreateLink_AlreadyLinked(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.CreateOrReactivateLink(context.Background(), f.patient.ID, auth.RolePatient, f.caregiver.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.CreateOrReactivateLink(context.Background(), f.patient.ID, auth.RolePatient, f.caregiver.ID)
	if err != ErrAlreadyLinked {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}
}

func TestCreateLink_ReactivatesWithoutDuplicate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.CreateOrReactivateLink(ctx, f.patient.ID, auth.RolePatient, f.caregiver.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeactivateLink(ctx, f.patient.ID, auth.RolePatient, f.caregiver.ID); err != nil {
		t.Fatal(err)
	}

	second, err := f.svc.CreateOrReactivateLink(ctx, f.patient.ID, auth.RolePatient, f.caregiver.ID)
	if err != nil {
		t.Fatalf("reactivation failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("reactivation must reuse the existing row, not create a new one")
	}
	if !second.Active {
		t.Fatal("expected reactivated link to be active")
	}
}

func TestCreateLink_InvalidRoleCombinations(t *testing.T) {
	f := newFixture()
	otherPatient := directory.User{ID: uuid.New(), DisplayName: "Piet", Role: auth.RolePatient}
	otherCaregiver := directory.User{ID: uuid.New(), DisplayName: "Cora", Role: auth.RoleCaregiver}
	f.svc.dir.(*directory.Static).Add(otherPatient)
	f.svc.dir.(*directory.Static).Add(otherCaregiver)

	tests := []struct {
		name       string
		callerID   uuid.UUID
		callerRole string
		otherID    uuid.UUID
	}{
		{"patient to patient", f.patient.ID, auth.RolePatient, otherPatient.ID},
		{"caregiver to caregiver", f.caregiver.ID, auth.RoleCaregiver, otherCaregiver.ID},
		{"self link", f.patient.ID, auth.RolePatient, f.patient.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateOrReactivateLink(context.Background(), tt.callerID, tt.callerRole, tt.otherID)
			if err != ErrInvalidRoleCombination {
				t.Fatalf("expected ErrInvalidRoleCombination, got %v", err)
			}
		})
	}
}

func TestCreateLink_UnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateOrReactivateLink(context.Background(), f.patient.ID, auth.RolePatient, uuid.New())
	if err != directory.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateLink_NotifiesPatient(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.CreateOrReactivateLink(context.Background(), f.caregiver.ID, auth.RoleCaregiver, f.patient.ID); err != nil {
		t.Fatal(err)
	}

	calls := f.notifier.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(calls))
	}
	n := calls[0]
	if n.UserID != f.patient.ID {
		t.Error("notification must go to the patient")
	}
	if n.Kind != notification.KindNewCaregiverLinked {
		t.Errorf("unexpected kind %s", n.Kind)
	}
	if n.Message != "Carol Giver is now your caregiver" {
		t.Errorf("unexpected message %q", n.Message)
	}
}

func TestDeactivateLink_Missing(t *testing.T) {
	f := newFixture()

	err := f.svc.DeactivateLink(context.Background(), f.patient.ID, auth.RolePatient, f.caregiver.ID)
	if err != ErrLinkNotFound {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestDeactivateLink_GatesEverything(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.CreateOrReactivateLink(ctx, f.patient.ID, auth.RolePatient, f.caregiver.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeactivateLink(ctx, f.patient.ID, auth.RolePatient, f.caregiver.ID); err != nil {
		t.Fatal(err)
	}

	linked, err := f.svc.IsActivelyLinked(ctx, f.patient.ID, f.caregiver.ID)
	if err != nil {
		t.Fatal(err)
	}
	if linked {
		t.Fatal("deactivated link must not count as active")
	}
}

func TestListLinkedUsers_OrderedByLinkTime(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	second := directory.User{ID: uuid.New(), DisplayName: "Carl Second", Role: auth.RoleCaregiver}
	f.svc.dir.(*directory.Static).Add(second)

	if _, err := f.svc.CreateOrReactivateLink(ctx, f.patient.ID, auth.RolePatient, f.caregiver.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CreateOrReactivateLink(ctx, f.patient.ID, auth.RolePatient, second.ID); err != nil {
		t.Fatal(err)
	}

	users, err := f.svc.ListLinkedUsers(ctx, f.patient.ID, auth.RolePatient)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 linked caregivers, got %d", len(users))
	}
	if users[0].UserID != f.caregiver.ID || users[1].UserID != second.ID {
		t.Fatal("expected caregivers in link order")
	}
	if users[0].DisplayName != "Carol Giver" {
		t.Errorf("expected directory name, got %q", users[0].DisplayName)
	}
}

func TestListLinkedUsers_CaregiverSeesPatients(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.CreateOrReactivateLink(ctx, f.patient.ID, auth.RolePatient, f.caregiver.ID); err != nil {
		t.Fatal(err)
	}

	users, err := f.svc.ListLinkedUsers(ctx, f.caregiver.ID, auth.RoleCaregiver)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].UserID != f.patient.ID {
		t.Fatal("expected the linked patient")
	}
}

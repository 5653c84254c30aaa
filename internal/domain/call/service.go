package call

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/link"
	"github.com/carelink/carelink/internal/domain/notification"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/directory"
)

// LinkChecker gates calls on an active patient-caregiver link.
type LinkChecker interface {
	IsActivelyLinked(ctx context.Context, patientID, caregiverID uuid.UUID) (bool, error)
}

// Notifier creates notifications for call events.
type Notifier interface {
	Create(ctx context.Context, n *notification.Notification) error
}

// patientLocks hands out one mutex per patient identity so the busy check and
// the session insert happen atomically per patient.
type patientLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newPatientLocks() *patientLocks {
	return &patientLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (p *patientLocks) get(patientID uuid.UUID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[patientID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[patientID] = l
	}
	return l
}

type Service struct {
	repo     Repository
	links    LinkChecker
	notifier Notifier
	dir      directory.Directory
	locks    *patientLocks
	logger   zerolog.Logger
}

func NewService(repo Repository, links LinkChecker, notifier Notifier, dir directory.Directory, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		links:    links,
		notifier: notifier,
		dir:      dir,
		locks:    newPatientLocks(),
		logger:   logger,
	}
}

// patientOf resolves which side of the call is the patient. Only patients and
// caregivers place calls; the handler's role gate enforces that.
func patientOf(callerID uuid.UUID, callerRole string, calleeID uuid.UUID) (patientID, caregiverID uuid.UUID, err error) {
	switch callerRole {
	case auth.RolePatient:
		return callerID, calleeID, nil
	case auth.RoleCaregiver:
		return calleeID, callerID, nil
	default:
		return uuid.Nil, uuid.Nil, fmt.Errorf("role %q cannot place calls", callerRole)
	}
}

// Initiate opens a RINGING session from the caller to the callee. The pair
// must be actively linked, and the patient must not already have an open
// session. Exactly one of two concurrent Initiates for the same patient wins.
func (s *Service) Initiate(ctx context.Context, callerID uuid.UUID, callerRole string, calleeID uuid.UUID, callType string, offerPayload json.RawMessage) (*CallSession, error) {
	if callerID == calleeID {
		return nil, fmt.Errorf("cannot call yourself")
	}
	if !validTypes[callType] {
		return nil, fmt.Errorf("invalid call type: %s", callType)
	}

	patientID, caregiverID, err := patientOf(callerID, callerRole, calleeID)
	if err != nil {
		return nil, err
	}

	linked, err := s.links.IsActivelyLinked(ctx, patientID, caregiverID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, link.ErrNotLinked
	}

	lock := s.locks.get(patientID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.repo.FindOpenForUser(ctx, patientID); err == nil {
		return nil, ErrPatientBusy
	} else if err != ErrNotFound {
		return nil, err
	}

	session := &CallSession{
		CallerID:     callerID,
		CalleeID:     calleeID,
		Type:         callType,
		OfferPayload: offerPayload,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.notifyIncomingCall(ctx, session)
	return session, nil
}

func (s *Service) callerName(ctx context.Context, callerID uuid.UUID) string {
	if u, err := s.dir.Lookup(ctx, callerID); err == nil {
		return u.DisplayName
	}
	return "Someone"
}

func (s *Service) notifyIncomingCall(ctx context.Context, session *CallSession) {
	name := s.callerName(ctx, session.CallerID)
	payload, _ := json.Marshal(map[string]interface{}{
		"session_id":  session.ID.String(),
		"caller_id":   session.CallerID.String(),
		"caller_name": name,
		"call_type":   session.Type,
		"actions":     []string{"answer", "decline"},
	})
	n := &notification.Notification{
		UserID:  session.CalleeID,
		Kind:    notification.KindIncomingCall,
		Title:   "Incoming Call",
		Message: fmt.Sprintf("%s is calling you", name),
		Payload: payload,
	}
	if err := s.notifier.Create(ctx, n); err != nil {
		s.logger.Warn().Err(err).
			Str("session_id", session.ID.String()).
			Msg("incoming call notification failed")
	}
}

// Accept transitions RINGING to IN_CALL. Only the callee may accept.
func (s *Service) Accept(ctx context.Context, userID, sessionID uuid.UUID, answerPayload json.RawMessage) (*CallSession, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CalleeID != userID {
		return nil, ErrNotParticipant
	}

	ok, err := s.repo.MarkAccepted(ctx, sessionID, answerPayload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	return s.repo.GetByID(ctx, sessionID)
}

// Reject transitions RINGING to REJECTED. Only the callee may reject.
func (s *Service) Reject(ctx context.Context, userID, sessionID uuid.UUID) (*CallSession, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CalleeID != userID {
		return nil, ErrNotParticipant
	}

	ok, err := s.repo.MarkRejected(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	return s.repo.GetByID(ctx, sessionID)
}

// End closes a ringing or answered session. Either participant may end it.
// Ending an already ENDED session is an idempotent no-op returning the
// terminal record; ending a REJECTED one is an invalid transition. Ending
// from RINGING is a missed call and notifies the callee.
func (s *Service) End(ctx context.Context, userID, sessionID uuid.UUID) (*CallSession, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Participant(userID) {
		return nil, ErrNotParticipant
	}

	wasRinging := session.Status == StatusRinging

	ok, err := s.repo.MarkEnded(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The session already reached a terminal status, possibly between our
		// read and the update.
		session, err = s.repo.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session.Status == StatusEnded {
			return session, nil
		}
		return nil, ErrInvalidTransition
	}

	if wasRinging {
		s.notifyMissedCall(ctx, session)
	}
	return s.repo.GetByID(ctx, sessionID)
}

func (s *Service) notifyMissedCall(ctx context.Context, session *CallSession) {
	name := s.callerName(ctx, session.CallerID)
	payload, _ := json.Marshal(map[string]interface{}{
		"session_id":  session.ID.String(),
		"caller_id":   session.CallerID.String(),
		"caller_name": name,
		"call_type":   session.Type,
	})
	n := &notification.Notification{
		UserID:  session.CalleeID,
		Kind:    notification.KindMissedCall,
		Title:   "Missed Call",
		Message: fmt.Sprintf("You missed a call from %s", name),
		Payload: payload,
	}
	if err := s.notifier.Create(ctx, n); err != nil {
		s.logger.Warn().Err(err).
			Str("session_id", session.ID.String()).
			Msg("missed call notification failed")
	}
}

// Get returns a session to one of its participants.
func (s *Service) Get(ctx context.Context, userID, sessionID uuid.UUID) (*CallSession, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Participant(userID) {
		return nil, ErrNotParticipant
	}
	return session, nil
}

// HasOpenSessionBetween reports whether the two users share an open session.
// The signaling relay gates frames on it.
func (s *Service) HasOpenSessionBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return s.repo.HasOpenSessionBetween(ctx, a, b)
}

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/cache"
	"github.com/carelink/carelink/internal/platform/push"
)

const unreadCountTTL = 5 * time.Minute

func unreadCountKey(userID uuid.UUID) string {
	return "notif:unread:" + userID.String()
}

type Service struct {
	repo   Repository
	pusher push.Sender
	cache  *cache.Cache
	logger zerolog.Logger
}

func NewService(repo Repository, pusher push.Sender, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{repo: repo, pusher: pusher, cache: c, logger: logger}
}

// Create stores the notification and hands it to the push sender. Push
// delivery is best-effort; a failed push never fails the create.
func (s *Service) Create(ctx context.Context, n *Notification) error {
	if !ValidKind(n.Kind) {
		return fmt.Errorf("invalid notification kind: %s", n.Kind)
	}
	if n.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if n.Title == "" {
		return fmt.Errorf("title is required")
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.cache.Delete(ctx, unreadCountKey(n.UserID))

	go s.push(*n)
	return nil
}

func (s *Service) push(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var payload map[string]interface{}
	if len(n.Payload) > 0 {
		if err := json.Unmarshal(n.Payload, &payload); err != nil {
			s.logger.Warn().Err(err).Str("notification_id", n.ID.String()).
				Msg("notification payload is not an object, pushing without it")
		}
	}

	msg := push.Message{
		UserID:  n.UserID,
		Title:   n.Title,
		Body:    n.Message,
		Payload: payload,
	}
	if err := s.pusher.Send(ctx, msg); err != nil {
		s.logger.Warn().Err(err).
			Str("notification_id", n.ID.String()).
			Str("user_id", n.UserID.String()).
			Msg("push delivery failed")
	}
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit, offset)
}

// UnreadCount serves from cache when possible.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	key := unreadCountKey(userID)
	if cached, ok := s.cache.Get(ctx, key); ok {
		if count, err := strconv.Atoi(cached); err == nil {
			return count, nil
		}
	}

	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.cache.Set(ctx, key, strconv.Itoa(count), unreadCountTTL)
	return count, nil
}

// MarkRead flips is_read to true. Marking an already-read notification is an
// idempotent no-op; read_at never changes once set.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	found, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	s.cache.Delete(ctx, unreadCountKey(userID))
	return nil
}

// MarkManyRead marks the given notifications read, skipping unknown and
// foreign ids. It returns how many rows actually flipped.
func (s *Service) MarkManyRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	updated, err := s.repo.MarkManyRead(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.cache.Delete(ctx, unreadCountKey(userID))
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	found, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	s.cache.Delete(ctx, unreadCountKey(userID))
	return nil
}

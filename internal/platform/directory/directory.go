// Package directory resolves user identities against the external users table.
// Account management lives outside this service; the directory is a read-only
// view of it.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when no user exists with the given id.
var ErrUserNotFound = errors.New("user not found")

// User is the directory's view of an account.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
}

// Directory looks up users by id.
type Directory interface {
	Lookup(ctx context.Context, id uuid.UUID) (*User, error)
}

type pgDirectory struct{ pool *pgxpool.Pool }

// NewPG returns a Directory backed by the users table.
func NewPG(pool *pgxpool.Pool) Directory {
	return &pgDirectory{pool: pool}
}

func (d *pgDirectory) Lookup(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := d.pool.QueryRow(ctx,
		`SELECT id, full_name, role FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.DisplayName, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	return &u, nil
}

// Static is an in-memory Directory for tests and development.
type Static struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

func NewStatic(users ...User) *Static {
	s := &Static{users: make(map[uuid.UUID]User, len(users))}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *Static) Add(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Static) Lookup(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

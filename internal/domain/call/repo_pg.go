package call

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const sessionCols = `id, caller_id, callee_id, type, status, offer_payload, answer_payload,
	started_at, answered_at, ended_at, duration_seconds, created_at`

func scanSession(row pgx.Row) (*CallSession, error) {
	var s CallSession
	err := row.Scan(&s.ID, &s.CallerID, &s.CalleeID, &s.Type, &s.Status,
		&s.OfferPayload, &s.AnswerPayload, &s.StartedAt, &s.AnsweredAt, &s.EndedAt,
		&s.DurationSeconds, &s.CreatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *CallSession) error {
	s.ID = uuid.New()
	s.Status = StatusRinging
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO call_sessions (id, caller_id, callee_id, type, status, offer_payload, started_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		RETURNING started_at, created_at`,
		s.ID, s.CallerID, s.CalleeID, s.Type, s.Status, s.OfferPayload,
	).Scan(&s.StartedAt, &s.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*CallSession, error) {
	s, err := scanSession(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM call_sessions WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repoPG) FindOpenForUser(ctx context.Context, userID uuid.UUID) (*CallSession, error) {
	s, err := scanSession(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM call_sessions
		 WHERE (caller_id = $1 OR callee_id = $1) AND status IN ($2, $3)
		 ORDER BY created_at DESC LIMIT 1`, userID, StatusRinging, StatusInCall))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repoPG) HasOpenSessionBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var open bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM call_sessions
			WHERE ((caller_id = $1 AND callee_id = $2) OR (caller_id = $2 AND callee_id = $1))
			  AND status IN ($3, $4)
		)`, a, b, StatusRinging, StatusInCall).Scan(&open)
	return open, err
}

func (r *repoPG) MarkAccepted(ctx context.Context, id uuid.UUID, answerPayload json.RawMessage) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE call_sessions
		SET status = $3, answer_payload = $2, answered_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, answerPayload, StatusInCall, StatusRinging)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) MarkRejected(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE call_sessions
		SET status = $2, ended_at = NOW()
		WHERE id = $1 AND status = $3`,
		id, StatusRejected, StatusRinging)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkEnded closes a ringing or answered session. An unanswered call ends
// with zero duration.
func (r *repoPG) MarkEnded(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE call_sessions
		SET status = $2,
		    ended_at = NOW(),
		    duration_seconds = CASE
		        WHEN answered_at IS NULL THEN 0
		        ELSE GREATEST(0, EXTRACT(EPOCH FROM (NOW() - answered_at))::INT)
		    END
		WHERE id = $1 AND status IN ($3, $4)`,
		id, StatusEnded, StatusRinging, StatusInCall)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

package vitals

import (
	"context"
	"fmt"
	"time"

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

const sampleCols = `id, user_id, systolic, diastolic, heart_rate, risk_tier, source, measured_at, created_at`

func scanSample(row pgx.Row) (*VitalSample, error) {
	var s VitalSample
	err := row.Scan(&s.ID, &s.UserID, &s.Systolic, &s.Diastolic, &s.HeartRate,
		&s.RiskTier, &s.Source, &s.MeasuredAt, &s.CreatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *VitalSample) error {
	s.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vital_samples (id, user_id, systolic, diastolic, heart_rate, risk_tier, source, measured_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		s.ID, s.UserID, s.Systolic, s.Diastolic, s.HeartRate, s.RiskTier, s.Source, s.MeasuredAt,
	).Scan(&s.CreatedAt)
}

func (r *repoPG) Latest(ctx context.Context, userID uuid.UUID) (*VitalSample, error) {
	s, err := scanSample(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sampleCols+` FROM vital_samples WHERE user_id = $1
		 ORDER BY measured_at DESC LIMIT 1`, userID))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repoPG) History(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit, offset int) ([]*VitalSample, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if from != nil {
		args = append(args, *from)
		where += fmt.Sprintf(` AND measured_at >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, *to)
		where += fmt.Sprintf(` AND measured_at <= $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM vital_samples `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+sampleCols+` FROM vital_samples `+where+
			fmt.Sprintf(` ORDER BY measured_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*VitalSample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context, userID uuid.UUID, since time.Time) (*Stats, error) {
	var st Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(systolic), 0), COALESCE(AVG(diastolic), 0),
		       COALESCE(MIN(systolic), 0), COALESCE(MAX(systolic), 0),
		       COALESCE(MIN(diastolic), 0), COALESCE(MAX(diastolic), 0)
		FROM vital_samples WHERE user_id = $1 AND measured_at >= $2`,
		userID, since,
	).Scan(&st.Count, &st.AvgSystolic, &st.AvgDiastolic,
		&st.MinSystolic, &st.MaxSystolic, &st.MinDiastolic, &st.MaxDiastolic)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

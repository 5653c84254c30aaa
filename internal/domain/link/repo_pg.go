package link

import (
	"context"

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

const linkCols = `id, patient_id, caregiver_id, active, linked_at, updated_at`

func scanLink(row pgx.Row) (*Link, error) {
	var l Link
	err := row.Scan(&l.ID, &l.PatientID, &l.CaregiverID, &l.Active, &l.LinkedAt, &l.UpdatedAt)
	return &l, err
}

func (r *repoPG) Create(ctx context.Context, l *Link) error {
	l.ID = uuid.New()
	l.Active = true
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO care_links (id, patient_id, caregiver_id, active)
		VALUES ($1,$2,$3,TRUE)
		RETURNING linked_at, updated_at`,
		l.ID, l.PatientID, l.CaregiverID,
	).Scan(&l.LinkedAt, &l.UpdatedAt)
}

func (r *repoPG) GetByPair(ctx context.Context, patientID, caregiverID uuid.UUID) (*Link, error) {
	l, err := scanLink(r.conn(ctx).QueryRow(ctx,
		`SELECT `+linkCols+` FROM care_links WHERE patient_id = $1 AND caregiver_id = $2`,
		patientID, caregiverID))
	if err == pgx.ErrNoRows {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// SetActive flips the active flag and refreshes linked_at on reactivation.
func (r *repoPG) SetActive(ctx context.Context, patientID, caregiverID uuid.UUID, active bool) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if active {
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE care_links SET active = TRUE, linked_at = NOW(), updated_at = NOW()
			WHERE patient_id = $1 AND caregiver_id = $2`, patientID, caregiverID)
	} else {
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE care_links SET active = FALSE, updated_at = NOW()
			WHERE patient_id = $1 AND caregiver_id = $2`, patientID, caregiverID)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) listActive(ctx context.Context, column string, id uuid.UUID) ([]*Link, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+linkCols+` FROM care_links WHERE `+column+` = $1 AND active = TRUE
		 ORDER BY linked_at ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *repoPG) ListActiveCaregivers(ctx context.Context, patientID uuid.UUID) ([]*Link, error) {
	return r.listActive(ctx, "patient_id", patientID)
}

func (r *repoPG) ListActivePatients(ctx context.Context, caregiverID uuid.UUID) ([]*Link, error) {
	return r.listActive(ctx, "caregiver_id", caregiverID)
}

func (r *repoPG) IsActivelyLinked(ctx context.Context, patientID, caregiverID uuid.UUID) (bool, error) {
	var linked bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM care_links
			WHERE patient_id = $1 AND caregiver_id = $2 AND active = TRUE
		)`, patientID, caregiverID).Scan(&linked)
	return linked, err
}

package photo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skinclinic/skinclinic/internal/platform/db"
)

type photoRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &photoRepoPG{pool: pool} }

func (r *photoRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const photoCols = `id, patient_id, object_key, content_type, size_bytes, description, uploaded_at`

func scanPhoto(row pgx.Row) (*Photo, error) {
	var p Photo
	err := row.Scan(&p.ID, &p.PatientID, &p.ObjectKey, &p.ContentType, &p.Size, &p.Description, &p.UploadedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *photoRepoPG) Create(ctx context.Context, p *Photo) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO skin_photos (id, patient_id, object_key, content_type, size_bytes, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uploaded_at`,
		p.ID, p.PatientID, p.ObjectKey, p.ContentType, p.Size, p.Description,
	).Scan(&p.UploadedAt)
}

func (r *photoRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Photo, error) {
	return scanPhoto(r.conn(ctx).QueryRow(ctx, `SELECT `+photoCols+` FROM skin_photos WHERE id = $1`, id))
}

func (r *photoRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Photo, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM skin_photos WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+photoCols+` FROM skin_photos
		WHERE patient_id = $1 ORDER BY uploaded_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *photoRepoPG) SharedWith(ctx context.Context, id, specialistUserID uuid.UUID) (bool, error) {
	var shared bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM consultation_photos cp
			JOIN consultations c ON c.id = cp.consultation_id
			JOIN specialists sp ON sp.id = c.specialist_id
			WHERE cp.photo_id = $1 AND sp.user_id = $2)`,
		id, specialistUserID).Scan(&shared)
	return shared, err
}

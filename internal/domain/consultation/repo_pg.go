package consultation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/skinclinic/skinclinic/internal/platform/db"
	"github.com/skinclinic/skinclinic/pkg/civil"
)

// =========== Consultation Repository ===========

type consultationRepoPG struct{ pool *pgxpool.Pool }

func NewConsultationRepoPG(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepoPG{pool: pool}
}

func (r *consultationRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const consultationSelect = `
	SELECT c.id, c.booking_id, c.patient_id, c.specialist_id, c.service_id, c.date, c.time,
		c.status, c.description, c.created_at,
		p.user_id, sp.user_id,
		TRIM(pu.first_name || ' ' || pu.last_name),
		TRIM(su.first_name || ' ' || su.last_name),
		s.name, s.price::text
	FROM consultations c
	JOIN patients p ON p.id = c.patient_id
	JOIN users pu ON pu.id = p.user_id
	JOIN specialists sp ON sp.id = c.specialist_id
	JOIN users su ON su.id = sp.user_id
	JOIN services s ON s.id = c.service_id`

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	var date pgtype.Date
	var tod pgtype.Time
	var specialistName, price string
	err := row.Scan(&c.ID, &c.BookingID, &c.PatientID, &c.SpecialistID, &c.ServiceID, &date, &tod,
		&c.Status, &c.Description, &c.CreatedAt,
		&c.PatientUserID, &c.SpecialistUserID,
		&c.PatientName, &specialistName, &c.ServiceName, &price)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Date = civil.DateFromPG(date)
	c.Time = civil.TimeFromPG(tod)
	c.SpecialistName = "Dr. " + specialistName
	if c.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	return &c, nil
}

func (r *consultationRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *consultationRepoPG) Insert(ctx context.Context, c *Consultation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = StatusScheduled
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultations (id, booking_id, patient_id, specialist_id, service_id, date, time, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (specialist_id, date, time) WHERE status IN ('scheduled', 'in_progress') DO NOTHING
		RETURNING created_at`,
		c.ID, c.BookingID, c.PatientID, c.SpecialistID, c.ServiceID, c.Date.PG(), c.Time.PG(),
		c.Status, c.Description,
	).Scan(&c.CreatedAt)
	if db.IsNoRows(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *consultationRepoPG) SlotTaken(ctx context.Context, specialistID uuid.UUID, date civil.Date, t civil.TimeOfDay) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM consultations
			WHERE specialist_id = $1 AND date = $2 AND time = $3
				AND status IN ('scheduled', 'in_progress'))`,
		specialistID, date.PG(), t.PG()).Scan(&taken)
	return taken, err
}

func (r *consultationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return scanConsultation(r.conn(ctx).QueryRow(ctx, consultationSelect+` WHERE c.id = $1`, id))
}

func (r *consultationRepoPG) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Consultation, error) {
	return scanConsultation(r.conn(ctx).QueryRow(ctx, consultationSelect+` WHERE c.booking_id = $1`, bookingID))
}

func (r *consultationRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM consultations WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.list(ctx, consultationSelect+`
		WHERE c.patient_id = $1 ORDER BY c.date DESC, c.time DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	return items, total, err
}

func (r *consultationRepoPG) ListBySpecialist(ctx context.Context, specialistID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM consultations WHERE specialist_id = $1`, specialistID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.list(ctx, consultationSelect+`
		WHERE c.specialist_id = $1 ORDER BY c.date DESC, c.time DESC LIMIT $2 OFFSET $3`,
		specialistID, limit, offset)
	return items, total, err
}

func (r *consultationRepoPG) ListBySpecialistBetween(ctx context.Context, specialistID uuid.UUID, from, to civil.Date) ([]*Consultation, error) {
	return r.list(ctx, consultationSelect+`
		WHERE c.specialist_id = $1 AND c.date BETWEEN $2 AND $3
		ORDER BY c.date, c.time`,
		specialistID, from.PG(), to.PG())
}

func (r *consultationRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE consultations SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *consultationRepoPG) AttachPhotos(ctx context.Context, consultationID, patientID uuid.UUID, photoIDs []uuid.UUID) (int, error) {
	ids := make([]string, len(photoIDs))
	for i, id := range photoIDs {
		ids[i] = id.String()
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consultation_photos (consultation_id, photo_id)
		SELECT $1, id FROM skin_photos WHERE id = ANY($2::uuid[]) AND patient_id = $3
		ON CONFLICT DO NOTHING`,
		consultationID, ids, patientID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *consultationRepoPG) PhotoIDs(ctx context.Context, consultationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT cp.photo_id FROM consultation_photos cp
		JOIN skin_photos sp ON sp.id = cp.photo_id
		WHERE cp.consultation_id = $1 ORDER BY sp.uploaded_at`, consultationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// =========== Note Repository ===========

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository { return &noteRepoPG{pool: pool} }

func (r *noteRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *noteRepoPG) Get(ctx context.Context, consultationID uuid.UUID) (*Note, error) {
	var n Note
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, consultation_id, content, created_at, updated_at
		FROM consultation_notes WHERE consultation_id = $1`, consultationID,
	).Scan(&n.ID, &n.ConsultationID, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *noteRepoPG) Upsert(ctx context.Context, n *Note) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultation_notes (id, consultation_id, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (consultation_id) DO UPDATE
			SET content = EXCLUDED.content, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		uuid.New(), n.ConsultationID, n.Content,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

// =========== Prescription Repository ===========

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (id, consultation_id, medication_name, dosage, frequency, duration, instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		p.ID, p.ConsultationID, p.MedicationName, p.Dosage, p.Frequency, p.Duration, p.Instructions,
	).Scan(&p.CreatedAt)
}

func (r *prescriptionRepoPG) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, consultation_id, medication_name, dosage, frequency, duration, instructions, created_at
		FROM prescriptions WHERE consultation_id = $1 ORDER BY created_at`, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(&p.ID, &p.ConsultationID, &p.MedicationName, &p.Dosage, &p.Frequency,
			&p.Duration, &p.Instructions, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

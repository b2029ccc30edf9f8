package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skinclinic/skinclinic/internal/platform/db"
	"github.com/skinclinic/skinclinic/pkg/civil"
)

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const userCols = `id, email, password_hash, first_name, last_name, role, is_active, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.IsActive, &u.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.IsActive).Scan(&u.CreatedAt)
	if db.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *userRepoPG) UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET first_name = $2, last_name = $3 WHERE id = $1`, id, firstName, lastName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const patientCols = `p.id, p.user_id, p.phone, p.date_of_birth, p.medical_history,
	u.first_name, u.last_name, u.email`

const patientFrom = ` FROM patients p JOIN users u ON u.id = p.user_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var dob pgtype.Date
	err := row.Scan(&p.ID, &p.UserID, &p.Phone, &dob, &p.MedicalHistory, &p.FirstName, &p.LastName, &p.Email)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.DateOfBirth = civil.DateFromPG(dob)
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, user_id, phone, date_of_birth, medical_history)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.UserID, p.Phone, p.DateOfBirth.PG(), p.MedicalHistory)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+patientFrom+` WHERE p.id = $1`, id))
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+patientFrom+` WHERE p.user_id = $1`, userID))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET phone = $2, date_of_birth = $3, medical_history = $4
		WHERE id = $1`,
		p.ID, p.Phone, p.DateOfBirth.PG(), p.MedicalHistory)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Specialist Repository ===========

type specialistRepoPG struct{ pool *pgxpool.Pool }

func NewSpecialistRepoPG(pool *pgxpool.Pool) SpecialistRepository {
	return &specialistRepoPG{pool: pool}
}

func (r *specialistRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const specialistCols = `s.id, s.user_id, s.specialization, s.bio, s.years_of_experience,
	s.qualification, s.profile_image_key, s.is_available, u.first_name, u.last_name, u.email`

const specialistFrom = ` FROM specialists s JOIN users u ON u.id = s.user_id`

func scanSpecialist(row pgx.Row) (*Specialist, error) {
	var s Specialist
	err := row.Scan(&s.ID, &s.UserID, &s.Specialization, &s.Bio, &s.YearsOfExperience,
		&s.Qualification, &s.ProfileImageKey, &s.IsAvailable, &s.FirstName, &s.LastName, &s.Email)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *specialistRepoPG) Create(ctx context.Context, s *Specialist) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO specialists (id, user_id, specialization, bio, years_of_experience,
			qualification, profile_image_key, is_available)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.UserID, s.Specialization, s.Bio, s.YearsOfExperience,
		s.Qualification, s.ProfileImageKey, s.IsAvailable)
	return err
}

func (r *specialistRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Specialist, error) {
	return scanSpecialist(r.conn(ctx).QueryRow(ctx, `SELECT `+specialistCols+specialistFrom+` WHERE s.id = $1`, id))
}

func (r *specialistRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Specialist, error) {
	return scanSpecialist(r.conn(ctx).QueryRow(ctx, `SELECT `+specialistCols+specialistFrom+` WHERE s.user_id = $1`, userID))
}

func (r *specialistRepoPG) List(ctx context.Context, f SpecialistFilter, limit, offset int) ([]*Specialist, int, error) {
	where := []string{"u.is_active"}
	var args []interface{}
	idx := 1

	if f.Specialization != "" {
		where = append(where, fmt.Sprintf("s.specialization ILIKE $%d", idx))
		args = append(args, "%"+f.Specialization+"%")
		idx++
	}
	if f.AvailableOnly {
		where = append(where, "s.is_available")
	}
	cond := ` WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+specialistFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + specialistCols + specialistFrom + cond +
		fmt.Sprintf(` ORDER BY u.last_name, u.first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Specialist
	for rows.Next() {
		s, err := scanSpecialist(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *specialistRepoPG) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE specialists SET is_available = $2 WHERE id = $1`, id, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

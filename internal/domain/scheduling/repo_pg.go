package scheduling

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skinclinic/skinclinic/internal/platform/db"
	"github.com/skinclinic/skinclinic/pkg/civil"
)

// =========== Availability Schedule Repository ===========

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

func (r *scheduleRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const schedCols = `id, specialist_id, day_of_week, start_time, end_time, is_available`

func scanSchedule(row pgx.Row) (*AvailabilitySchedule, error) {
	var a AvailabilitySchedule
	var start, end pgtype.Time
	err := row.Scan(&a.ID, &a.SpecialistID, &a.DayOfWeek, &start, &end, &a.IsAvailable)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.StartTime = civil.TimeFromPG(start)
	a.EndTime = civil.TimeFromPG(end)
	return &a, nil
}

func (r *scheduleRepoPG) Upsert(ctx context.Context, a *AvailabilitySchedule) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO availability_schedules (id, specialist_id, day_of_week, start_time, end_time, is_available)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT ON CONSTRAINT availability_one_per_day DO UPDATE
			SET start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				is_available = EXCLUDED.is_available
		RETURNING id`,
		uuid.New(), a.SpecialistID, a.DayOfWeek, a.StartTime.PG(), a.EndTime.PG(), a.IsAvailable).Scan(&a.ID)
}

func (r *scheduleRepoPG) GetForDay(ctx context.Context, specialistID uuid.UUID, day int) (*AvailabilitySchedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+schedCols+` FROM availability_schedules WHERE specialist_id = $1 AND day_of_week = $2`,
		specialistID, day))
}

func (r *scheduleRepoPG) ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]*AvailabilitySchedule, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+schedCols+` FROM availability_schedules WHERE specialist_id = $1 ORDER BY day_of_week`,
		specialistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AvailabilitySchedule
	for rows.Next() {
		a, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *scheduleRepoPG) DeleteDay(ctx context.Context, specialistID uuid.UUID, day int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM availability_schedules WHERE specialist_id = $1 AND day_of_week = $2`, specialistID, day)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Time Off Repository ===========

type timeOffRepoPG struct{ pool *pgxpool.Pool }

func NewTimeOffRepoPG(pool *pgxpool.Pool) TimeOffRepository { return &timeOffRepoPG{pool: pool} }

func (r *timeOffRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const timeOffCols = `id, specialist_id, start_date, end_date, reason`

func scanTimeOff(row pgx.Row) (*TimeOff, error) {
	var t TimeOff
	var start, end pgtype.Date
	err := row.Scan(&t.ID, &t.SpecialistID, &start, &end, &t.Reason)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.StartDate = civil.DateFromPG(start)
	t.EndDate = civil.DateFromPG(end)
	return &t, nil
}

func (r *timeOffRepoPG) Create(ctx context.Context, t *TimeOff) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO specialist_time_off (id, specialist_id, start_date, end_date, reason)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.SpecialistID, t.StartDate.PG(), t.EndDate.PG(), t.Reason)
	return err
}

func (r *timeOffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TimeOff, error) {
	return scanTimeOff(r.conn(ctx).QueryRow(ctx, `SELECT `+timeOffCols+` FROM specialist_time_off WHERE id = $1`, id))
}

func (r *timeOffRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM specialist_time_off WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *timeOffRepoPG) ListBySpecialist(ctx context.Context, specialistID uuid.UUID, from civil.Date) ([]*TimeOff, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+timeOffCols+` FROM specialist_time_off
		WHERE specialist_id = $1 AND end_date >= $2
		ORDER BY start_date`, specialistID, from.PG())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TimeOff
	for rows.Next() {
		t, err := scanTimeOff(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *timeOffRepoPG) Covering(ctx context.Context, specialistID uuid.UUID, date civil.Date) (*TimeOff, error) {
	return scanTimeOff(r.conn(ctx).QueryRow(ctx, `
		SELECT `+timeOffCols+` FROM specialist_time_off
		WHERE specialist_id = $1 AND start_date <= $2 AND end_date >= $2
		ORDER BY start_date LIMIT 1`, specialistID, date.PG()))
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const apptCols = `id, patient_id, date, time, service_name, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var d pgtype.Date
	var t pgtype.Time
	err := row.Scan(&a.ID, &a.PatientID, &d, &t, &a.ServiceName, &a.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Date = civil.DateFromPG(d)
	a.Time = civil.TimeFromPG(t)
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, date, time, service_name)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		a.ID, a.PatientID, a.Date.PG(), a.Time.PG(), a.ServiceName).Scan(&a.CreatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET date = $2, time = $3, service_name = $4
		WHERE id = $1`,
		a.ID, a.Date.PG(), a.Time.PG(), a.ServiceName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments WHERE patient_id = $1
		ORDER BY date, time LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/skinclinic/skinclinic/pkg/civil"
)

type ScheduleRepository interface {
	// Upsert writes the single row for (specialist, day_of_week).
	Upsert(ctx context.Context, a *AvailabilitySchedule) error
	GetForDay(ctx context.Context, specialistID uuid.UUID, day int) (*AvailabilitySchedule, error)
	ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]*AvailabilitySchedule, error)
	DeleteDay(ctx context.Context, specialistID uuid.UUID, day int) error
}

type TimeOffRepository interface {
	Create(ctx context.Context, t *TimeOff) error
	GetByID(ctx context.Context, id uuid.UUID) (*TimeOff, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListBySpecialist returns ranges ending on or after from.
	ListBySpecialist(ctx context.Context, specialistID uuid.UUID, from civil.Date) ([]*TimeOff, error)
	// Covering returns a range containing date, or ErrNotFound.
	Covering(ctx context.Context, specialistID uuid.UUID, date civil.Date) (*TimeOff, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}

package consultation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/internal/domain/scheduling"
	"github.com/skinclinic/skinclinic/pkg/civil"
)

// ScheduleReader looks up a specialist's window for a weekday.
type ScheduleReader interface {
	GetForDay(ctx context.Context, specialistID uuid.UUID, day int) (*scheduling.AvailabilitySchedule, error)
}

// TimeOffReader finds leave covering a date.
type TimeOffReader interface {
	Covering(ctx context.Context, specialistID uuid.UUID, date civil.Date) (*scheduling.TimeOff, error)
}

// SlotChecker reports whether an active consultation holds a slot.
type SlotChecker interface {
	SlotTaken(ctx context.Context, specialistID uuid.UUID, date civil.Date, t civil.TimeOfDay) (bool, error)
}

// Validator decides whether a specialist can be booked at a date and time.
type Validator struct {
	schedules ScheduleReader
	timeOff   TimeOffReader
	slots     SlotChecker
	loc       *time.Location
	now       func() time.Time
}

// NewValidator builds a Validator that evaluates "today" in loc.
func NewValidator(schedules ScheduleReader, timeOff TimeOffReader, slots SlotChecker, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{
		schedules: schedules,
		timeOff:   timeOff,
		slots:     slots,
		loc:       loc,
		now:       time.Now,
	}
}

// Today is the current date in the clinic timezone.
func (v *Validator) Today() civil.Date {
	return civil.Today(v.now(), v.loc)
}

// Check runs the booking rules in order and returns a *BookingError for the
// first one that fails. Other errors are lookup failures.
func (v *Validator) Check(ctx context.Context, sp *identity.Specialist, date civil.Date, t civil.TimeOfDay) error {
	if date.Before(v.Today()) {
		return &BookingError{Reason: ErrPastDate, Message: msgPastDate}
	}
	if !sp.IsAvailable {
		return unavailable(sp)
	}

	window, err := v.schedules.GetForDay(ctx, sp.ID, date.DayOfWeek())
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		return unavailable(sp)
	case err != nil:
		return err
	case !window.Covers(t):
		return unavailable(sp)
	}

	if _, err := v.timeOff.Covering(ctx, sp.ID, date); err == nil {
		return onLeave(sp)
	} else if !errors.Is(err, scheduling.ErrNotFound) {
		return err
	}

	taken, err := v.slots.SlotTaken(ctx, sp.ID, date, t)
	if err != nil {
		return err
	}
	if taken {
		return slotTaken()
	}
	return nil
}

func slotTaken() *BookingError {
	return &BookingError{Reason: ErrSlotTaken, Message: msgSlotTaken}
}

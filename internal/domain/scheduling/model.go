package scheduling

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skinclinic/skinclinic/pkg/civil"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPastAppointment  = errors.New("appointment date is in the past")
	ErrInvalidService   = errors.New("unknown appointment service")
	ErrInvalidTimeRange = errors.New("start must be before end")
	ErrInvalidSchedule  = errors.New("invalid schedule")
)

// User-facing messages for blocked appointment changes.
const (
	msgCannotEdit   = "Cannot edit past appointments"
	msgCannotCancel = "Cannot cancel past appointments"
	msgPastDate     = "Appointment date cannot be in the past."
)

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ParseDay accepts a day index (0=Monday..6=Sunday) or an English day name.
func ParseDay(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("day_of_week must be between 0 (Monday) and 6 (Sunday)")
		}
		return n, nil
	}
	for i, name := range dayNames {
		if strings.EqualFold(s, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid day %q", s)
}

// AvailabilitySchedule is a specialist's working window for one weekday.
// There is at most one per (specialist, day_of_week).
type AvailabilitySchedule struct {
	ID           uuid.UUID       `json:"id"`
	SpecialistID uuid.UUID       `json:"specialist_id"`
	DayOfWeek    int             `json:"day_of_week"`
	StartTime    civil.TimeOfDay `json:"start_time"`
	EndTime      civil.TimeOfDay `json:"end_time"`
	IsAvailable  bool            `json:"is_available"`
}

func (a *AvailabilitySchedule) DayName() string {
	if a.DayOfWeek < 0 || a.DayOfWeek > 6 {
		return ""
	}
	return dayNames[a.DayOfWeek]
}

// Covers reports whether t falls in the bookable window [start, end).
func (a *AvailabilitySchedule) Covers(t civil.TimeOfDay) bool {
	return a.IsAvailable && t.InRange(a.StartTime, a.EndTime)
}

// TimeOff is an inclusive date range during which a specialist is on leave.
type TimeOff struct {
	ID           uuid.UUID  `json:"id"`
	SpecialistID uuid.UUID  `json:"specialist_id"`
	StartDate    civil.Date `json:"start_date"`
	EndDate      civil.Date `json:"end_date"`
	Reason       string     `json:"reason"`
}

func (t *TimeOff) Contains(d civil.Date) bool {
	return d.Within(t.StartDate, t.EndDate)
}

// Appointment is a simple patient-requested visit, separate from the
// specialist-bound consultation flow.
type Appointment struct {
	ID          uuid.UUID       `json:"id"`
	PatientID   uuid.UUID       `json:"patient_id"`
	Date        civil.Date      `json:"date"`
	Time        civil.TimeOfDay `json:"time"`
	ServiceName string          `json:"service"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AppointmentServices are the services a simple appointment can request.
var AppointmentServices = map[string]bool{
	"Skin Consultation":    true,
	"Acne Treatment":       true,
	"Laser Therapy":        true,
	"Anti-Aging Solutions": true,
}

type ScheduleRequest struct {
	DayOfWeek   *int            `json:"day_of_week" validate:"omitempty,gte=0,lte=6"`
	StartTime   civil.TimeOfDay `json:"start_time"`
	EndTime     civil.TimeOfDay `json:"end_time"`
	IsAvailable *bool           `json:"is_available"`
}

type TimeOffRequest struct {
	StartDate civil.Date `json:"start_date"`
	EndDate   civil.Date `json:"end_date"`
	Reason    string     `json:"reason" validate:"max=500"`
}

type AppointmentRequest struct {
	Date        civil.Date      `json:"date"`
	Time        civil.TimeOfDay `json:"time"`
	ServiceName string          `json:"service" validate:"required"`
}

// PublicSchedule is what patients see before booking.
type PublicSchedule struct {
	SpecialistID uuid.UUID               `json:"specialist_id"`
	Name         string                  `json:"name"`
	IsAvailable  bool                    `json:"is_available"`
	Days         []*AvailabilitySchedule `json:"schedule"`
	TimeOff      []*TimeOff              `json:"time_off"`
}

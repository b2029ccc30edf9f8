package consultation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/pkg/civil"
)

var (
	ErrNotFound              = errors.New("consultation not found")
	ErrPastDate              = errors.New("consultation date is in the past")
	ErrSpecialistUnavailable = errors.New("specialist is not available at the requested time")
	ErrSpecialistOnLeave     = errors.New("specialist is on leave on the requested date")
	ErrSlotTaken             = errors.New("specialist already has a consultation in this slot")
	ErrInvalidTransition     = errors.New("status change not allowed")
	ErrInvalidPhoto          = errors.New("photo does not belong to the patient")
	ErrUnknownSpecialist     = errors.New("specialist does not exist")
	ErrUnknownService        = errors.New("service does not exist")
)

// User-facing booking rejection messages.
const (
	msgPastDate  = "Consultation date cannot be in the past."
	msgSlotTaken = "The specialist already has a consultation scheduled at this time. Please select a different time."
)

// BookingError is a rejected booking. It unwraps to one of the booking
// sentinels and carries the message shown to the patient.
type BookingError struct {
	Reason  error
	Message string
}

func (e *BookingError) Error() string { return e.Message }
func (e *BookingError) Unwrap() error { return e.Reason }

func unavailable(sp *identity.Specialist) *BookingError {
	return &BookingError{Reason: ErrSpecialistUnavailable, Message: sp.DisplayName() + " is not available at the selected time."}
}

func onLeave(sp *identity.Specialist) *BookingError {
	return &BookingError{Reason: ErrSpecialistOnLeave, Message: sp.DisplayName() + " is on leave on the selected date."}
}

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// transitions lists the allowed moves out of each non-terminal status.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusNoShow, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active statuses hold the specialist's slot.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusInProgress
}

// Consultation is a booked virtual consultation. Never deleted, only
// status-flagged.
type Consultation struct {
	ID           uuid.UUID       `json:"id"`
	BookingID    uuid.UUID       `json:"booking_id"`
	PatientID    uuid.UUID       `json:"patient_id"`
	SpecialistID uuid.UUID       `json:"specialist_id"`
	ServiceID    uuid.UUID       `json:"service_id"`
	Date         civil.Date      `json:"date"`
	Time         civil.TimeOfDay `json:"time"`
	Status       Status          `json:"status"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`

	PatientUserID    uuid.UUID       `json:"-"`
	SpecialistUserID uuid.UUID       `json:"-"`
	PatientName      string          `json:"patient_name"`
	SpecialistName   string          `json:"specialist_name"`
	ServiceName      string          `json:"service_name"`
	Price            decimal.Decimal `json:"price"`
	PhotoIDs         []uuid.UUID     `json:"photo_ids,omitempty"`
}

// IsUrgent reports whether the patient flagged the concern as urgent.
func (c *Consultation) IsUrgent() bool {
	return strings.Contains(strings.ToLower(c.Description), "urgent")
}

type Note struct {
	ID             uuid.UUID `json:"id"`
	ConsultationID uuid.UUID `json:"consultation_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Prescription struct {
	ID             uuid.UUID `json:"id"`
	ConsultationID uuid.UUID `json:"consultation_id"`
	MedicationName string    `json:"medication_name"`
	Dosage         string    `json:"dosage"`
	Frequency      string    `json:"frequency"`
	Duration       string    `json:"duration"`
	Instructions   string    `json:"instructions"`
	CreatedAt      time.Time `json:"created_at"`
}

type BookRequest struct {
	SpecialistID string           `json:"specialist_id" validate:"required,uuid"`
	ServiceID    string           `json:"service_id" validate:"required,uuid"`
	Date         civil.Date       `json:"date"`
	Time         *civil.TimeOfDay `json:"time" validate:"required"`
	Description  string           `json:"description" validate:"max=2000"`
	PhotoIDs     []string         `json:"photo_ids" validate:"max=10,dive,uuid"`
}

type NoteRequest struct {
	Notes string `json:"notes" form:"notes"`
}

type PrescriptionRequest struct {
	MedicationName string `json:"medication_name" validate:"required,max=200"`
	Dosage         string `json:"dosage" validate:"required,max=100"`
	Frequency      string `json:"frequency" validate:"required,max=100"`
	Duration       string `json:"duration" validate:"required,max=100"`
	Instructions   string `json:"instructions"`
}

// Details is the full view of one consultation.
type Details struct {
	*Consultation
	Patient       *identity.Patient `json:"patient,omitempty"`
	Note          *Note             `json:"note,omitempty"`
	Prescriptions []*Prescription   `json:"prescriptions"`
}

// Dashboard summarizes a specialist's day and week.
type Dashboard struct {
	Specialist     *identity.Specialist `json:"specialist"`
	IsAvailable    bool                 `json:"is_available"`
	Date           civil.Date           `json:"date"`
	Today          []*Consultation      `json:"today_consultations"`
	TodayCount     int                  `json:"today_count"`
	CompletedToday int                  `json:"completed_today"`
	UpcomingWeek   int                  `json:"upcoming_this_week"`
	Urgent         []*Consultation      `json:"urgent_consultations"`
}

// UrgentLimit caps the urgent list on the dashboard.
const UrgentLimit = 5

package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/internal/platform/db"
	"github.com/skinclinic/skinclinic/internal/platform/events"
	"github.com/skinclinic/skinclinic/internal/platform/validate"
	"github.com/skinclinic/skinclinic/pkg/civil"
)

// Profiles resolves the caller's role profile.
type Profiles interface {
	PatientForUser(ctx context.Context, userID uuid.UUID) (*identity.Patient, error)
	SpecialistForUser(ctx context.Context, userID uuid.UUID) (*identity.Specialist, error)
	GetSpecialist(ctx context.Context, id uuid.UUID) (*identity.Specialist, error)
}

type Service struct {
	schedules    ScheduleRepository
	timeOff      TimeOffRepository
	appointments AppointmentRepository
	profiles     Profiles
	tx           db.TxRunner
	events       events.Publisher
	loc          *time.Location
	now          func() time.Time
	logger       zerolog.Logger
}

func NewService(sched ScheduleRepository, timeOff TimeOffRepository, appt AppointmentRepository,
	profiles Profiles, tx db.TxRunner, pub events.Publisher, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		schedules:    sched,
		timeOff:      timeOff,
		appointments: appt,
		profiles:     profiles,
		tx:           tx,
		events:       pub,
		loc:          loc,
		now:          time.Now,
		logger:       logger.With().Str("component", "scheduling").Logger(),
	}
}

func (s *Service) today() civil.Date {
	return civil.Today(s.now(), s.loc)
}

// -- Weekly availability --

func (s *Service) MySchedule(ctx context.Context, userID uuid.UUID) ([]*AvailabilitySchedule, error) {
	sp, err := s.profiles.SpecialistForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.schedules.ListBySpecialist(ctx, sp.ID)
}

func buildDay(specialistID uuid.UUID, day int, req *ScheduleRequest) (*AvailabilitySchedule, error) {
	if day < 0 || day > 6 {
		return nil, fmt.Errorf("%w: day_of_week must be between 0 (Monday) and 6 (Sunday)", ErrInvalidSchedule)
	}
	if req.StartTime >= req.EndTime {
		return nil, fmt.Errorf("%w: %s start_time %s is not before end_time %s", ErrInvalidSchedule, dayNames[day], req.StartTime, req.EndTime)
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	return &AvailabilitySchedule{
		SpecialistID: specialistID,
		DayOfWeek:    day,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		IsAvailable:  available,
	}, nil
}

// SetDay creates or replaces the caller's window for one weekday.
func (s *Service) SetDay(ctx context.Context, userID uuid.UUID, day int, req *ScheduleRequest) (*AvailabilitySchedule, error) {
	sp, err := s.profiles.SpecialistForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	a, err := buildDay(sp.ID, day, req)
	if err != nil {
		return nil, err
	}
	if err := s.schedules.Upsert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetWeek upserts several weekdays atomically. Days not listed are kept.
func (s *Service) SetWeek(ctx context.Context, userID uuid.UUID, reqs []ScheduleRequest) ([]*AvailabilitySchedule, error) {
	sp, err := s.profiles.SpecialistForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool, len(reqs))
	days := make([]*AvailabilitySchedule, 0, len(reqs))
	for i := range reqs {
		if reqs[i].DayOfWeek == nil {
			return nil, fmt.Errorf("%w: entry %d: day_of_week is required", ErrInvalidSchedule, i)
		}
		day := *reqs[i].DayOfWeek
		if seen[day] {
			return nil, fmt.Errorf("%w: entry %d: day_of_week %d listed twice", ErrInvalidSchedule, i, day)
		}
		seen[day] = true
		a, err := buildDay(sp.ID, day, &reqs[i])
		if err != nil {
			return nil, err
		}
		days = append(days, a)
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		for _, a := range days {
			if err := s.schedules.Upsert(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.schedules.ListBySpecialist(ctx, sp.ID)
}

func (s *Service) ClearDay(ctx context.Context, userID uuid.UUID, day int) error {
	sp, err := s.profiles.SpecialistForUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.schedules.DeleteDay(ctx, sp.ID, day)
}

// -- Time off --

func (s *Service) MyTimeOff(ctx context.Context, userID uuid.UUID) ([]*TimeOff, error) {
	sp, err := s.profiles.SpecialistForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.timeOff.ListBySpecialist(ctx, sp.ID, s.today())
}

func (s *Service) AddTimeOff(ctx context.Context, userID uuid.UUID, req *TimeOffRequest) (*TimeOff, error) {
	sp, err := s.profiles.SpecialistForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, validate.FieldErrors{"start_date": "This field is required.", "end_date": "This field is required."}
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, ErrInvalidTimeRange
	}
	t := &TimeOff{
		SpecialistID: sp.ID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Reason:       req.Reason,
	}
	if err := s.timeOff.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info().Str("specialist_id", sp.ID.String()).
		Str("start", t.StartDate.String()).Str("end", t.EndDate.String()).Msg("time off added")
	return t, nil
}

func (s *Service) RemoveTimeOff(ctx context.Context, userID, id uuid.UUID) error {
	sp, err := s.profiles.SpecialistForUser(ctx, userID)
	if err != nil {
		return err
	}
	t, err := s.timeOff.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.SpecialistID != sp.ID {
		return ErrNotFound
	}
	return s.timeOff.Delete(ctx, id)
}

// PublicSchedule returns a specialist's weekly windows and upcoming leave.
func (s *Service) PublicSchedule(ctx context.Context, specialistID uuid.UUID) (*PublicSchedule, error) {
	sp, err := s.profiles.GetSpecialist(ctx, specialistID)
	if err != nil {
		return nil, err
	}
	days, err := s.schedules.ListBySpecialist(ctx, sp.ID)
	if err != nil {
		return nil, err
	}
	off, err := s.timeOff.ListBySpecialist(ctx, sp.ID, s.today())
	if err != nil {
		return nil, err
	}
	return &PublicSchedule{
		SpecialistID: sp.ID,
		Name:         sp.DisplayName(),
		IsAvailable:  sp.IsAvailable,
		Days:         days,
		TimeOff:      off,
	}, nil
}

// -- Appointments --

func (s *Service) checkAppointment(req *AppointmentRequest) error {
	if req.Date.IsZero() {
		return validate.FieldErrors{"date": "This field is required."}
	}
	if !AppointmentServices[req.ServiceName] {
		return ErrInvalidService
	}
	if req.Date.Before(s.today()) {
		return ErrPastAppointment
	}
	return nil
}

func (s *Service) CreateAppointment(ctx context.Context, userID uuid.UUID, req *AppointmentRequest) (*Appointment, error) {
	p, err := s.profiles.PatientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAppointment(req); err != nil {
		return nil, err
	}
	a := &Appointment{
		PatientID:   p.ID,
		Date:        req.Date,
		Time:        req.Time,
		ServiceName: req.ServiceName,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	s.publish(ctx, a)
	return a, nil
}

func (s *Service) publish(ctx context.Context, a *Appointment) {
	evt, err := events.NewEvent(events.AppointmentScheduled, a)
	if err == nil {
		err = s.events.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("appointment event not published")
	}
}

// owned loads an appointment and hides other patients' records.
func (s *Service) owned(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	p, err := s.profiles.PatientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PatientID != p.ID {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) GetAppointment(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	return s.owned(ctx, userID, id)
}

func (s *Service) ListAppointments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	p, err := s.profiles.PatientForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return s.appointments.ListByPatient(ctx, p.ID, limit, offset)
}

// UpdateAppointment reschedules an appointment. Past appointments are frozen.
func (s *Service) UpdateAppointment(ctx context.Context, userID, id uuid.UUID, req *AppointmentRequest) (*Appointment, error) {
	a, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if a.Date.Before(s.today()) {
		return nil, errPastEdit
	}
	if err := s.checkAppointment(req); err != nil {
		return nil, err
	}
	a.Date, a.Time, a.ServiceName = req.Date, req.Time, req.ServiceName
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// CancelAppointment deletes an upcoming appointment.
func (s *Service) CancelAppointment(ctx context.Context, userID, id uuid.UUID) error {
	a, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if a.Date.Before(s.today()) {
		return errPastCancel
	}
	return s.appointments.Delete(ctx, id)
}

var (
	errPastEdit   = fmt.Errorf("%w: edit", ErrPastAppointment)
	errPastCancel = fmt.Errorf("%w: cancel", ErrPastAppointment)
)

// pastMessage picks the user message for a blocked change.
func pastMessage(err error) string {
	switch {
	case errors.Is(err, errPastEdit):
		return msgCannotEdit
	case errors.Is(err, errPastCancel):
		return msgCannotCancel
	default:
		return msgPastDate
	}
}

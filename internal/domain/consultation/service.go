package consultation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skinclinic/skinclinic/internal/domain/catalog"
	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/internal/domain/notification"
	"github.com/skinclinic/skinclinic/internal/platform/auth"
	"github.com/skinclinic/skinclinic/internal/platform/db"
	"github.com/skinclinic/skinclinic/internal/platform/events"
	"github.com/skinclinic/skinclinic/internal/platform/validate"
)

// Profiles resolves role profiles for the caller and the booked parties.
type Profiles interface {
	PatientForUser(ctx context.Context, userID uuid.UUID) (*identity.Patient, error)
	SpecialistForUser(ctx context.Context, userID uuid.UUID) (*identity.Specialist, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetSpecialist(ctx context.Context, id uuid.UUID) (*identity.Specialist, error)
}

// Services looks up catalog entries.
type Services interface {
	Get(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
}

// Notifier creates in-app notifications from templates.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, templateID string, data map[string]string) (*notification.Notification, error)
}

type Service struct {
	consultations ConsultationRepository
	notes         NoteRepository
	prescriptions PrescriptionRepository
	validator     *Validator
	profiles      Profiles
	services      Services
	notifier      Notifier
	tx            db.TxRunner
	events        events.Publisher
	logger        zerolog.Logger
}

func NewService(consultations ConsultationRepository, notes NoteRepository, prescriptions PrescriptionRepository,
	validator *Validator, profiles Profiles, services Services, notifier Notifier,
	tx db.TxRunner, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		consultations: consultations,
		notes:         notes,
		prescriptions: prescriptions,
		validator:     validator,
		profiles:      profiles,
		services:      services,
		notifier:      notifier,
		tx:            tx,
		events:        pub,
		logger:        logger.With().Str("component", "consultation").Logger(),
	}
}

// -- Booking --

// Book validates the requested slot and stores a scheduled consultation for
// the calling patient, attaching any of their photos.
func (s *Service) Book(ctx context.Context, userID uuid.UUID, req *BookRequest) (*Consultation, error) {
	patient, err := s.profiles.PatientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	missing := validate.FieldErrors{}
	if req.Date.IsZero() {
		missing["date"] = "This field is required."
	}
	if req.Time == nil {
		missing["time"] = "This field is required."
	}
	if len(missing) > 0 {
		return nil, missing
	}
	at := *req.Time

	sp, err := s.profiles.GetSpecialist(ctx, uuid.MustParse(req.SpecialistID))
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrUnknownSpecialist
	}
	if err != nil {
		return nil, err
	}
	svc, err := s.services.Get(ctx, uuid.MustParse(req.ServiceID))
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrUnknownService
	}
	if err != nil {
		return nil, err
	}

	if err := s.validator.Check(ctx, sp, req.Date, at); err != nil {
		return nil, err
	}

	photoIDs := make([]uuid.UUID, 0, len(req.PhotoIDs))
	seen := make(map[uuid.UUID]bool, len(req.PhotoIDs))
	for _, raw := range req.PhotoIDs {
		id := uuid.MustParse(raw)
		if !seen[id] {
			seen[id] = true
			photoIDs = append(photoIDs, id)
		}
	}

	c := &Consultation{
		ID:               uuid.New(),
		BookingID:        uuid.New(),
		PatientID:        patient.ID,
		SpecialistID:     sp.ID,
		ServiceID:        svc.ID,
		Date:             req.Date,
		Time:             at,
		Status:           StatusScheduled,
		Description:      req.Description,
		PatientUserID:    patient.UserID,
		SpecialistUserID: sp.UserID,
		PatientName:      patient.FullName(),
		SpecialistName:   sp.DisplayName(),
		ServiceName:      svc.Name,
		Price:            svc.Price,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.consultations.Insert(ctx, c); err != nil {
			return err
		}
		if len(photoIDs) == 0 {
			return nil
		}
		n, err := s.consultations.AttachPhotos(ctx, c.ID, patient.ID, photoIDs)
		if err != nil {
			return err
		}
		if n != len(photoIDs) {
			return ErrInvalidPhoto
		}
		return nil
	})
	if errors.Is(err, ErrSlotTaken) {
		return nil, slotTaken()
	}
	if err != nil {
		return nil, err
	}
	c.PhotoIDs = photoIDs

	s.logger.Info().
		Str("booking_id", c.BookingID.String()).
		Str("specialist_id", sp.ID.String()).
		Str("date", c.Date.String()).
		Str("time", c.Time.String()).
		Msg("consultation booked")

	s.notify(ctx, sp.UserID, notification.TplConsultationBooked, c)
	s.publish(ctx, events.ConsultationBooked, c)
	return c, nil
}

func templateData(c *Consultation) map[string]string {
	return map[string]string{
		"consultation_id": c.ID.String(),
		"booking_id":      c.BookingID.String(),
		"patient_name":    c.PatientName,
		"specialist_name": c.SpecialistName,
		"service":         c.ServiceName,
		"date":            c.Date.String(),
		"time":            c.Time.String(),
		"status":          string(c.Status),
	}
}

// notify and publish are best effort; the booking is already committed.
func (s *Service) notify(ctx context.Context, userID uuid.UUID, templateID string, c *Consultation) {
	if _, err := s.notifier.Notify(ctx, userID, templateID, templateData(c)); err != nil {
		s.logger.Warn().Err(err).Str("consultation_id", c.ID.String()).Str("template", templateID).Msg("notification failed")
	}
}

func (s *Service) publish(ctx context.Context, eventType string, c *Consultation) {
	evt, err := events.NewEvent(eventType, c)
	if err == nil {
		err = s.events.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("consultation_id", c.ID.String()).Str("event", eventType).Msg("event not published")
	}
}

// -- Reads --

// Confirmation returns the caller's consultation by booking id.
func (s *Service) Confirmation(ctx context.Context, userID, bookingID uuid.UUID) (*Consultation, error) {
	patient, err := s.profiles.PatientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, err := s.consultations.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if c.PatientID != patient.ID {
		return nil, ErrNotFound
	}
	if c.PhotoIDs, err = s.consultations.PhotoIDs(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// ForPatient returns one of the caller's consultations.
func (s *Service) ForPatient(ctx context.Context, userID, id uuid.UUID) (*Consultation, *identity.Patient, error) {
	patient, err := s.profiles.PatientForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if c.PatientID != patient.ID {
		return nil, nil, ErrNotFound
	}
	return c, patient, nil
}

// List returns the caller's consultations, newest first. role selects the
// patient or specialist side.
func (s *Service) List(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]*Consultation, int, error) {
	if role == auth.RoleSpecialist {
		sp, err := s.profiles.SpecialistForUser(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		return s.consultations.ListBySpecialist(ctx, sp.ID, limit, offset)
	}
	patient, err := s.profiles.PatientForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return s.consultations.ListByPatient(ctx, patient.ID, limit, offset)
}

// party loads a consultation visible to the caller and reports whether the
// caller is its specialist.
func (s *Service) party(ctx context.Context, userID, id uuid.UUID) (*Consultation, bool, error) {
	c, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	switch userID {
	case c.SpecialistUserID:
		return c, true, nil
	case c.PatientUserID:
		return c, false, nil
	default:
		return nil, false, ErrNotFound
	}
}

// assigned loads a consultation the caller is the specialist on.
func (s *Service) assigned(ctx context.Context, userID, id uuid.UUID) (*Consultation, error) {
	c, isSpecialist, err := s.party(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !isSpecialist {
		return nil, ErrNotFound
	}
	return c, nil
}

// Details returns a consultation with its photos, prescriptions and, for
// the specialist, the note and patient record.
func (s *Service) Details(ctx context.Context, userID, id uuid.UUID) (*Details, error) {
	c, isSpecialist, err := s.party(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	d := &Details{Consultation: c}
	if c.PhotoIDs, err = s.consultations.PhotoIDs(ctx, c.ID); err != nil {
		return nil, err
	}
	if d.Prescriptions, err = s.prescriptions.ListByConsultation(ctx, c.ID); err != nil {
		return nil, err
	}
	if !isSpecialist {
		return d, nil
	}
	if d.Patient, err = s.profiles.GetPatient(ctx, c.PatientID); err != nil {
		return nil, err
	}
	d.Note, err = s.notes.Get(ctx, c.ID)
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	return d, err
}

// -- Notes --

func (s *Service) GetNote(ctx context.Context, userID, id uuid.UUID) (*Note, error) {
	c, err := s.assigned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	n, err := s.notes.Get(ctx, c.ID)
	if errors.Is(err, ErrNotFound) {
		return &Note{ConsultationID: c.ID}, nil
	}
	return n, err
}

func (s *Service) UpdateNote(ctx context.Context, userID, id uuid.UUID, content string) (*Note, error) {
	c, err := s.assigned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	n := &Note{ConsultationID: c.ID, Content: content}
	if err := s.notes.Upsert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// -- Status transitions --

// Transition moves a consultation to next. Only the specialist may start,
// complete or mark a no-show; either party may cancel.
func (s *Service) Transition(ctx context.Context, userID, id uuid.UUID, next Status) (*Consultation, error) {
	c, isSpecialist, err := s.party(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !isSpecialist && next != StatusCancelled {
		return nil, identity.ErrNotSpecialist
	}
	if !c.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, c.Status, next)
	}
	if err := s.consultations.UpdateStatus(ctx, c.ID, c.Status, next); err != nil {
		return nil, err
	}
	prev := c.Status
	c.Status = next

	s.logger.Info().
		Str("consultation_id", c.ID.String()).
		Str("from", string(prev)).
		Str("to", string(next)).
		Msg("consultation status changed")

	switch {
	case next == StatusCancelled && isSpecialist:
		s.notify(ctx, c.PatientUserID, notification.TplConsultationCancelled, c)
	case next == StatusCancelled:
		s.notify(ctx, c.SpecialistUserID, notification.TplConsultationCancelled, c)
	default:
		s.notify(ctx, c.PatientUserID, notification.TplConsultationStatus, c)
	}
	s.publish(ctx, events.ConsultationStatus, c)
	return c, nil
}

// -- Prescriptions --

func (s *Service) AddPrescription(ctx context.Context, userID, id uuid.UUID, req *PrescriptionRequest) (*Prescription, error) {
	c, err := s.assigned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusCancelled || c.Status == StatusNoShow {
		return nil, fmt.Errorf("%w: consultation is %s", ErrInvalidTransition, c.Status)
	}
	p := &Prescription{
		ConsultationID: c.ID,
		MedicationName: req.MedicationName,
		Dosage:         req.Dosage,
		Frequency:      req.Frequency,
		Duration:       req.Duration,
		Instructions:   req.Instructions,
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, err
	}
	data := templateData(c)
	data["medication"] = p.MedicationName
	if _, err := s.notifier.Notify(ctx, c.PatientUserID, notification.TplPrescriptionAdded, data); err != nil {
		s.logger.Warn().Err(err).Str("consultation_id", c.ID.String()).Msg("prescription notification failed")
	}
	return p, nil
}

func (s *Service) ListPrescriptions(ctx context.Context, userID, id uuid.UUID) ([]*Prescription, error) {
	c, _, err := s.party(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.prescriptions.ListByConsultation(ctx, c.ID)
}

// -- Dashboard --

// Dashboard summarizes the calling specialist's consultations for today and
// the rest of the week (through Sunday).
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	sp, err := s.profiles.SpecialistForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.validator.Today()
	endOfWeek := today.AddDays(6 - today.DayOfWeek())

	week, err := s.consultations.ListBySpecialistBetween(ctx, sp.ID, today, endOfWeek)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Specialist:  sp,
		IsAvailable: sp.IsAvailable,
		Date:        today,
		Today:       []*Consultation{},
		Urgent:      []*Consultation{},
	}
	for _, c := range week {
		if c.Status == StatusScheduled {
			d.UpcomingWeek++
		}
		if c.Date != today {
			continue
		}
		d.Today = append(d.Today, c)
		if c.Status == StatusCompleted {
			d.CompletedToday++
		}
		if c.Status == StatusScheduled && c.IsUrgent() && len(d.Urgent) < UrgentLimit {
			d.Urgent = append(d.Urgent, c)
		}
	}
	d.TodayCount = len(d.Today)
	return d, nil
}

package consultation

import (
	"context"

	"github.com/google/uuid"

	"github.com/skinclinic/skinclinic/pkg/civil"
)

type ConsultationRepository interface {
	// Insert stores c unless an active consultation already holds its
	// slot, in which case it returns ErrSlotTaken.
	Insert(ctx context.Context, c *Consultation) error
	SlotTaken(ctx context.Context, specialistID uuid.UUID, date civil.Date, t civil.TimeOfDay) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Consultation, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error)
	ListBySpecialist(ctx context.Context, specialistID uuid.UUID, limit, offset int) ([]*Consultation, int, error)
	// ListBySpecialistBetween returns consultations dated within [from, to]
	// ordered by date and time.
	ListBySpecialistBetween(ctx context.Context, specialistID uuid.UUID, from, to civil.Date) ([]*Consultation, error)
	// UpdateStatus moves a consultation from one status to another and
	// returns ErrInvalidTransition if it is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	// AttachPhotos links photos owned by patientID and returns how many were linked.
	AttachPhotos(ctx context.Context, consultationID, patientID uuid.UUID, photoIDs []uuid.UUID) (int, error)
	PhotoIDs(ctx context.Context, consultationID uuid.UUID) ([]uuid.UUID, error)
}

type NoteRepository interface {
	Get(ctx context.Context, consultationID uuid.UUID) (*Note, error)
	Upsert(ctx context.Context, n *Note) error
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*Prescription, error)
}

package photo

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Photo) error
	GetByID(ctx context.Context, id uuid.UUID) (*Photo, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Photo, int, error)
	// SharedWith reports whether the photo is attached to a consultation
	// whose specialist is specialistUserID.
	SharedWith(ctx context.Context, id, specialistUserID uuid.UUID) (bool, error)
}

package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) error
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
}

type SpecialistRepository interface {
	Create(ctx context.Context, s *Specialist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Specialist, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Specialist, error)
	List(ctx context.Context, f SpecialistFilter, limit, offset int) ([]*Specialist, int, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/skinclinic/skinclinic/internal/platform/db"
)

// ErrInUse is returned when deleting a service that consultations reference.
var ErrInUse = errors.New("service is referenced by consultations")

type Catalog struct {
	services ServiceRepository
}

func NewCatalog(services ServiceRepository) *Catalog {
	return &Catalog{services: services}
}

func (s *Catalog) validate(req *ServiceRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if req.Price.IsNegative() {
		return fmt.Errorf("price must not be negative")
	}
	if !req.Price.Equal(req.Price.Round(2)) {
		return fmt.Errorf("price must have at most 2 decimal places")
	}
	if req.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	return nil
}

func (s *Catalog) Create(ctx context.Context, req *ServiceRequest) (*Service, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	svc := &Service{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Price:           req.Price.Round(2),
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.services.Create(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Catalog) Get(ctx context.Context, id uuid.UUID) (*Service, error) {
	return s.services.GetByID(ctx, id)
}

func (s *Catalog) Update(ctx context.Context, id uuid.UUID, req *ServiceRequest) (*Service, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	svc := &Service{
		ID:              id,
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Price:           req.Price.Round(2),
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.services.Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Catalog) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.services.Delete(ctx, id)
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	return err
}

func (s *Catalog) List(ctx context.Context, limit, offset int) ([]*Service, int, error) {
	return s.services.List(ctx, limit, offset)
}

package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/internal/platform/auth"
	"github.com/skinclinic/skinclinic/internal/platform/blobstore"
)

// Patients resolves the caller's patient profile.
type Patients interface {
	PatientForUser(ctx context.Context, userID uuid.UUID) (*identity.Patient, error)
}

type Service struct {
	repo     Repository
	blobs    blobstore.BlobStore
	patients Patients
	logger   zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.BlobStore, patients Patients, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		patients: patients,
		logger:   logger.With().Str("component", "photo").Logger(),
	}
}

// objectKey namespaces blobs by patient and keeps the upload's extension.
func objectKey(patientID, photoID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("skin-photos/%s/%s%s", patientID, photoID, ext)
}

// Upload stores a patient's photo in the blob store and records it.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, in Upload, content io.Reader) (*Photo, error) {
	patient, err := s.patients.PatientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := blobstore.ValidateUpload(in.ContentType, in.Size); err != nil {
		return nil, err
	}

	p := &Photo{
		ID:          uuid.New(),
		PatientID:   patient.ID,
		ContentType: in.ContentType,
		Description: in.Description,
	}
	p.ObjectKey = objectKey(patient.ID, p.ID, in.Filename)

	info, err := s.blobs.Put(ctx, p.ObjectKey, in.ContentType, content, in.Size)
	if err != nil {
		return nil, err
	}
	p.Size = info.Size

	if err := s.repo.Create(ctx, p); err != nil {
		if derr := s.blobs.Delete(ctx, p.ObjectKey); derr != nil {
			s.logger.Error().Err(derr).Str("key", p.ObjectKey).Msg("orphaned photo blob")
		}
		return nil, err
	}
	s.logger.Info().Str("photo_id", p.ID.String()).Str("patient_id", patient.ID.String()).
		Int64("size", p.Size).Msg("photo uploaded")
	return p, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Photo, int, error) {
	patient, err := s.patients.PatientForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patient.ID, limit, offset)
}

// Open returns the photo bytes to its owner or to a specialist it was
// shared with through a consultation. Callers must close the reader.
func (s *Service) Open(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (io.ReadCloser, *Photo, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(ctx, userID, role, p); err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Get(ctx, p.ObjectKey)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return rc, p, nil
}

func (s *Service) authorize(ctx context.Context, userID uuid.UUID, role string, p *Photo) error {
	if role == auth.RoleSpecialist {
		shared, err := s.repo.SharedWith(ctx, p.ID, userID)
		if err != nil {
			return err
		}
		if !shared {
			return ErrNotFound
		}
		return nil
	}
	patient, err := s.patients.PatientForUser(ctx, userID)
	if err != nil {
		return err
	}
	if patient.ID != p.PatientID {
		return ErrNotFound
	}
	return nil
}

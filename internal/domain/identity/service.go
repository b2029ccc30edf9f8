package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skinclinic/skinclinic/internal/platform/auth"
	"github.com/skinclinic/skinclinic/internal/platform/db"
	"github.com/skinclinic/skinclinic/internal/platform/validate"
)

type Service struct {
	users       UserRepository
	patients    PatientRepository
	specialists SpecialistRepository
	tx          db.TxRunner
	tokens      *auth.TokenIssuer
	revocations *auth.RevocationList
	logger      zerolog.Logger
}

func NewService(users UserRepository, patients PatientRepository, specialists SpecialistRepository,
	tx db.TxRunner, tokens *auth.TokenIssuer, revocations *auth.RevocationList, logger zerolog.Logger) *Service {
	return &Service{
		users:       users,
		patients:    patients,
		specialists: specialists,
		tx:          tx,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger.With().Str("component", "identity").Logger(),
	}
}

// -- Registration & login --

// Register creates the user and its role profile in one transaction.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*Profile, error) {
	if req.AccountType == auth.RoleSpecialist {
		missing := validate.FieldErrors{}
		if strings.TrimSpace(req.Specialization) == "" {
			missing["specialization"] = msgSpecialistField
		}
		if req.YearsOfExperience == nil {
			missing["years_of_experience"] = msgSpecialistField
		}
		if strings.TrimSpace(req.Qualification) == "" {
			missing["qualification"] = msgSpecialistField
		}
		if strings.TrimSpace(req.Bio) == "" {
			missing["bio"] = msgSpecialistField
		}
		if len(missing) > 0 {
			return nil, missing
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         req.AccountType,
		IsActive:     true,
	}
	profile := &Profile{User: user}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByEmail(ctx, user.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}

		switch user.Role {
		case auth.RoleSpecialist:
			sp := &Specialist{
				UserID:            user.ID,
				Specialization:    strings.TrimSpace(req.Specialization),
				Bio:               req.Bio,
				YearsOfExperience: *req.YearsOfExperience,
				Qualification:     strings.TrimSpace(req.Qualification),
				IsAvailable:       true,
				FirstName:         user.FirstName,
				LastName:          user.LastName,
				Email:             user.Email,
			}
			if err := s.specialists.Create(ctx, sp); err != nil {
				return fmt.Errorf("create specialist profile: %w", err)
			}
			profile.Specialist = sp
		default:
			p := &Patient{
				UserID:      user.ID,
				Phone:       req.Phone,
				DateOfBirth: req.DateOfBirth,
				FirstName:   user.FirstName,
				LastName:    user.LastName,
				Email:       user.Email,
			}
			if err := s.patients.Create(ctx, p); err != nil {
				return fmt.Errorf("create patient profile: %w", err)
			}
			profile.Patient = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("role", user.Role).Msg("account registered")
	return profile, nil
}

// Login checks credentials and issues an access token carrying the role.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	tok, err := s.tokens.Issue(user.ID.String(), user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresAt:   tok.ExpiresAt,
		Role:        user.Role,
		Redirect:    redirectFor(user.Role),
		User:        user,
	}, nil
}

// Logout revokes the token that authenticated ctx.
func (s *Service) Logout(ctx context.Context) error {
	if s.revocations == nil {
		return nil
	}
	jti, exp := auth.TokenFromContext(ctx)
	if jti == "" {
		return nil
	}
	if exp.IsZero() {
		exp = time.Now().Add(24 * time.Hour)
	}
	return s.revocations.Revoke(ctx, jti, exp)
}

// -- Profiles --

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: user}
	switch user.Role {
	case auth.RolePatient:
		p.Patient, err = s.patients.GetByUserID(ctx, userID)
	case auth.RoleSpecialist:
		p.Specialist, err = s.specialists.GetByUserID(ctx, userID)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePatientProfile(ctx context.Context, userID uuid.UUID, req *UpdatePatientRequest) (*Patient, error) {
	p, err := s.PatientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.FirstName = strings.TrimSpace(req.FirstName)
	p.LastName = strings.TrimSpace(req.LastName)
	p.Phone = req.Phone
	p.DateOfBirth = req.DateOfBirth
	p.MedicalHistory = req.MedicalHistory

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdateName(ctx, userID, p.FirstName, p.LastName); err != nil {
			return err
		}
		return s.patients.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PatientForUser resolves the patient profile of an authenticated user.
func (s *Service) PatientForUser(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotPatient
	}
	return p, err
}

// SpecialistForUser resolves the specialist profile of an authenticated user.
func (s *Service) SpecialistForUser(ctx context.Context, userID uuid.UUID) (*Specialist, error) {
	sp, err := s.specialists.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotSpecialist
	}
	return sp, err
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetSpecialist(ctx context.Context, id uuid.UUID) (*Specialist, error) {
	return s.specialists.GetByID(ctx, id)
}

func (s *Service) ListSpecialists(ctx context.Context, f SpecialistFilter, limit, offset int) ([]*Specialist, int, error) {
	return s.specialists.List(ctx, f, limit, offset)
}

// ToggleAvailability flips the specialist's is_available flag and returns
// the new value.
func (s *Service) ToggleAvailability(ctx context.Context, userID uuid.UUID) (bool, error) {
	sp, err := s.SpecialistForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	next := !sp.IsAvailable
	if err := s.specialists.SetAvailability(ctx, sp.ID, next); err != nil {
		return false, err
	}
	s.logger.Info().Str("specialist_id", sp.ID.String()).Bool("is_available", next).Msg("availability toggled")
	return next, nil
}

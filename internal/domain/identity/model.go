package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skinclinic/skinclinic/internal/platform/auth"
	"github.com/skinclinic/skinclinic/pkg/civil"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrNotPatient         = errors.New("user has no patient profile")
	ErrNotSpecialist      = errors.New("user has no specialist profile")
)

// User-facing messages.
const (
	msgEmailTaken         = "This email is already registered. Please use a different email or log in."
	msgInvalidCredentials = "Invalid email or password. Please try again."
	msgAccountDisabled    = "This account has been deactivated. Please contact support."
	msgSpecialistField    = "This field is required for specialist accounts"
)

// User is an account that can log in. Role is fixed at registration.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Patient is the patient profile attached to a user.
type Patient struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Phone          string     `json:"phone"`
	DateOfBirth    civil.Date `json:"date_of_birth"`
	MedicalHistory string     `json:"medical_history"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Specialist is the practitioner profile attached to a user.
type Specialist struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Specialization    string    `json:"specialization"`
	Bio               string    `json:"bio"`
	YearsOfExperience int       `json:"years_of_experience"`
	Qualification     string    `json:"qualification"`
	ProfileImageKey   string    `json:"profile_image_key,omitempty"`
	IsAvailable       bool      `json:"is_available"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email,omitempty"`
}

// DisplayName is the name shown to patients, e.g. "Dr. Jane Doe".
func (s *Specialist) DisplayName() string {
	return "Dr. " + strings.TrimSpace(s.FirstName+" "+s.LastName)
}

// SpecialistFilter narrows the public specialist directory.
type SpecialistFilter struct {
	Specialization string
	AvailableOnly  bool
}

type RegisterRequest struct {
	Email             string     `json:"email" validate:"required,email,max=254"`
	Password          string     `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword   string     `json:"confirm_password" validate:"required,eqfield=Password"`
	FirstName         string     `json:"first_name" validate:"required,max=150"`
	LastName          string     `json:"last_name" validate:"required,max=150"`
	AccountType       string     `json:"account_type" validate:"required,oneof=patient specialist"`
	Phone             string     `json:"phone" validate:"omitempty,phone"`
	DateOfBirth       civil.Date `json:"date_of_birth"`
	Specialization    string     `json:"specialization" validate:"max=100"`
	YearsOfExperience *int       `json:"years_of_experience" validate:"omitempty,gte=0,lte=80"`
	Qualification     string     `json:"qualification" validate:"max=200"`
	Bio               string     `json:"bio"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the access token and the page the client should
// open next for the user's role.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        string    `json:"role"`
	Redirect    string    `json:"redirect"`
	User        *User     `json:"user"`
}

// Profile is the authenticated user's account plus their role profile.
type Profile struct {
	User       *User       `json:"user"`
	Patient    *Patient    `json:"patient,omitempty"`
	Specialist *Specialist `json:"specialist,omitempty"`
}

type UpdatePatientRequest struct {
	FirstName      string     `json:"first_name" validate:"required,max=150"`
	LastName       string     `json:"last_name" validate:"required,max=150"`
	Phone          string     `json:"phone" validate:"omitempty,phone"`
	DateOfBirth    civil.Date `json:"date_of_birth"`
	MedicalHistory string     `json:"medical_history"`
}

// redirectFor names the client route a role lands on after login.
func redirectFor(role string) string {
	switch role {
	case auth.RoleSpecialist:
		return "specialist_dashboard"
	case auth.RoleAdmin:
		return "admin"
	default:
		return "home"
	}
}

package accounts

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Role gates which routes a user may call.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole maps user input onto a role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RolePatient:
		return RolePatient, true
	case RoleDoctor:
		return RoleDoctor, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

var (
	ErrInvalidEmail       = errors.New("accounts: a valid email is required")
	ErrWeakPassword       = errors.New("accounts: password must be at least 8 characters")
	ErrInvalidName        = errors.New("accounts: name is required")
	ErrInvalidRole        = errors.New("accounts: role must be patient or doctor")
	ErrEmailTaken         = errors.New("accounts: email already registered")
	ErrInvalidCredentials = errors.New("accounts: invalid email or password")
	ErrUserNotFound       = errors.New("accounts: user not found")
)

const minPasswordLength = 8

// User is a registered patient, doctor or admin.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Validate normalises the request and checks it. Admin accounts cannot be
// self-registered.
func (r *RegisterRequest) Validate() error {
	r.Email = normalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		return ErrInvalidEmail
	}
	if len(r.Password) < minPasswordLength {
		return ErrWeakPassword
	}
	if r.Name == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Role) == "" {
		r.Role = string(RolePatient)
	}
	role, ok := ParseRole(r.Role)
	if !ok || role == RoleAdmin {
		return ErrInvalidRole
	}
	r.Role = string(role)
	return nil
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

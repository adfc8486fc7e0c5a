// Package verification runs the doctor verification workflow: doctors apply,
// admins approve or reject, and every decision is audited.
package verification

import (
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/careconnect/internal/clinic"
)

// Status of an application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus maps a query value onto a status.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	}
	return "", false
}

var (
	ErrApplicationNotFound = errors.New("verification: application not found")
	ErrAlreadyReviewed     = errors.New("verification: application already reviewed")
	ErrAlreadySubmitted    = errors.New("verification: an application is already pending or approved")
	ErrInvalidLicense      = errors.New("verification: license number is required")
	ErrInvalidSpecialty    = errors.New("verification: specialty must be a known treatment type")
	ErrInvalidName         = errors.New("verification: name is required")
	ErrInvalidStatus       = errors.New("verification: unknown status")
)

// Application is a doctor's request to be listed as verified.
type Application struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	LicenseNumber string     `json:"license_number"`
	Specialty     string     `json:"specialty"`
	ClinicID      string     `json:"clinic_id,omitempty"`
	Status        Status     `json:"status"`
	ReviewerID    string     `json:"reviewer_id,omitempty"`
	ReviewNotes   string     `json:"review_notes,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

// SubmitRequest is the body of POST /api/doctor/verification.
type SubmitRequest struct {
	Name          string `json:"name"`
	LicenseNumber string `json:"license_number"`
	Specialty     string `json:"specialty"`
	ClinicID      string `json:"clinic_id,omitempty"`
}

// Validate normalises and checks the request.
func (r *SubmitRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.LicenseNumber = strings.ToUpper(strings.TrimSpace(r.LicenseNumber))
	r.Specialty = strings.ToLower(strings.TrimSpace(r.Specialty))
	r.ClinicID = strings.TrimSpace(r.ClinicID)
	if r.Name == "" {
		return ErrInvalidName
	}
	if r.LicenseNumber == "" {
		return ErrInvalidLicense
	}
	if !clinic.IsKnownService(r.Specialty) {
		return ErrInvalidSpecialty
	}
	return nil
}

// DecisionRequest is the body of the approve and reject endpoints.
type DecisionRequest struct {
	Notes string `json:"notes"`
}

// Doctor identifies the applicant.
type Doctor struct {
	ID    string
	Email string
	Name  string
}

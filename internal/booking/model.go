// Package booking turns a completed triage conversation into a confirmed
// clinic appointment, enforcing per-day clinic capacity.
package booking

import (
	"errors"
	"time"
)

// Status of an appointment.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

const dateLayout = "2006-01-02"

var (
	ErrMissingClinic          = errors.New("booking: clinic is required")
	ErrUnknownClinic          = errors.New("booking: clinic does not exist")
	ErrInvalidTreatment       = errors.New("booking: unknown treatment type")
	ErrInvalidDate            = errors.New("booking: appointment date not understood")
	ErrDateInPast             = errors.New("booking: appointment date is in the past")
	ErrFullyBooked            = errors.New("booking: clinic is fully booked on that date")
	ErrAppointmentNotFound    = errors.New("booking: appointment not found")
	ErrAlreadyCancelled       = errors.New("booking: appointment already cancelled")
	ErrConversationNotFound   = errors.New("booking: conversation not found")
	ErrConversationIncomplete = errors.New("booking: conversation has not collected every detail yet")
	ErrInvalidCapacity        = errors.New("booking: capacity cannot be negative")
)

// Appointment is a booked clinic visit.
type Appointment struct {
	ID              string     `json:"id"`
	PatientID       string     `json:"patient_id"`
	ClinicID        string     `json:"clinic_id"`
	ClinicName      string     `json:"clinic_name,omitempty"`
	ConversationID  string     `json:"conversation_id,omitempty"`
	TreatmentType   string     `json:"treatment_type"`
	AppointmentDate time.Time  `json:"appointment_date"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

// CreateRequest is the body of POST /api/appointments. Fields left empty are
// taken from the referenced conversation: its treatment type, its date
// phrase and its top recommended clinic.
type CreateRequest struct {
	ConversationID  string `json:"conversation_id,omitempty"`
	ClinicID        string `json:"clinic_id,omitempty"`
	TreatmentType   string `json:"treatment_type,omitempty"`
	AppointmentDate string `json:"appointment_date,omitempty"`
}

// Patient identifies who is booking.
type Patient struct {
	ID    string
	Email string
	Name  string
}

// ClinicInfo is the contact detail included in confirmations.
type ClinicInfo struct {
	Name    string
	Address string
	Phone   string
}

// Availability reports how many slots a clinic has left on a day.
type Availability struct {
	ClinicID  string `json:"clinic_id"`
	Date      string `json:"date"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Remaining int    `json:"remaining"`
}

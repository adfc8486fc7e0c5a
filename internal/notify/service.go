package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/careconnect/pkg/logging"
)

// BookingNotice describes a confirmed appointment.
type BookingNotice struct {
	AppointmentID string
	PatientEmail  string
	PatientName   string
	ClinicName    string
	ClinicAddress string
	ClinicPhone   string
	Treatment     string
	Date          time.Time
}

// ApplicationNotice describes a doctor verification application.
type ApplicationNotice struct {
	ApplicationID string
	DoctorEmail   string
	DoctorName    string
	LicenseNumber string
	Specialty     string
	Notes         string
}

// Service sends patient, doctor and admin notifications.
type Service struct {
	email      EmailSender
	adminEmail string
	logger     *logging.Logger
}

// NewService creates a notification service. adminEmail receives new
// verification applications and may be empty.
func NewService(email EmailSender, adminEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		adminEmail: strings.TrimSpace(adminEmail),
		logger:     logger,
	}
}

// NotifyBookingConfirmed emails the patient their appointment details.
func (s *Service) NotifyBookingConfirmed(ctx context.Context, n BookingNotice) error {
	if s.email == nil || n.PatientEmail == "" {
		s.logger.Debug("notify: email not configured, skipping booking confirmation", "appointment_id", n.AppointmentID)
		return nil
	}

	name := n.PatientName
	if name == "" {
		name = "there"
	}
	date := n.Date.Format("Monday, January 2, 2006")
	subject := fmt.Sprintf("Appointment confirmed - %s on %s", n.ClinicName, n.Date.Format("Jan 2"))

	body := fmt.Sprintf(`Hi %s,

Your %s appointment is confirmed.

Clinic: %s
Date: %s%s%s
Reference: %s

You can cancel from your CareConnect dashboard.

- CareConnect`, name, n.Treatment, n.ClinicName, date,
		optionalLine("Address", n.ClinicAddress), optionalLine("Phone", n.ClinicPhone), n.AppointmentID)

	htmlBody := fmt.Sprintf(`<h2>Appointment confirmed</h2>
<p>Hi %s, your <strong>%s</strong> appointment is confirmed.</p>
<table>
<tr><td>Clinic</td><td>%s</td></tr>
<tr><td>Date</td><td>%s</td></tr>%s%s
<tr><td>Reference</td><td>%s</td></tr>
</table>`, html.EscapeString(name), html.EscapeString(n.Treatment), html.EscapeString(n.ClinicName), date,
		optionalRow("Address", n.ClinicAddress), optionalRow("Phone", n.ClinicPhone), html.EscapeString(n.AppointmentID))

	err := s.email.Send(ctx, EmailMessage{
		To:       n.PatientEmail,
		ToName:   n.PatientName,
		Subject:  subject,
		Body:     body,
		HTML:     htmlBody,
		Category: CategoryBookingConfirmed,
	})
	if err != nil {
		return fmt.Errorf("notify: booking confirmation: %w", err)
	}
	return nil
}

// NotifyVerificationSubmitted alerts the admin inbox about a new application.
func (s *Service) NotifyVerificationSubmitted(ctx context.Context, n ApplicationNotice) error {
	if s.email == nil || s.adminEmail == "" {
		return nil
	}
	body := fmt.Sprintf(`A doctor submitted a verification application.

Name: %s
Email: %s
License: %s
Specialty: %s
Application: %s`, n.DoctorName, n.DoctorEmail, n.LicenseNumber, n.Specialty, n.ApplicationID)

	if err := s.email.Send(ctx, EmailMessage{
		To:       s.adminEmail,
		ReplyTo:  n.DoctorEmail,
		Subject:  fmt.Sprintf("New doctor application - %s", n.DoctorName),
		Body:     body,
		Category: CategoryVerificationSubmitted,
	}); err != nil {
		return fmt.Errorf("notify: verification submitted: %w", err)
	}
	return nil
}

// NotifyVerificationDecision tells the doctor whether they were approved.
func (s *Service) NotifyVerificationDecision(ctx context.Context, n ApplicationNotice, approved bool) error {
	if s.email == nil || n.DoctorEmail == "" {
		return nil
	}

	var subject, outcome string
	if approved {
		subject = "Your CareConnect verification was approved"
		outcome = "Your profile is now verified and visible to patients."
	} else {
		subject = "Your CareConnect verification was not approved"
		outcome = "We could not verify your application at this time."
	}
	body := fmt.Sprintf("Hi %s,\n\n%s%s\n\n- CareConnect", n.DoctorName, outcome, optionalLine("Reviewer notes", n.Notes))

	if err := s.email.Send(ctx, EmailMessage{
		To:       n.DoctorEmail,
		ToName:   n.DoctorName,
		Subject:  subject,
		Body:     body,
		Category: CategoryVerificationDecision,
	}); err != nil {
		return fmt.Errorf("notify: verification decision: %w", err)
	}
	return nil
}

func optionalLine(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return fmt.Sprintf("\n%s: %s", label, value)
}

func optionalRow(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return fmt.Sprintf("\n<tr><td>%s</td><td>%s</td></tr>", label, html.EscapeString(value))
}

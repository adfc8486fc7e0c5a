package booking

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/careconnect/internal/clinic"
	"github.com/wolfman30/careconnect/internal/compliance"
	"github.com/wolfman30/careconnect/internal/conversation"
	"github.com/wolfman30/careconnect/internal/notify"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// ConversationLookup loads triage sessions. Implemented by conversation.Engine.
type ConversationLookup interface {
	Session(ctx context.Context, id string) (*conversation.State, error)
}

// Notifier sends booking confirmations. Implemented by notify.Service.
type Notifier interface {
	NotifyBookingConfirmed(ctx context.Context, n notify.BookingNotice) error
}

// Service books, lists and cancels appointments.
type Service struct {
	repo            Repository
	sessions        ConversationLookup
	notifier        Notifier
	audit           compliance.Logger
	defaultCapacity int
	now             func() time.Time
	logger          *logging.Logger
}

// Option customises a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo Repository, sessions ConversationLookup, notifier Notifier, audit compliance.Logger, defaultCapacity int, logger *logging.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("booking: repository cannot be nil")
	}
	if defaultCapacity <= 0 {
		defaultCapacity = 8
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:            repo,
		sessions:        sessions,
		notifier:        notifier,
		audit:           audit,
		defaultCapacity: defaultCapacity,
		now:             time.Now,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book confirms an appointment for patient.
func (s *Service) Book(ctx context.Context, patient Patient, req CreateRequest) (*Appointment, error) {
	if err := s.fillFromConversation(ctx, &req); err != nil {
		return nil, err
	}

	clinicID := strings.TrimSpace(req.ClinicID)
	if clinicID == "" {
		return nil, ErrMissingClinic
	}
	treatment := strings.ToLower(strings.TrimSpace(req.TreatmentType))
	if !clinic.IsKnownService(treatment) {
		return nil, ErrInvalidTreatment
	}
	day, err := s.resolveDate(req.AppointmentDate)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:              uuid.NewString(),
		PatientID:       patient.ID,
		ClinicID:        clinicID,
		ConversationID:  req.ConversationID,
		TreatmentType:   treatment,
		AppointmentDate: day,
		Status:          StatusConfirmed,
	}
	if err := s.repo.Create(ctx, appt, s.defaultCapacity); err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"clinic_id", appt.ClinicID,
		"treatment_type", appt.TreatmentType,
		"date", day.Format(dateLayout),
	)
	s.record(ctx, compliance.EventBookingCreated, patient.ID, appt)
	s.confirm(ctx, patient, appt)
	return appt, nil
}

func (s *Service) fillFromConversation(ctx context.Context, req *CreateRequest) error {
	if req.ConversationID == "" || s.sessions == nil {
		return nil
	}
	state, err := s.sessions.Session(ctx, req.ConversationID)
	if errors.Is(err, conversation.ErrSessionNotFound) {
		return ErrConversationNotFound
	}
	if err != nil {
		return err
	}
	if state.Stage != conversation.StageComplete {
		return ErrConversationIncomplete
	}
	if req.TreatmentType == "" && state.Slots.TreatmentType != nil {
		req.TreatmentType = string(*state.Slots.TreatmentType)
	}
	if req.AppointmentDate == "" && state.Slots.AppointmentDate != nil {
		req.AppointmentDate = *state.Slots.AppointmentDate
	}
	if req.ClinicID == "" && len(state.Recommendations) > 0 {
		req.ClinicID = state.Recommendations[0].ID
	}
	return nil
}

// resolveDate accepts an ISO date or any phrase the triage chat understands.
func (s *Service) resolveDate(raw string) (time.Time, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	raw = strings.TrimSpace(raw)
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		resolved, ok := conversation.ResolveAppointmentDate(raw, now)
		if !ok {
			return time.Time{}, ErrInvalidDate
		}
		day = time.Date(resolved.Year(), resolved.Month(), resolved.Day(), 0, 0, 0, 0, time.UTC)
	}
	if day.Before(today) {
		return time.Time{}, ErrDateInPast
	}
	return day, nil
}

func (s *Service) confirm(ctx context.Context, patient Patient, appt *Appointment) {
	if s.notifier == nil {
		return
	}
	info, err := s.repo.ClinicInfo(ctx, appt.ClinicID)
	if err != nil {
		s.logger.Warn("failed to load clinic for confirmation", "clinic_id", appt.ClinicID, "error", err)
		info = ClinicInfo{Name: appt.ClinicID}
	}
	appt.ClinicName = info.Name
	if err := s.notifier.NotifyBookingConfirmed(ctx, notify.BookingNotice{
		AppointmentID: appt.ID,
		PatientEmail:  patient.Email,
		PatientName:   patient.Name,
		ClinicName:    info.Name,
		ClinicAddress: info.Address,
		ClinicPhone:   info.Phone,
		Treatment:     appt.TreatmentType,
		Date:          appt.AppointmentDate,
	}); err != nil {
		s.logger.Warn("failed to send booking confirmation", "appointment_id", appt.ID, "error", err)
	}
}

func (s *Service) record(ctx context.Context, eventType compliance.AuditEventType, actorID string, appt *Appointment) {
	if s.audit == nil {
		return
	}
	details, _ := json.Marshal(compliance.AuditDetails{
		TreatmentType:   appt.TreatmentType,
		ClinicID:        appt.ClinicID,
		AppointmentDate: appt.AppointmentDate.Format(dateLayout),
	})
	if err := s.audit.LogEvent(ctx, compliance.AuditEvent{
		EventType:      eventType,
		ActorID:        actorID,
		SubjectID:      appt.ID,
		ConversationID: appt.ConversationID,
		Details:        details,
	}); err != nil {
		s.logger.Warn("failed to audit appointment", "appointment_id", appt.ID, "event", eventType, "error", err)
	}
}

// List returns the patient's appointments.
func (s *Service) List(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Cancel cancels one of the patient's confirmed appointments.
func (s *Service) Cancel(ctx context.Context, patientID, id string) (*Appointment, error) {
	appt, err := s.repo.Cancel(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled", "appointment_id", id)
	s.record(ctx, compliance.EventBookingCancelled, patientID, appt)
	return appt, nil
}

// Availability reports remaining capacity for a clinic on a date phrase.
func (s *Service) Availability(ctx context.Context, clinicID, date string) (Availability, error) {
	if strings.TrimSpace(clinicID) == "" {
		return Availability{}, ErrMissingClinic
	}
	day, err := s.resolveDate(date)
	if err != nil {
		return Availability{}, err
	}
	return s.repo.Availability(ctx, clinicID, day, s.defaultCapacity)
}

// SetCapacity overrides a clinic's capacity for one day.
func (s *Service) SetCapacity(ctx context.Context, clinicID, date string, capacity int) error {
	if strings.TrimSpace(clinicID) == "" {
		return ErrMissingClinic
	}
	if capacity < 0 {
		return ErrInvalidCapacity
	}
	day, err := s.resolveDate(date)
	if err != nil {
		return err
	}
	return s.repo.SetCapacity(ctx, clinicID, day, capacity)
}

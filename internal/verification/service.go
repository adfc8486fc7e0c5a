package verification

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/wolfman30/careconnect/internal/compliance"
	"github.com/wolfman30/careconnect/internal/notify"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Auditor records verification events. Implemented by compliance.AuditService.
type Auditor interface {
	compliance.Logger
	LogVerificationDecision(ctx context.Context, adminID, applicationID string, approved bool, notes string) error
}

// Notifier emails doctors and admins. Implemented by notify.Service.
type Notifier interface {
	NotifyVerificationSubmitted(ctx context.Context, n notify.ApplicationNotice) error
	NotifyVerificationDecision(ctx context.Context, n notify.ApplicationNotice, approved bool) error
}

// Service runs the verification workflow.
type Service struct {
	repo     Repository
	audit    Auditor
	notifier Notifier
	logger   *logging.Logger
}

func NewService(repo Repository, audit Auditor, notifier Notifier, logger *logging.Logger) *Service {
	if repo == nil {
		panic("verification: repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, audit: audit, notifier: notifier, logger: logger}
}

// Submit files a new application. A doctor may resubmit only after a rejection.
func (s *Service) Submit(ctx context.Context, doctor Doctor, req SubmitRequest) (*Application, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	latest, err := s.repo.LatestForUser(ctx, doctor.ID)
	switch {
	case err == nil && latest.Status != StatusRejected:
		return nil, ErrAlreadySubmitted
	case err != nil && !errors.Is(err, ErrApplicationNotFound):
		return nil, err
	}

	app := &Application{
		ID:            uuid.NewString(),
		UserID:        doctor.ID,
		Name:          req.Name,
		Email:         doctor.Email,
		LicenseNumber: req.LicenseNumber,
		Specialty:     req.Specialty,
		ClinicID:      req.ClinicID,
		Status:        StatusPending,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, err
	}
	s.logger.Info("verification submitted", "application_id", app.ID, "user_id", doctor.ID, "specialty", app.Specialty)

	if s.audit != nil {
		details, _ := json.Marshal(compliance.AuditDetails{TreatmentType: app.Specialty, ClinicID: app.ClinicID})
		if err := s.audit.LogEvent(ctx, compliance.AuditEvent{
			EventType: compliance.EventVerificationSubmitted,
			ActorID:   doctor.ID,
			SubjectID: app.ID,
			Details:   details,
		}); err != nil {
			s.logger.Warn("failed to audit verification submission", "application_id", app.ID, "error", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyVerificationSubmitted(ctx, notice(app)); err != nil {
			s.logger.Warn("failed to notify admins of application", "application_id", app.ID, "error", err)
		}
	}
	return app, nil
}

// Status returns the doctor's most recent application.
func (s *Service) Status(ctx context.Context, doctorID string) (*Application, error) {
	return s.repo.LatestForUser(ctx, doctorID)
}

// List returns applications in the given state for the admin queue.
func (s *Service) List(ctx context.Context, status Status, limit int) ([]Application, error) {
	if _, ok := ParseStatus(string(status)); !ok {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, status, limit)
}

// Approve marks a pending application approved.
func (s *Service) Approve(ctx context.Context, adminID, id, notes string) (*Application, error) {
	return s.decide(ctx, adminID, id, StatusApproved, notes)
}

// Reject marks a pending application rejected.
func (s *Service) Reject(ctx context.Context, adminID, id, notes string) (*Application, error) {
	return s.decide(ctx, adminID, id, StatusRejected, notes)
}

func (s *Service) decide(ctx context.Context, adminID, id string, status Status, notes string) (*Application, error) {
	app, err := s.repo.Decide(ctx, id, status, adminID, notes)
	if err != nil {
		return nil, err
	}
	approved := status == StatusApproved
	s.logger.Info("verification decided", "application_id", id, "status", status, "reviewer_id", adminID)

	if s.audit != nil {
		if err := s.audit.LogVerificationDecision(ctx, adminID, id, approved, notes); err != nil {
			s.logger.Warn("failed to audit verification decision", "application_id", id, "error", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyVerificationDecision(ctx, notice(app), approved); err != nil {
			s.logger.Warn("failed to notify doctor of decision", "application_id", id, "error", err)
		}
	}
	return app, nil
}

func notice(app *Application) notify.ApplicationNotice {
	return notify.ApplicationNotice{
		ApplicationID: app.ID,
		DoctorEmail:   app.Email,
		DoctorName:    app.Name,
		LicenseNumber: app.LicenseNumber,
		Specialty:     app.Specialty,
		Notes:         app.ReviewNotes,
	}
}

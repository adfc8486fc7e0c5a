// Package compliance records the immutable audit trail for verification
// decisions, bookings and completed triage conversations.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of audited event.
type AuditEventType string

const (
	// EventTriageCompleted is logged when a conversation collects every slot.
	EventTriageCompleted AuditEventType = "triage.completed"
	// EventBookingCreated is logged when an appointment is confirmed.
	EventBookingCreated AuditEventType = "booking.created"
	// EventBookingCancelled is logged when a patient cancels an appointment.
	EventBookingCancelled AuditEventType = "booking.cancelled"
	// EventVerificationSubmitted is logged when a doctor submits an application.
	EventVerificationSubmitted AuditEventType = "verification.submitted"
	// EventVerificationApproved is logged when an admin approves a doctor.
	EventVerificationApproved AuditEventType = "verification.approved"
	// EventVerificationRejected is logged when an admin rejects a doctor.
	EventVerificationRejected AuditEventType = "verification.rejected"
	// EventAccountRegistered is logged when a new user signs up.
	EventAccountRegistered AuditEventType = "account.registered"
)

// AuditEvent represents an immutable audit record.
type AuditEvent struct {
	ID             string          `json:"id"`
	EventType      AuditEventType  `json:"event_type"`
	ActorID        string          `json:"actor_id,omitempty"`
	SubjectID      string          `json:"subject_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	// For triage and bookings
	TreatmentType   string `json:"treatment_type,omitempty"`
	Location        string `json:"location,omitempty"`
	ClinicID        string `json:"clinic_id,omitempty"`
	AppointmentDate string `json:"appointment_date,omitempty"`

	// For verification decisions
	Decision string `json:"decision,omitempty"`
	Notes    string `json:"notes,omitempty"`

	// For accounts
	Role string `json:"role,omitempty"`
}

// Logger is the write side of the audit trail, used by the services that
// produce audited events.
type Logger interface {
	LogEvent(ctx context.Context, event AuditEvent) error
}

// AuditService handles audit logging.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, actor_id, subject_id, conversation_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.ActorID),
		nullString(event.SubjectID),
		nullString(event.ConversationID),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// LogTriageCompleted logs a conversation that reached the complete stage.
func (s *AuditService) LogTriageCompleted(ctx context.Context, conversationID, treatment, location string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{
		TreatmentType: treatment,
		Location:      location,
	})

	return s.LogEvent(ctx, AuditEvent{
		EventType:      EventTriageCompleted,
		ConversationID: conversationID,
		Details:        detailsJSON,
	})
}

// LogVerificationDecision logs an admin approving or rejecting a doctor application.
func (s *AuditService) LogVerificationDecision(ctx context.Context, adminID, applicationID string, approved bool, notes string) error {
	eventType, decision := EventVerificationRejected, "rejected"
	if approved {
		eventType, decision = EventVerificationApproved, "approved"
	}
	detailsJSON, _ := json.Marshal(AuditDetails{
		Decision: decision,
		Notes:    notes,
	})

	return s.LogEvent(ctx, AuditEvent{
		EventType: eventType,
		ActorID:   adminID,
		SubjectID: applicationID,
		Details:   detailsJSON,
	})
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, actor_id, subject_id, conversation_id, details, created_at
		FROM audit_events
		WHERE 1 = 1
	`
	var args []interface{}
	argIdx := 1

	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, filter.ActorID)
		argIdx++
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", argIdx)
		args = append(args, filter.SubjectID)
		argIdx++
	}
	if filter.ConversationID != "" {
		query += fmt.Sprintf(" AND conversation_id = $%d", argIdx)
		args = append(args, filter.ConversationID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var actorID, subjectID, convID sql.NullString
		var details []byte
		err := rows.Scan(
			&e.ID, &e.EventType, &actorID, &subjectID, &convID, &details, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.ActorID = actorID.String
		e.SubjectID = subjectID.String
		e.ConversationID = convID.String
		e.Details = details
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to iterate audit events: %w", err)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	ActorID        string
	SubjectID      string
	ConversationID string
	EventType      AuditEventType
	StartTime      time.Time
	EndTime        time.Time
	Limit          int
	Offset         int
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_LogEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	tests := []struct {
		name    string
		event   AuditEvent
		execErr error
		wantErr bool
	}{
		{
			name: "booking created",
			event: AuditEvent{
				EventType:      EventBookingCreated,
				ActorID:        uuid.New().String(),
				SubjectID:      "appt-123",
				ConversationID: "conv-123",
				Details:        json.RawMessage(`{"clinic_id": "c1"}`),
			},
		},
		{
			name: "account registered without details",
			event: AuditEvent{
				EventType: EventAccountRegistered,
				SubjectID: uuid.New().String(),
			},
		},
		{
			name:    "database failure",
			event:   AuditEvent{EventType: EventTriageCompleted},
			execErr: errors.New("connection reset"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := mock.ExpectExec("INSERT INTO audit_events")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := service.LogEvent(context.Background(), tt.event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogTriageCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(
			sqlmock.AnyArg(),
			EventTriageCompleted,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			[]byte(`{"treatment_type":"dental","location":"Mumbai"}`),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = service.LogTriageCompleted(context.Background(), "conv-1", "dental", "Mumbai")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogVerificationDecision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(
			sqlmock.AnyArg(),
			EventVerificationRejected,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			[]byte(`{"decision":"rejected","notes":"license expired"}`),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = service.LogVerificationDecision(context.Background(), "admin-1", "app-1", false, "license expired")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_QueryEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "event_type", "actor_id", "subject_id", "conversation_id", "details", "created_at"}).
		AddRow("evt-1", "verification.approved", "admin-1", "app-1", nil, []byte(`{"decision":"approved"}`), now).
		AddRow("evt-2", "verification.rejected", "admin-1", "app-2", nil, []byte(`{"decision":"rejected"}`), now)

	mock.ExpectQuery("SELECT (.+) FROM audit_events").
		WithArgs("admin-1").
		WillReturnRows(rows)

	events, err := service.QueryEvents(context.Background(), AuditFilter{ActorID: "admin-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventVerificationApproved, events[0].EventType)
	assert.Equal(t, "app-1", events[0].SubjectID)
	assert.Empty(t, events[0].ConversationID)
	assert.JSONEq(t, `{"decision":"rejected"}`, string(events[1].Details))
	assert.NoError(t, mock.ExpectationsWereMet())
}

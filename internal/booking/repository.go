package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Repository persists appointments and clinic capacity.
type Repository interface {
	Create(ctx context.Context, appt *Appointment, defaultCapacity int) error
	ListByPatient(ctx context.Context, patientID string) ([]Appointment, error)
	Cancel(ctx context.Context, patientID, id string) (*Appointment, error)
	Availability(ctx context.Context, clinicID string, day time.Time, defaultCapacity int) (Availability, error)
	SetCapacity(ctx context.Context, clinicID string, day time.Time, capacity int) error
	ClinicInfo(ctx context.Context, clinicID string) (ClinicInfo, error)
}

// SQLRepository stores appointments in PostgreSQL through database/sql.
type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	if db == nil {
		panic("booking: sql db required")
	}
	return &SQLRepository{db: db}
}

const foreignKeyViolation = "23503"

// Create books appt if the clinic still has room on that day. Bookings for
// the same clinic and day are serialized with a transaction-scoped advisory
// lock so capacity cannot be oversold.
func (r *SQLRepository) Create(ctx context.Context, appt *Appointment, defaultCapacity int) error {
	day := appt.AppointmentDate.Format(dateLayout)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("booking: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`, appt.ClinicID, day); err != nil {
		return fmt.Errorf("booking: lock day: %w", err)
	}

	capacity, booked, err := capacityFor(ctx, tx, appt.ClinicID, day, defaultCapacity)
	if err != nil {
		return err
	}
	if booked >= capacity {
		return ErrFullyBooked
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO appointments (id, patient_id, clinic_id, conversation_id, treatment_type, appointment_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, appt.ID, appt.PatientID, appt.ClinicID, nullString(appt.ConversationID), appt.TreatmentType, day, string(appt.Status)).Scan(&appt.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation {
			return ErrUnknownClinic
		}
		return fmt.Errorf("booking: insert appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("booking: commit: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func capacityFor(ctx context.Context, q queryRower, clinicID, day string, defaultCapacity int) (int, int, error) {
	capacity := defaultCapacity
	err := q.QueryRowContext(ctx, `SELECT capacity FROM availability WHERE clinic_id = $1 AND date = $2`, clinicID, day).Scan(&capacity)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("booking: load capacity: %w", err)
	}

	var booked int
	if err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE clinic_id = $1 AND appointment_date = $2 AND status = 'confirmed'
	`, clinicID, day).Scan(&booked); err != nil {
		return 0, 0, fmt.Errorf("booking: count appointments: %w", err)
	}
	return capacity, booked, nil
}

// ListByPatient returns a patient's appointments, most recent date first.
func (r *SQLRepository) ListByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.patient_id, a.clinic_id, c.name, a.conversation_id, a.treatment_type,
		       a.appointment_date, a.status, a.created_at, a.cancelled_at
		FROM appointments a
		JOIN clinics c ON c.id = a.clinic_id
		WHERE a.patient_id = $1
		ORDER BY a.appointment_date DESC, a.created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("booking: list appointments: %w", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		var a Appointment
		var convID sql.NullString
		var status string
		var cancelled sql.NullTime
		if err := rows.Scan(&a.ID, &a.PatientID, &a.ClinicID, &a.ClinicName, &convID, &a.TreatmentType,
			&a.AppointmentDate, &status, &a.CreatedAt, &cancelled); err != nil {
			return nil, fmt.Errorf("booking: scan appointment: %w", err)
		}
		a.ConversationID = convID.String
		a.Status = Status(status)
		if cancelled.Valid {
			t := cancelled.Time
			a.CancelledAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Cancel marks a confirmed appointment owned by patientID as cancelled.
func (r *SQLRepository) Cancel(ctx context.Context, patientID, id string) (*Appointment, error) {
	a := Appointment{ID: id, PatientID: patientID, Status: StatusCancelled}
	var convID sql.NullString
	var cancelled time.Time
	err := r.db.QueryRowContext(ctx, `
		UPDATE appointments
		SET status = 'cancelled', cancelled_at = NOW()
		WHERE id = $1 AND patient_id = $2 AND status = 'confirmed'
		RETURNING clinic_id, conversation_id, treatment_type, appointment_date, created_at, cancelled_at
	`, id, patientID).Scan(&a.ClinicID, &convID, &a.TreatmentType, &a.AppointmentDate, &a.CreatedAt, &cancelled)
	if err == nil {
		a.ConversationID = convID.String
		a.CancelledAt = &cancelled
		return &a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking: cancel appointment: %w", err)
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM appointments WHERE id = $1 AND patient_id = $2`, id, patientID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load appointment: %w", err)
	}
	return nil, ErrAlreadyCancelled
}

// Availability reports remaining capacity for one clinic day.
func (r *SQLRepository) Availability(ctx context.Context, clinicID string, day time.Time, defaultCapacity int) (Availability, error) {
	d := day.Format(dateLayout)
	capacity, booked, err := capacityFor(ctx, r.db, clinicID, d, defaultCapacity)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		ClinicID:  clinicID,
		Date:      d,
		Capacity:  capacity,
		Booked:    booked,
		Remaining: max(0, capacity-booked),
	}, nil
}

// SetCapacity overrides the default capacity for one clinic day.
func (r *SQLRepository) SetCapacity(ctx context.Context, clinicID string, day time.Time, capacity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO availability (clinic_id, date, capacity)
		VALUES ($1, $2, $3)
		ON CONFLICT (clinic_id, date) DO UPDATE SET capacity = EXCLUDED.capacity
	`, clinicID, day.Format(dateLayout), capacity)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation {
			return ErrUnknownClinic
		}
		return fmt.Errorf("booking: set capacity: %w", err)
	}
	return nil
}

// ClinicInfo loads the name and contact details of a clinic.
func (r *SQLRepository) ClinicInfo(ctx context.Context, clinicID string) (ClinicInfo, error) {
	var info ClinicInfo
	err := r.db.QueryRowContext(ctx, `SELECT name, address, phone FROM clinics WHERE id = $1`, clinicID).
		Scan(&info.Name, &info.Address, &info.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return ClinicInfo{}, ErrUnknownClinic
	}
	if err != nil {
		return ClinicInfo{}, fmt.Errorf("booking: load clinic: %w", err)
	}
	return info, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

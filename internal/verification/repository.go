package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists applications.
type Repository interface {
	Create(ctx context.Context, app *Application) error
	Get(ctx context.Context, id string) (*Application, error)
	LatestForUser(ctx context.Context, userID string) (*Application, error)
	List(ctx context.Context, status Status, limit int) ([]Application, error)
	Decide(ctx context.Context, id string, status Status, reviewerID, notes string) (*Application, error)
}

type applicationDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores applications in PostgreSQL.
type PostgresRepository struct {
	db applicationDB
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("verification: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock for tests.
func NewPostgresRepositoryWithDB(db applicationDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const applicationColumns = `id, user_id, name, email, license_number, specialty, COALESCE(clinic_id, ''),
	status, COALESCE(reviewer_id, ''), COALESCE(review_notes, ''), submitted_at, reviewed_at`

func (r *PostgresRepository) Create(ctx context.Context, app *Application) error {
	query := `
		INSERT INTO doctor_applications (id, user_id, name, email, license_number, specialty, clinic_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		RETURNING submitted_at
	`
	if err := r.db.QueryRow(ctx, query,
		app.ID,
		app.UserID,
		app.Name,
		app.Email,
		app.LicenseNumber,
		app.Specialty,
		app.ClinicID,
		string(app.Status),
	).Scan(&app.SubmittedAt); err != nil {
		return fmt.Errorf("verification: insert application: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Application, error) {
	row := r.db.QueryRow(ctx, `SELECT `+applicationColumns+` FROM doctor_applications WHERE id = $1`, id)
	return scanApplication(row)
}

func (r *PostgresRepository) LatestForUser(ctx context.Context, userID string) (*Application, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+applicationColumns+`
		FROM doctor_applications
		WHERE user_id = $1
		ORDER BY submitted_at DESC
		LIMIT 1
	`, userID)
	return scanApplication(row)
}

// List returns applications with status, oldest first so the review queue is FIFO.
func (r *PostgresRepository) List(ctx context.Context, status Status, limit int) ([]Application, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM doctor_applications
		WHERE status = $1
		ORDER BY submitted_at ASC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("verification: list applications: %w", err)
	}
	defer rows.Close()

	out := []Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("verification: iterate applications: %w", err)
	}
	return out, nil
}

// Decide moves a pending application to status. Applications that are no
// longer pending are left untouched.
func (r *PostgresRepository) Decide(ctx context.Context, id string, status Status, reviewerID, notes string) (*Application, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE doctor_applications
		SET status = $2, reviewer_id = $3, review_notes = NULLIF($4, ''), reviewed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+applicationColumns, id, string(status), reviewerID, notes)
	app, err := scanApplication(row)
	if !errors.Is(err, ErrApplicationNotFound) {
		return app, err
	}
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrAlreadyReviewed
}

func scanApplication(row pgx.Row) (*Application, error) {
	var app Application
	var status string
	err := row.Scan(
		&app.ID,
		&app.UserID,
		&app.Name,
		&app.Email,
		&app.LicenseNumber,
		&app.Specialty,
		&app.ClinicID,
		&status,
		&app.ReviewerID,
		&app.ReviewNotes,
		&app.SubmittedAt,
		&app.ReviewedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification: scan application: %w", err)
	}
	app.Status = Status(status)
	return &app, nil
}

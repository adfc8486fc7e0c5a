package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/careconnect/internal/compliance"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Dashboard holds the platform counters shown to admins.
type Dashboard struct {
	Patients              int64  `json:"patients"`
	Doctors               int64  `json:"doctors"`
	PendingApplications   int64  `json:"pending_applications"`
	ApprovedApplications  int64  `json:"approved_applications"`
	RejectedApplications  int64  `json:"rejected_applications"`
	ConfirmedAppointments int64  `json:"confirmed_appointments"`
	CancelledAppointments int64  `json:"cancelled_appointments"`
	UpcomingAppointments  int64  `json:"upcoming_appointments"`
	CompletedTriages      int64  `json:"completed_triages"`
	PeriodStart           string `json:"period_start"`
	PeriodEnd             string `json:"period_end"`
}

type statsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StatsRepository queries dashboard counters from the database.
type StatsRepository struct {
	db  statsDB
	now func() time.Time
}

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	if pool == nil {
		panic("admin: pgx pool required for stats")
	}
	return &StatsRepository{db: pool, now: time.Now}
}

// NewStatsRepositoryWithDB allows injecting a mock database for testing.
func NewStatsRepositoryWithDB(db statsDB) *StatsRepository {
	return &StatsRepository{db: db, now: time.Now}
}

// GetDashboard aggregates counters. With start and end set, application,
// appointment and triage counts are limited to rows created in [start, end).
// User counts are always all-time.
func (r *StatsRepository) GetDashboard(ctx context.Context, start, end *time.Time) (*Dashboard, error) {
	d := &Dashboard{PeriodStart: "all-time", PeriodEnd: "now"}

	var args []any
	filter := func(column string) string { return "" }
	if start != nil && end != nil {
		d.PeriodStart = start.Format(time.RFC3339)
		d.PeriodEnd = end.Format(time.RFC3339)
		args = []any{*start, *end}
		filter = func(column string) string {
			return fmt.Sprintf(" AND %s >= $2 AND %s < $3", column, column)
		}
	}
	withStatus := func(status string) []any {
		return append([]any{status}, args...)
	}

	counts := []struct {
		name  string
		query string
		args  []any
		dest  *int64
	}{
		{"patients", `SELECT COUNT(*) FROM users WHERE role = $1`, []any{"patient"}, &d.Patients},
		{"doctors", `SELECT COUNT(*) FROM users WHERE role = $1`, []any{"doctor"}, &d.Doctors},
		{"pending applications", `SELECT COUNT(*) FROM doctor_applications WHERE status = $1` + filter("submitted_at"), withStatus("pending"), &d.PendingApplications},
		{"approved applications", `SELECT COUNT(*) FROM doctor_applications WHERE status = $1` + filter("submitted_at"), withStatus("approved"), &d.ApprovedApplications},
		{"rejected applications", `SELECT COUNT(*) FROM doctor_applications WHERE status = $1` + filter("submitted_at"), withStatus("rejected"), &d.RejectedApplications},
		{"confirmed appointments", `SELECT COUNT(*) FROM appointments WHERE status = $1` + filter("created_at"), withStatus("confirmed"), &d.ConfirmedAppointments},
		{"cancelled appointments", `SELECT COUNT(*) FROM appointments WHERE status = $1` + filter("created_at"), withStatus("cancelled"), &d.CancelledAppointments},
		{"completed triages", `SELECT COUNT(*) FROM audit_events WHERE event_type = $1` + filter("created_at"), withStatus(string(compliance.EventTriageCompleted)), &d.CompletedTriages},
	}
	for _, c := range counts {
		if err := r.db.QueryRow(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("admin stats: count %s: %w", c.name, err)
		}
	}

	today := r.now().UTC().Format("2006-01-02")
	upcoming := `SELECT COUNT(*) FROM appointments WHERE status = 'confirmed' AND appointment_date >= $1::date`
	if err := r.db.QueryRow(ctx, upcoming, today).Scan(&d.UpcomingAppointments); err != nil {
		return nil, fmt.Errorf("admin stats: count upcoming appointments: %w", err)
	}
	return d, nil
}

// StatsHandler serves the admin dashboard.
type StatsHandler struct {
	repo   *StatsRepository
	logger *logging.Logger
}

func NewStatsHandler(repo *StatsRepository, logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{repo: repo, logger: logger}
}

// GetDashboard returns platform counters.
// GET /api/admin/dashboard
// Query params:
//   - start: RFC3339 timestamp for period start (optional)
//   - end: RFC3339 timestamp for period end (optional)
func (h *StatsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var start, end *time.Time
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, `{"error": "invalid start time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		start = &t
	}
	if e := r.URL.Query().Get("end"); e != "" {
		t, err := time.Parse(time.RFC3339, e)
		if err != nil {
			http.Error(w, `{"error": "invalid end time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		end = &t
	}
	if (start == nil) != (end == nil) {
		http.Error(w, `{"error": "both start and end must be provided, or neither"}`, http.StatusBadRequest)
		return
	}

	dashboard, err := h.repo.GetDashboard(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to get admin dashboard", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dashboard); err != nil {
		h.logger.Error("failed to encode admin dashboard", "error", err)
	}
}

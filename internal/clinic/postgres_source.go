package clinic

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// clinicDB is the subset of pgxpool.Pool the source needs.
type clinicDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the clinic directory from the clinics table.
type PostgresSource struct {
	db clinicDB
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	if pool == nil {
		panic("clinic: pgx pool required for postgres source")
	}
	return &PostgresSource{db: pool}
}

// NewPostgresSourceWithDB allows injecting a mock database for testing.
func NewPostgresSourceWithDB(db clinicDB) *PostgresSource {
	return &PostgresSource{db: db}
}

const clinicColumns = `id, name, rating, services, lat, lng, city, address, phone`

func (s *PostgresSource) FindClinics(ctx context.Context, q Query) ([]Clinic, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if q.Service != "" {
		rows, err = s.db.Query(ctx,
			`SELECT `+clinicColumns+` FROM clinics WHERE $1 = ANY(services) AND rating >= $2 ORDER BY rating DESC LIMIT $3`,
			q.Service, q.MinRating, q.Limit)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT `+clinicColumns+` FROM clinics WHERE rating >= $1 ORDER BY rating DESC LIMIT $2`,
			q.MinRating, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: query clinics: %w", err)
	}
	defer rows.Close()

	var out []Clinic
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.Rating, &c.Services, &c.Location.Lat, &c.Location.Lng, &c.City, &c.Address, &c.Phone); err != nil {
			return nil, fmt.Errorf("clinic: scan clinic: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinic: iterate clinics: %w", err)
	}
	return out, nil
}

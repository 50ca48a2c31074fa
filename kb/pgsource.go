package kb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signalsfoundry/adalia-navigator/model"
)

// DefaultBodiesTable is the table PostgresSource reads when none is given.
const DefaultBodiesTable = "belt_bodies"

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource loads bodies from a table with the columns
// id, name, radius, spectral_type, semi_major_axis, eccentricity,
// inclination, ascending_node, arg_periapsis, mean_anomaly, period, epoch.
// name, spectral_type, period and epoch may be NULL.
type PostgresSource struct {
	db    rowQuerier
	table string
}

// NewPostgresSource reads from table through pool.
func NewPostgresSource(pool *pgxpool.Pool, table string) *PostgresSource {
	return newPostgresSource(pool, table)
}

func newPostgresSource(db rowQuerier, table string) *PostgresSource {
	if table == "" {
		table = DefaultBodiesTable
	}
	return &PostgresSource{db: db, table: table}
}

// Query returns the SELECT statement issued by Load.
func (s *PostgresSource) Query() string {
	return `SELECT id, name, radius, spectral_type,
		semi_major_axis, eccentricity, inclination,
		ascending_node, arg_periapsis, mean_anomaly,
		period, epoch
	FROM ` + pgx.Identifier{s.table}.Sanitize() + `
	ORDER BY id`
}

// Load implements Source.
func (s *PostgresSource) Load(ctx context.Context) ([]model.Body, error) {
	rows, err := s.db.Query(ctx, s.Query())
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: query %s: %w", s.table, err)
	}
	defer rows.Close()

	var bodies []model.Body
	for rows.Next() {
		var (
			b              model.Body
			name, spectral *string
			period, epoch  *float64
		)
		if err := rows.Scan(
			&b.ID, &name, &b.Radius, &spectral,
			&b.Elements.SemiMajorAxis, &b.Elements.Eccentricity, &b.Elements.Inclination,
			&b.Elements.AscendingNode, &b.Elements.ArgPeriapsis, &b.Elements.MeanAnomaly,
			&period, &epoch,
		); err != nil {
			return nil, fmt.Errorf("postgres catalog: scan: %w", err)
		}
		if name != nil {
			b.Name = *name
		}
		if spectral != nil {
			b.SpectralType = *spectral
		}
		if period != nil {
			b.Elements.Period = *period
		}
		if epoch != nil {
			b.Elements.Epoch = *epoch
		}
		b.Elements.BodyID = b.ID
		bodies = append(bodies, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres catalog: rows: %w", err)
	}
	return bodies, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sahayak/internal/eligibility/models"
	"sahayak/pkg/domain"
	txcontext "sahayak/pkg/platform/tx"
)

// PostgresStore keeps parcels in land_parcels.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) conn(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

// Replace removes the owner's parcels and writes parcels in their place, in
// one transaction.
func (s *PostgresStore) Replace(ctx context.Context, owner domain.OwnerID, parcels []models.Parcel) error {
	surveys := make([]string, len(parcels))
	areas := make([]float64, len(parcels))
	units := make([]string, len(parcels))
	categories := make([]string, len(parcels))
	for i, p := range parcels {
		surveys[i] = p.SurveyNumber
		areas[i] = p.Area
		units[i] = string(p.AreaUnit)
		categories[i] = p.Category
	}
	return txcontext.Join(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM land_parcels WHERE owner_id = $1`, uuid.UUID(owner)); err != nil {
			return fmt.Errorf("clear land parcels: %w", err)
		}
		if len(parcels) == 0 {
			return nil
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO land_parcels (owner_id, survey_number, area, area_unit, category)
			SELECT $1, u.survey_number, u.area, u.area_unit, u.category
			FROM unnest($2::text[], $3::numeric[], $4::text[], $5::text[])
				AS u(survey_number, area, area_unit, category)
		`, uuid.UUID(owner), pq.Array(surveys), pq.Array(areas), pq.Array(units), pq.Array(categories))
		if err != nil {
			return fmt.Errorf("insert land parcels: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]models.Parcel, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT survey_number, area, area_unit, category
		FROM land_parcels
		WHERE owner_id = $1
		ORDER BY survey_number
	`, uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("query land parcels: %w", err)
	}
	defer rows.Close()

	var out []models.Parcel
	for rows.Next() {
		p := models.Parcel{OwnerID: owner}
		var unit string
		if err := rows.Scan(&p.SurveyNumber, &p.Area, &unit, &p.Category); err != nil {
			return nil, fmt.Errorf("scan land parcel: %w", err)
		}
		p.AreaUnit = models.AreaUnit(unit)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate land parcels: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM land_parcels WHERE owner_id = $1`, uuid.UUID(owner))
	if err != nil {
		return 0, fmt.Errorf("delete land parcels: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted land parcels: %w", err)
	}
	return int(n), nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append records a rule. Rows are never updated or deleted.
func (s *PostgresStore) Append(ctx context.Context, rule models.Rule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timeline_rules (service, jurisdiction, duration_units, unit, effective_from, source_version, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (service, jurisdiction, effective_from, source_version) DO NOTHING
	`, string(rule.Service), string(rule.Jurisdiction), rule.DurationUnits, string(rule.Unit),
		rule.EffectiveFrom.Time(), rule.SourceVersion, rule.RecordedAt)
	if err != nil {
		return fmt.Errorf("append timeline rule: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]models.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service, jurisdiction, duration_units, unit, effective_from, source_version, recorded_at
		FROM timeline_rules
		ORDER BY recorded_at, source_version
	`)
	if err != nil {
		return nil, fmt.Errorf("query timeline rules: %w", err)
	}
	defer rows.Close()

	var rules []models.Rule
	for rows.Next() {
		var (
			r                     models.Rule
			service, jurisdiction string
			unit                  string
			effectiveFrom         sql.NullTime
		)
		if err := rows.Scan(&service, &jurisdiction, &r.DurationUnits, &unit, &effectiveFrom, &r.SourceVersion, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan timeline rule: %w", err)
		}
		r.Service = domain.ServiceID(service)
		r.Jurisdiction = domain.Jurisdiction(jurisdiction)
		r.Unit = models.Unit(unit)
		r.EffectiveFrom = domain.DateOf(effectiveFrom.Time)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline rules: %w", err)
	}
	return rules, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sahayak/internal/calendar/models"
	"sahayak/pkg/domain"
	txcontext "sahayak/pkg/platform/tx"
)

// PostgresStore persists calendars in holiday_calendars and holidays.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveCalendar replaces the stored set for the calendar's key in one transaction.
func (s *PostgresStore) SaveCalendar(ctx context.Context, cal models.HolidayCalendar) error {
	return txcontext.Join(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.saveCalendar(ctx, tx, cal)
	})
}

func (s *PostgresStore) saveCalendar(ctx context.Context, tx *sql.Tx, cal models.HolidayCalendar) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO holiday_calendars (jurisdiction, year, version, published_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (jurisdiction, year)
		DO UPDATE SET version = EXCLUDED.version, published_at = EXCLUDED.published_at
	`, string(cal.Jurisdiction), cal.Year, cal.Version, cal.PublishedAt)
	if err != nil {
		return fmt.Errorf("upsert holiday calendar: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM holidays WHERE jurisdiction = $1 AND year = $2`,
		string(cal.Jurisdiction), cal.Year,
	); err != nil {
		return fmt.Errorf("clear holidays: %w", err)
	}
	for _, h := range cal.Holidays {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO holidays (jurisdiction, year, holiday_date, name, kind)
			VALUES ($1, $2, $3, $4, $5)
		`, string(cal.Jurisdiction), cal.Year, h.Date.Time(), h.Name, string(h.Kind)); err != nil {
			return fmt.Errorf("insert holiday: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p models.JurisdictionProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jurisdiction_profiles (code, parent, weekly_rest_day)
		VALUES ($1, $2, $3)
		ON CONFLICT (code)
		DO UPDATE SET parent = EXCLUDED.parent, weekly_rest_day = EXCLUDED.weekly_rest_day
	`, string(p.Code), string(p.Parent), int(p.WeeklyRestDay))
	if err != nil {
		return fmt.Errorf("upsert jurisdiction profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]models.HolidayCalendar, []models.JurisdictionProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.jurisdiction, c.year, c.version, c.published_at,
		       h.holiday_date, h.name, h.kind
		FROM holiday_calendars c
		LEFT JOIN holidays h ON h.jurisdiction = c.jurisdiction AND h.year = c.year
		ORDER BY c.version, h.holiday_date, h.name
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("query calendars: %w", err)
	}
	defer rows.Close()

	var (
		cals  []models.HolidayCalendar
		index = map[models.Key]int{}
	)
	for rows.Next() {
		var (
			jurisdiction string
			year         int
			version      int64
			publishedAt  time.Time
			date         sql.NullTime
			name, kind   sql.NullString
		)
		if err := rows.Scan(&jurisdiction, &year, &version, &publishedAt, &date, &name, &kind); err != nil {
			return nil, nil, fmt.Errorf("scan calendar: %w", err)
		}
		key := models.Key{Jurisdiction: domain.Jurisdiction(jurisdiction), Year: year}
		i, ok := index[key]
		if !ok {
			cals = append(cals, models.HolidayCalendar{
				Jurisdiction: key.Jurisdiction,
				Year:         year,
				Version:      version,
				PublishedAt:  publishedAt,
			})
			i = len(cals) - 1
			index[key] = i
		}
		if date.Valid {
			cals[i].Holidays = append(cals[i].Holidays, models.Holiday{
				Date: domain.DateOf(date.Time),
				Name: name.String,
				Kind: models.HolidayKind(kind.String),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate calendars: %w", err)
	}

	profiles, err := s.loadProfiles(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cals, profiles, nil
}

func (s *PostgresStore) loadProfiles(ctx context.Context) ([]models.JurisdictionProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, parent, weekly_rest_day FROM jurisdiction_profiles ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.JurisdictionProfile
	for rows.Next() {
		var (
			code, parent string
			restDay      int
		)
		if err := rows.Scan(&code, &parent, &restDay); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, models.JurisdictionProfile{
			Code:          domain.Jurisdiction(code),
			Parent:        domain.Jurisdiction(parent),
			WeeklyRestDay: time.Weekday(restDay),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

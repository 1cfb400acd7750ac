package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	timeline "sahayak/internal/timeline/models"
	"sahayak/internal/tracking/models"
	"sahayak/pkg/domain"
	"sahayak/pkg/platform/sentinel"
	txcontext "sahayak/pkg/platform/tx"
)

const recordColumns = `
	id, owner_id, service, jurisdiction, submission_date, computed_deadline, status, overdue_days,
	rule_duration_units, rule_unit, rule_effective_from, rule_version, rule_manual,
	breach_reported, last_evaluated_at, created_at, completed_at, version, request_key`

const uniqueViolation = "23505"

// PostgresStore keeps records in application_records. Execute serializes
// writers on the row lock taken by SELECT ... FOR UPDATE.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) conn(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Record) error {
	if err := r.CheckInvariants(); err != nil {
		return err
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO application_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, recordArgs(r)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("application %s: %w", r.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert application record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ApplicationID) (*models.Record, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+recordColumns+` FROM application_records WHERE id = $1`, uuid.UUID(id))
	return scanRecord(row)
}

func (s *PostgresStore) Get(ctx context.Context, owner domain.OwnerID, id domain.ApplicationID) (*models.Record, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM application_records WHERE id = $1 AND owner_id = $2`,
		uuid.UUID(id), uuid.UUID(owner))
	return scanRecord(row)
}

// FindByRequestKey returns the owner's record created under key.
func (s *PostgresStore) FindByRequestKey(ctx context.Context, owner domain.OwnerID, key string) (*models.Record, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM application_records WHERE owner_id = $1 AND request_key = $2`,
		uuid.UUID(owner), key)
	return scanRecord(row)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*models.Record, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+recordColumns+` FROM application_records WHERE owner_id = $1`, uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list application records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate application records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListActiveIDs(ctx context.Context) ([]domain.ApplicationID, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT id FROM application_records WHERE status <> 'completed'`)
	if err != nil {
		return nil, fmt.Errorf("list active applications: %w", err)
	}
	defer rows.Close()

	var ids []domain.ApplicationID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan application id: %w", err)
		}
		ids = append(ids, domain.ApplicationID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate application ids: %w", err)
	}
	return ids, nil
}

// Execute locks the row, runs validate then mutate, and writes the result
// with the version incremented, all in one transaction.
func (s *PostgresStore) Execute(ctx context.Context, id domain.ApplicationID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	var out *models.Record
	err := txcontext.Join(ctx, s.db, func(ctx context.Context, _ *sql.Tx) error {
		r, err := s.execute(ctx, id, validate, mutate)
		out = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) execute(ctx context.Context, id domain.ApplicationID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	q := s.conn(ctx)
	r, err := scanRecord(q.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM application_records WHERE id = $1 FOR UPDATE`, uuid.UUID(id)))
	if err != nil {
		return nil, err
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	previous := r.Version
	mutate(r)
	r.Version = previous + 1
	if err := r.CheckInvariants(); err != nil {
		return nil, err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE application_records SET
			computed_deadline = $2, status = $3, overdue_days = $4,
			rule_duration_units = $5, rule_unit = $6, rule_effective_from = $7, rule_version = $8, rule_manual = $9,
			breach_reported = $10, last_evaluated_at = $11, completed_at = $12, version = $13
		WHERE id = $1 AND version = $14
	`, uuid.UUID(r.ID), r.Deadline.Time(), string(r.Status), r.OverdueDays,
		r.Rule.DurationUnits, string(r.Rule.Unit), r.Rule.EffectiveFrom.Time(), r.Rule.SourceVersion, r.Rule.IsManual(),
		r.BreachReported, r.LastEvaluatedAt, r.CompletedAt, r.Version, previous)
	if err != nil {
		return nil, fmt.Errorf("update application record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, sentinel.ErrConflict
	}
	return r, nil
}

func (s *PostgresStore) DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM application_records WHERE owner_id = $1`, uuid.UUID(owner))
	if err != nil {
		return 0, fmt.Errorf("delete application records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted application records: %w", err)
	}
	return int(n), nil
}

func recordArgs(r *models.Record) []any {
	return []any{
		uuid.UUID(r.ID), uuid.UUID(r.OwnerID), string(r.Service), string(r.Jurisdiction),
		r.SubmissionDate.Time(), r.Deadline.Time(), string(r.Status), r.OverdueDays,
		r.Rule.DurationUnits, string(r.Rule.Unit), r.Rule.EffectiveFrom.Time(), r.Rule.SourceVersion, r.Rule.IsManual(),
		r.BreachReported, r.LastEvaluatedAt, r.CreatedAt, r.CompletedAt, r.Version,
		sql.NullString{String: r.RequestKey, Valid: r.RequestKey != ""},
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		r                             models.Record
		id, owner                     uuid.UUID
		service, jurisdiction, status string
		submission, due, ruleFrom     time.Time
		ruleUnit                      string
		manual                        bool
		completedAt                   sql.NullTime
		requestKey                    sql.NullString
	)
	err := row.Scan(&id, &owner, &service, &jurisdiction, &submission, &due, &status, &r.OverdueDays,
		&r.Rule.DurationUnits, &ruleUnit, &ruleFrom, &r.Rule.SourceVersion, &manual,
		&r.BreachReported, &r.LastEvaluatedAt, &r.CreatedAt, &completedAt, &r.Version, &requestKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application record: %w", err)
	}
	r.ID = domain.ApplicationID(id)
	r.OwnerID = domain.OwnerID(owner)
	r.Service = domain.ServiceID(service)
	r.Jurisdiction = domain.Jurisdiction(jurisdiction)
	r.SubmissionDate = domain.DateOf(submission)
	r.Deadline = domain.DateOf(due)
	r.Status = models.Status(status)
	r.Rule.Service = r.Service
	r.Rule.Jurisdiction = r.Jurisdiction
	r.Rule.Unit = timeline.Unit(ruleUnit)
	r.Rule.EffectiveFrom = domain.DateOf(ruleFrom)
	r.RequestKey = requestKey.String
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

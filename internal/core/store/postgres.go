package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sahayak/internal/core/models"
	"sahayak/pkg/domain"
	txcontext "sahayak/pkg/platform/tx"
)

// PostgresStore keeps pending deletions in pending_deletions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) conn(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

func (s *PostgresStore) Save(ctx context.Context, p models.PendingDeletion) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO pending_deletions (owner_id, requested_at, attempts, last_error)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (owner_id)
		DO UPDATE SET attempts = pending_deletions.attempts + 1, last_error = EXCLUDED.last_error
	`, uuid.UUID(p.OwnerID), p.RequestedAt, p.LastError)
	if err != nil {
		return fmt.Errorf("save pending deletion: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.PendingDeletion, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT owner_id, requested_at, attempts, last_error
		FROM pending_deletions
		ORDER BY requested_at, owner_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending deletions: %w", err)
	}
	defer rows.Close()

	var out []models.PendingDeletion
	for rows.Next() {
		var (
			owner uuid.UUID
			p     models.PendingDeletion
		)
		if err := rows.Scan(&owner, &p.RequestedAt, &p.Attempts, &p.LastError); err != nil {
			return nil, fmt.Errorf("scan pending deletion: %w", err)
		}
		p.OwnerID = domain.OwnerID(owner)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending deletions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, owner domain.OwnerID) (models.PendingDeletion, bool, error) {
	p := models.PendingDeletion{OwnerID: owner}
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT requested_at, attempts, last_error
		FROM pending_deletions
		WHERE owner_id = $1
	`, uuid.UUID(owner)).Scan(&p.RequestedAt, &p.Attempts, &p.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PendingDeletion{}, false, nil
	}
	if err != nil {
		return models.PendingDeletion{}, false, fmt.Errorf("get pending deletion: %w", err)
	}
	return p, true, nil
}

func (s *PostgresStore) Remove(ctx context.Context, owner domain.OwnerID) error {
	if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM pending_deletions WHERE owner_id = $1`, uuid.UUID(owner)); err != nil {
		return fmt.Errorf("remove pending deletion: %w", err)
	}
	return nil
}

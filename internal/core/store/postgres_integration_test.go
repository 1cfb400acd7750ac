//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"sahayak/internal/core/models"
	"sahayak/internal/core/store"
	"sahayak/pkg/domain"
	"sahayak/pkg/testutil/containers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "pending_deletions"))
}

func (s *PostgresStoreSuite) TestSaveCountsAttempts() {
	ctx := context.Background()
	owner := domain.OwnerID(uuid.New())
	s.Require().NoError(s.store.Save(ctx, models.PendingDeletion{OwnerID: owner, RequestedAt: s.now, LastError: "first"}))
	s.Require().NoError(s.store.Save(ctx, models.PendingDeletion{OwnerID: owner, RequestedAt: s.now.Add(time.Hour), LastError: "second"}))

	p, ok, err := s.store.Get(ctx, owner)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.True(s.now.Equal(p.RequestedAt))
	s.Equal(2, p.Attempts)
	s.Equal("second", p.LastError)

	list, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *PostgresStoreSuite) TestRemove() {
	ctx := context.Background()
	owner := domain.OwnerID(uuid.New())
	s.Require().NoError(s.store.Save(ctx, models.PendingDeletion{OwnerID: owner, RequestedAt: s.now}))
	s.Require().NoError(s.store.Remove(ctx, owner))

	_, ok, err := s.store.Get(ctx, owner)
	s.Require().NoError(err)
	s.False(ok)
}

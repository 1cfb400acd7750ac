package store_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	"sahayak/pkg/platform/sentinel"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type sessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id domain.SessionID) (*models.Session, error)
	CompareAndSwap(ctx context.Context, next *models.Session) (*models.Session, error)
	ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*models.Session, error)
	ListActiveSince(ctx context.Context, since time.Time) ([]domain.SessionID, error)
	DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error)
	PurgeInactiveBefore(ctx context.Context, cutoff time.Time) ([]*models.Session, error)
}

// contractSuite holds the behavior every session store must share.
// Embedding suites set store in SetupTest.
type contractSuite struct {
	suite.Suite
	store sessionStore
	ctx   context.Context
	now   time.Time
}

func (s *contractSuite) newSession(owner domain.OwnerID, at time.Time) *models.Session {
	session := models.NewSession(domain.NewSessionID(), owner, "kn", at)
	s.Require().NoError(s.store.Create(s.ctx, session))
	return session
}

func newOwner() domain.OwnerID {
	return domain.OwnerID(uuid.New())
}

func (s *contractSuite) TestCreateAndGet() {
	session := s.newSession(newOwner(), s.now)
	s.Equal(int64(1), session.Version)

	got, err := s.store.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session, got)

	err = s.store.Create(s.ctx, session)
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.Get(s.ctx, domain.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *contractSuite) TestConcurrentCreatesHaveOneWinner() {
	owner := newOwner()
	session := models.NewSession(domain.NewSessionID(), owner, "kn", s.now)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.store.Create(s.ctx, session.Clone())
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		s.ErrorIs(err, sentinel.ErrConflict)
	}
	s.Equal(1, created)

	owned, err := s.store.ListByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Len(owned, 1)
	live, err := s.store.ListActiveSince(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal([]domain.SessionID{session.ID}, live)
}

func (s *contractSuite) TestCompareAndSwapBumpsVersion() {
	session := s.newSession(newOwner(), s.now)

	next := session.Clone()
	next.State = models.StateAwaitingInput
	next.Flow = models.FlowEligibilityCheck
	stored, err := s.store.CompareAndSwap(s.ctx, next)
	s.Require().NoError(err)
	s.Equal(int64(2), stored.Version)
	s.Equal(models.FlowEligibilityCheck, stored.Flow)

	_, err = s.store.CompareAndSwap(s.ctx, next)
	s.ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(stored, got)
}

func (s *contractSuite) TestConcurrentSwapsHaveOneWinner() {
	session := s.newSession(newOwner(), s.now)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := session.Clone()
			next.InputRetries = i
			_, err := s.store.CompareAndSwap(s.ctx, next)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, sentinel.ErrConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()
	s.Equal(1, wins)
	s.Equal(writers-1, conflicts)

	got, err := s.store.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version)
}

func (s *contractSuite) TestCompareAndSwapMissingSession() {
	orphan := models.NewSession(domain.NewSessionID(), newOwner(), "en", s.now)
	_, err := s.store.CompareAndSwap(s.ctx, orphan)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *contractSuite) TestListAndDeleteByOwner() {
	owner, other := newOwner(), newOwner()
	first := s.newSession(owner, s.now)
	second := s.newSession(owner, s.now.Add(time.Minute))
	kept := s.newSession(other, s.now)

	listed, err := s.store.ListByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(first.ID, listed[0].ID)
	s.Equal(second.ID, listed[1].ID)

	deleted, err := s.store.DeleteByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(2, deleted)

	_, err = s.store.Get(s.ctx, first.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	listed, err = s.store.ListByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Empty(listed)

	_, err = s.store.Get(s.ctx, kept.ID)
	s.NoError(err)

	deleted, err = s.store.DeleteByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Zero(deleted)
}

func (s *contractSuite) TestPurgeInactiveBefore() {
	owner := newOwner()
	stale := s.newSession(owner, s.now.Add(-91*24*time.Hour))
	fresh := s.newSession(owner, s.now.Add(-time.Hour))

	purged, err := s.store.PurgeInactiveBefore(s.ctx, s.now.Add(-90*24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(purged, 1)
	s.Equal(stale.ID, purged[0].ID)
	s.Equal(owner, purged[0].OwnerID)

	_, err = s.store.Get(s.ctx, stale.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Get(s.ctx, fresh.ID)
	s.NoError(err)

	ids, err := s.store.ListActiveSince(s.ctx, s.now.Add(-90*24*time.Hour))
	s.Require().NoError(err)
	s.Equal([]domain.SessionID{fresh.ID}, ids)

	listed, err := s.store.ListByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Len(listed, 1)
}

func (s *contractSuite) TestListActiveSinceSkipsQuietSessions() {
	owner := newOwner()
	quiet := s.newSession(owner, s.now.Add(-3*time.Hour))
	live := s.newSession(owner, s.now.Add(-10*time.Minute))

	ids, err := s.store.ListActiveSince(s.ctx, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal([]domain.SessionID{live.ID}, ids)
	s.NotContains(ids, quiet.ID)
}

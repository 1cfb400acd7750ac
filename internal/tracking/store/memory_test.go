package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sahayak/internal/deadline"
	timeline "sahayak/internal/timeline/models"
	"sahayak/internal/tracking/models"
	"sahayak/pkg/domain"
	"sahayak/pkg/platform/sentinel"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) newRecord(owner domain.OwnerID) *models.Record {
	rule := timeline.Rule{
		Service: "income-certificate", Jurisdiction: "IN-KA", DurationUnits: 15,
		Unit: timeline.UnitWorkingDays, EffectiveFrom: domain.NewDate(2023, 1, 1), SourceVersion: "g-1",
	}
	return models.NewRecord(domain.NewApplicationID(), owner, rule,
		domain.NewDate(2024, 1, 10), domain.NewDate(2024, 1, 27), deadline.Verdict{}, s.now)
}

func (s *InMemorySuite) TestRequestKeyIsUniquePerOwner() {
	alice, bob := domain.OwnerID(uuid.New()), domain.OwnerID(uuid.New())
	r := s.newRecord(alice)
	r.RequestKey = "session/1"
	s.Require().NoError(s.store.Create(s.ctx, r))

	dup := s.newRecord(alice)
	dup.RequestKey = r.RequestKey
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)

	other := s.newRecord(bob)
	other.RequestKey = r.RequestKey
	s.Require().NoError(s.store.Create(s.ctx, other))

	got, err := s.store.FindByRequestKey(s.ctx, alice, r.RequestKey)
	s.Require().NoError(err)
	s.Equal(r.ID, got.ID)

	_, err = s.store.FindByRequestKey(s.ctx, alice, "session/2")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.DeleteByOwner(s.ctx, alice)
	s.Require().NoError(err)
	_, err = s.store.FindByRequestKey(s.ctx, alice, r.RequestKey)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestOwnerPartitioning() {
	alice, bob := domain.OwnerID(uuid.New()), domain.OwnerID(uuid.New())
	r := s.newRecord(alice)
	s.Require().NoError(s.store.Create(s.ctx, r))
	s.Require().NoError(s.store.Create(s.ctx, s.newRecord(bob)))

	_, err := s.store.Get(s.ctx, bob, r.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	got, err := s.store.Get(s.ctx, alice, r.ID)
	s.Require().NoError(err)
	s.Equal(r.ID, got.ID)

	list, err := s.store.ListByOwner(s.ctx, alice)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *InMemorySuite) TestCreateRejectsDuplicateID() {
	r := s.newRecord(domain.OwnerID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, r))
	s.ErrorIs(s.store.Create(s.ctx, r), sentinel.ErrConflict)
}

func (s *InMemorySuite) TestExecute() {
	r := s.newRecord(domain.OwnerID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, r))

	s.Run("validation failure leaves the record untouched", func() {
		_, err := s.store.Execute(s.ctx, r.ID,
			func(*models.Record) error { return errors.New("nope") },
			func(rec *models.Record) { rec.ApplyCompletion(s.now) },
		)
		s.Require().Error(err)
		got, _ := s.store.FindByID(s.ctx, r.ID)
		s.Equal(models.StatusPending, got.Status)
		s.Equal(int64(1), got.Version)
	})

	s.Run("mutation bumps the version", func() {
		got, err := s.store.Execute(s.ctx, r.ID,
			func(*models.Record) error { return nil },
			func(rec *models.Record) { rec.ApplyVerdict(deadline.Verdict{Breached: true, OverdueDays: 4}, s.now) },
		)
		s.Require().NoError(err)
		s.Equal(int64(2), got.Version)
		s.Equal(4, got.OverdueDays)
	})

	s.Run("invariant violations are not stored", func() {
		_, err := s.store.Execute(s.ctx, r.ID,
			func(*models.Record) error { return nil },
			func(rec *models.Record) { rec.OverdueDays = -1 },
		)
		s.Require().Error(err)
		got, _ := s.store.FindByID(s.ctx, r.ID)
		s.Equal(4, got.OverdueDays)
	})

	s.Run("missing record", func() {
		_, err := s.store.Execute(s.ctx, domain.NewApplicationID(),
			func(*models.Record) error { return nil }, func(*models.Record) {})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySuite) TestReturnedRecordsAreCopies() {
	r := s.newRecord(domain.OwnerID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, r))
	r.OverdueDays = 99

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	got.Status = models.StatusCompleted

	again, _ := s.store.FindByID(s.ctx, r.ID)
	s.Equal(models.StatusPending, again.Status)
	s.Zero(again.OverdueDays)
}

func (s *InMemorySuite) TestConcurrentExecuteSameRecord() {
	r := s.newRecord(domain.OwnerID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, r))

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(days int) {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, r.ID,
				func(*models.Record) error { return nil },
				func(rec *models.Record) { rec.ApplyVerdict(deadline.Verdict{Breached: true, OverdueDays: days}, s.now) },
			)
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	got, _ := s.store.FindByID(s.ctx, r.ID)
	s.Equal(int64(51), got.Version)
}

func (s *InMemorySuite) TestMutatingOneRecordLeavesSiblingsAlone() {
	owner := domain.OwnerID(uuid.New())
	a, b := s.newRecord(owner), s.newRecord(owner)
	s.Require().NoError(s.store.Create(s.ctx, a))
	s.Require().NoError(s.store.Create(s.ctx, b))
	before, _ := s.store.FindByID(s.ctx, b.ID)

	_, err := s.store.Execute(s.ctx, a.ID, func(*models.Record) error { return nil },
		func(rec *models.Record) { rec.ApplyCompletion(s.now) })
	s.Require().NoError(err)

	after, _ := s.store.FindByID(s.ctx, b.ID)
	s.Equal(before, after)
}

func (s *InMemorySuite) TestListActiveAndDelete() {
	owner := domain.OwnerID(uuid.New())
	a, b := s.newRecord(owner), s.newRecord(owner)
	other := s.newRecord(domain.OwnerID(uuid.New()))
	for _, r := range []*models.Record{a, b, other} {
		s.Require().NoError(s.store.Create(s.ctx, r))
	}
	_, err := s.store.Execute(s.ctx, b.ID, func(*models.Record) error { return nil },
		func(rec *models.Record) { rec.ApplyCompletion(s.now) })
	s.Require().NoError(err)

	ids, err := s.store.ListActiveIDs(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]domain.ApplicationID{a.ID, other.ID}, ids)

	n, err := s.store.DeleteByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(2, n)

	_, err = s.store.FindByID(s.ctx, a.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(s.ctx, other.ID)
	s.NoError(err)
}

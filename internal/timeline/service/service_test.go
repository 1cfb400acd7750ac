package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sahayak/internal/timeline/catalog"
	"sahayak/internal/timeline/models"
	"sahayak/internal/timeline/store"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/sentinel"

	"github.com/stretchr/testify/suite"
)

type stubSource struct {
	calls atomic.Int32
	gate  chan struct{}
	rule  models.Rule
	err   error
}

func (s *stubSource) RetrieveTimelineRule(context.Context, models.Key) (models.Rule, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	return s.rule, s.err
}

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.InMemory
	key   models.Key
	today domain.Date
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.key = models.Key{Service: "income-certificate", Jurisdiction: "IN-KA"}
	s.today = domain.NewDate(2024, 1, 10)
}

func (s *ServiceSuite) published(days int, from domain.Date) models.Rule {
	return models.Rule{
		Service:       s.key.Service,
		Jurisdiction:  s.key.Jurisdiction,
		DurationUnits: days,
		Unit:          models.UnitWorkingDays,
		EffectiveFrom: from,
		SourceVersion: "gazette-" + from.String(),
	}
}

func (s *ServiceSuite) TestResolveFromCatalog() {
	svc := New(catalog.New(), s.store)
	_, err := svc.Publish(s.ctx, s.published(15, domain.NewDate(2023, 4, 1)))
	s.Require().NoError(err)

	rule, err := svc.Resolve(s.ctx, s.key, s.today)
	s.Require().NoError(err)
	s.Equal(15, rule.DurationUnits)
	s.False(rule.RecordedAt.IsZero())
}

func (s *ServiceSuite) TestResolveMissWithoutSource() {
	svc := New(catalog.New(), s.store)
	_, err := svc.Resolve(s.ctx, s.key, s.today)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestResolveThroughSource() {
	s.Run("retrieved rule is appended and persisted", func() {
		src := &stubSource{rule: s.published(15, domain.NewDate(2023, 4, 1))}
		svc := New(catalog.New(), s.store, WithSource(src))

		rule, err := svc.Resolve(s.ctx, s.key, s.today)
		s.Require().NoError(err)
		s.Equal(15, rule.DurationUnits)

		_, err = svc.Resolve(s.ctx, s.key, s.today)
		s.Require().NoError(err)
		s.Equal(int32(1), src.calls.Load())

		stored, err := s.store.LoadAll(s.ctx)
		s.Require().NoError(err)
		s.Len(stored, 1)
	})

	s.Run("source reports no rule", func() {
		svc := New(catalog.New(), store.NewInMemory(), WithSource(&stubSource{err: sentinel.ErrNotFound}))
		_, err := svc.Resolve(s.ctx, s.key, s.today)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("source unavailable", func() {
		svc := New(catalog.New(), store.NewInMemory(), WithSource(&stubSource{err: errors.New("connection refused")}))
		_, err := svc.Resolve(s.ctx, s.key, s.today)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.NotContains(dErrors.UserMessage(err), "connection refused")
	})

	s.Run("invalid retrieved rule is rejected", func() {
		bad := s.published(0, domain.NewDate(2023, 4, 1))
		svc := New(catalog.New(), store.NewInMemory(), WithSource(&stubSource{rule: bad}))
		_, err := svc.Resolve(s.ctx, s.key, s.today)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRule))
		s.Empty(svc.Snapshot().History(s.key))
	})

	s.Run("retrieved rule not yet in force", func() {
		future := s.published(10, domain.NewDate(2024, 6, 1))
		svc := New(catalog.New(), store.NewInMemory(), WithSource(&stubSource{rule: future}))
		_, err := svc.Resolve(s.ctx, s.key, s.today)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestConcurrentMissesShareOneLookup() {
	src := &stubSource{gate: make(chan struct{}), rule: s.published(15, domain.NewDate(2023, 4, 1))}
	svc := New(catalog.New(), s.store, WithSource(src))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Resolve(s.ctx, s.key, s.today)
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}
	s.LessOrEqual(src.calls.Load(), int32(2))
}

func (s *ServiceSuite) TestWarm() {
	s.Require().NoError(s.store.Append(s.ctx, s.published(21, domain.NewDate(2022, 1, 1))))
	s.Require().NoError(s.store.Append(s.ctx, s.published(15, domain.NewDate(2023, 4, 1))))

	svc := New(catalog.New(), s.store)
	s.Require().NoError(svc.Warm(s.ctx))

	rule, err := svc.Resolve(s.ctx, s.key, s.today)
	s.Require().NoError(err)
	s.Equal(15, rule.DurationUnits)
	s.Len(svc.Snapshot().History(s.key), 2)
}

func (s *ServiceSuite) TestPublishRejectsManualRule() {
	svc := New(catalog.New(), s.store)
	manual := models.ManualRule(s.key, 30, models.UnitCalendarDays, s.today, domain.NewSessionID())
	_, err := svc.Publish(s.ctx, manual)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

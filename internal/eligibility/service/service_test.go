package service

import (
	"context"
	"errors"
	"testing"

	"sahayak/internal/eligibility/models"
	"sahayak/internal/eligibility/store"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/audit"
	"sahayak/pkg/platform/audit/publisher"
	auditmemory "sahayak/pkg/platform/audit/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	parcels *store.InMemory
	events  *auditmemory.InMemoryStore
	service *Service
	owner   domain.OwnerID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.parcels = store.NewInMemory()
	s.events = auditmemory.NewInMemoryStore()
	s.service = New(s.parcels, WithAuditor(publisher.NewPublisher(s.events)))
	s.owner = domain.OwnerID(uuid.New())
}

func minArea(v float64) *float64 { return &v }

func (s *ServiceSuite) TestRecordThenEvaluate() {
	_, err := s.service.RecordParcels(s.ctx, s.owner, []models.Parcel{
		{SurveyNumber: "12/3", Area: 2.0, AreaUnit: "acres", Category: "Dry Land"},
		{SurveyNumber: "14/1", Area: 1.5, AreaUnit: "acre", Category: "Irrigated"},
	})
	s.Require().NoError(err)

	rules := []models.SchemeRule{
		{ID: "pm-kisan", MinArea: minArea(3.0), AllowedCategories: []string{"irrigated", "dry"}, BenefitAmount: 6000},
		{ID: "marginal", MaxArea: minArea(2.5), AllowedCategories: []string{"dry-land"}, BenefitAmount: 2000},
		{ID: "wetland", AllowedCategories: []string{"wet"}, BenefitAmount: 9000},
	}
	result, err := s.service.Evaluate(s.ctx, s.owner, rules, nil)
	s.Require().NoError(err)

	s.Require().Len(result.Eligible, 1)
	s.Equal("pm-kisan", result.Eligible[0].Scheme.ID)
	s.Require().Len(result.NearMiss, 1)
	s.Equal("marginal", result.NearMiss[0].Scheme.ID)
	s.Equal([]string{models.ConditionMaxArea}, result.NearMiss[0].UnmatchedConditions)

	events, err := s.events.ListByOwner(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventEligibilityEvaluated), events[0].Action)
	s.Equal("eligible=1 near_miss=1", events[0].Decision)
}

func (s *ServiceSuite) TestRecordParcels_Rejects() {
	tests := []struct {
		name    string
		owner   domain.OwnerID
		parcels []models.Parcel
	}{
		{"no owner", domain.OwnerID{}, []models.Parcel{{SurveyNumber: "1", Area: 1, AreaUnit: "acre", Category: "dry"}}},
		{"empty", s.owner, nil},
		{"bad unit", s.owner, []models.Parcel{{SurveyNumber: "1", Area: 1, AreaUnit: "bigha", Category: "dry"}}},
		{"duplicate survey", s.owner, []models.Parcel{
			{SurveyNumber: "1", Area: 1, AreaUnit: "acre", Category: "dry"},
			{SurveyNumber: " 1", Area: 2, AreaUnit: "acre", Category: "dry"},
		}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.RecordParcels(s.ctx, tt.owner, tt.parcels)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
	parcels, err := s.parcels.ListByOwner(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Empty(parcels)
}

func (s *ServiceSuite) TestResubmittedParcelsReplaceEarlierOnes() {
	_, err := s.service.RecordParcels(s.ctx, s.owner, []models.Parcel{
		{SurveyNumber: "12", Area: 1.5, AreaUnit: "acre", Category: "dry"},
	})
	s.Require().NoError(err)
	_, err = s.service.RecordParcels(s.ctx, s.owner, []models.Parcel{
		{SurveyNumber: "12A", Area: 1.5, AreaUnit: "acre", Category: "dry"},
	})
	s.Require().NoError(err)

	parcels, err := s.service.Parcels(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(parcels, 1)
	s.Equal("12A", parcels[0].SurveyNumber)

	result, err := s.service.Evaluate(s.ctx, s.owner, []models.SchemeRule{
		{ID: "small-holder", MaxArea: minArea(2.0), BenefitAmount: 3000},
	}, nil)
	s.Require().NoError(err)
	s.Require().Len(result.Eligible, 1)
	s.Equal("small-holder", result.Eligible[0].Scheme.ID)
}

func (s *ServiceSuite) TestEvaluate_WithoutParcels() {
	_, err := s.service.Evaluate(s.ctx, s.owner, []models.SchemeRule{{ID: "any"}}, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestEvaluate_AuditFailureDoesNotFailEvaluation() {
	svc := New(s.parcels, WithAuditor(failingAuditor{}))
	_, err := svc.RecordParcels(s.ctx, s.owner, []models.Parcel{{SurveyNumber: "1", Area: 1, AreaUnit: "acre", Category: "dry"}})
	s.Require().NoError(err)

	result, err := svc.Evaluate(s.ctx, s.owner, []models.SchemeRule{{ID: "any"}}, nil)
	s.Require().NoError(err)
	s.Len(result.Eligible, 1)
}

func (s *ServiceSuite) TestDeleteByOwner() {
	_, err := s.service.RecordParcels(s.ctx, s.owner, []models.Parcel{{SurveyNumber: "1", Area: 1, AreaUnit: "acre", Category: "dry"}})
	s.Require().NoError(err)

	n, err := s.service.DeleteByOwner(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Equal(1, n)
}

type failingAuditor struct{}

func (failingAuditor) Emit(context.Context, audit.Event) error { return errors.New("store down") }

//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"sahayak/internal/calendar/models"
	"sahayak/internal/calendar/store"
	"sahayak/pkg/domain"
	"sahayak/pkg/testutil/containers"

	"github.com/stretchr/testify/suite"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
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
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "holidays", "holiday_calendars", "jurisdiction_profiles"))
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	cal := models.HolidayCalendar{
		Jurisdiction: "IN-KA",
		Year:         2024,
		Version:      3,
		PublishedAt:  time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		Holidays: []models.Holiday{
			{Date: domain.NewDate(2024, 1, 15), Name: "Makara Sankranti", Kind: models.KindRegional},
			{Date: domain.NewDate(2024, 1, 25), Name: "Restricted Holiday", Kind: models.KindOptional},
		},
	}
	s.Require().NoError(s.store.SaveCalendar(ctx, cal))
	s.Require().NoError(s.store.SaveCalendar(ctx, models.HolidayCalendar{Jurisdiction: "IN", Year: 2024, Version: 4, PublishedAt: cal.PublishedAt}))
	s.Require().NoError(s.store.SaveProfile(ctx, models.JurisdictionProfile{Code: "IN-KA", Parent: "IN", WeeklyRestDay: time.Sunday}))

	cals, profiles, err := s.store.LoadAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(cals, 2)
	s.Equal(cal.Holidays, cals[0].Holidays)
	s.Empty(cals[1].Holidays)
	s.Require().Len(profiles, 1)
	s.Equal(domain.Jurisdiction("IN"), profiles[0].Parent)
}

func (s *PostgresStoreSuite) TestSaveReplacesHolidays() {
	ctx := context.Background()
	cal := models.HolidayCalendar{Jurisdiction: "IN", Year: 2024, Version: 1, PublishedAt: time.Now().UTC(), Holidays: []models.Holiday{
		{Date: domain.NewDate(2024, 1, 26), Name: "Republic Day", Kind: models.KindNational},
	}}
	s.Require().NoError(s.store.SaveCalendar(ctx, cal))

	cal.Version = 2
	cal.Holidays = []models.Holiday{{Date: domain.NewDate(2024, 8, 15), Name: "Independence Day", Kind: models.KindNational}}
	s.Require().NoError(s.store.SaveCalendar(ctx, cal))

	cals, _, err := s.store.LoadAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(cals, 1)
	s.Require().Len(cals[0].Holidays, 1)
	s.Equal("Independence Day", cals[0].Holidays[0].Name)
}

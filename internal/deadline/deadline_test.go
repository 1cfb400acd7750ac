package deadline

import (
	"math/rand"
	"testing"

	"sahayak/internal/calendar/catalog"
	"sahayak/internal/calendar/models"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"

	"github.com/stretchr/testify/suite"
)

type DeadlineSuite struct {
	suite.Suite
	snapshot *catalog.Snapshot
}

func TestDeadlineSuite(t *testing.T) {
	suite.Run(t, new(DeadlineSuite))
}

func (s *DeadlineSuite) SetupSuite() {
	c := catalog.New()
	_, err := c.PublishProfile(models.JurisdictionProfile{Code: "IN-KA", Parent: "IN"})
	s.Require().NoError(err)
	for _, year := range []int{2023, 2024, 2025} {
		_, _, err := c.Publish(models.HolidayCalendar{Jurisdiction: "IN-PLAIN", Year: year})
		s.Require().NoError(err)
		_, _, err = c.Publish(models.HolidayCalendar{Jurisdiction: "IN-KA", Year: year, Holidays: []models.Holiday{
			{Date: domain.NewDate(year, 1, 15), Name: "Makara Sankranti", Kind: models.KindRegional},
			{Date: domain.NewDate(year, 11, 1), Name: "Rajyotsava", Kind: models.KindRegional},
		}})
		s.Require().NoError(err)
		_, _, err = c.Publish(models.HolidayCalendar{Jurisdiction: "IN", Year: year, Holidays: []models.Holiday{
			{Date: domain.NewDate(year, 1, 26), Name: "Republic Day", Kind: models.KindNational},
			{Date: domain.NewDate(year, 8, 15), Name: "Independence Day", Kind: models.KindNational},
			{Date: domain.NewDate(year, 10, 2), Name: "Gandhi Jayanti", Kind: models.KindNational},
		}})
		s.Require().NoError(err)
	}
	s.snapshot = c.Snapshot()
}

func rule(days int, unit timeline.Unit) timeline.Rule {
	return timeline.Rule{DurationUnits: days, Unit: unit}
}

func (s *DeadlineSuite) TestWorkingDaysScenario() {
	submission := domain.NewDate(2024, 1, 10)
	today := domain.NewDate(2024, 1, 10)

	deadline, err := ComputeDeadline(submission, rule(15, timeline.UnitWorkingDays), "IN-PLAIN", today, s.snapshot)
	s.Require().NoError(err)
	s.Equal(domain.NewDate(2024, 1, 27), deadline)

	verdict := Evaluate(submission, deadline, domain.NewDate(2024, 2, 5))
	s.True(verdict.Breached)
	s.Equal(9, verdict.OverdueDays)
}

func (s *DeadlineSuite) TestCalendarDays() {
	tests := []struct {
		name       string
		submission domain.Date
		days       int
		want       domain.Date
	}{
		{"within month", domain.NewDate(2024, 1, 10), 15, domain.NewDate(2024, 1, 25)},
		{"into leap day", domain.NewDate(2024, 2, 14), 15, domain.NewDate(2024, 2, 29)},
		{"past february in a common year", domain.NewDate(2023, 2, 14), 15, domain.NewDate(2023, 3, 1)},
		{"across year end", domain.NewDate(2023, 12, 20), 30, domain.NewDate(2024, 1, 19)},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := ComputeDeadline(tt.submission, rule(tt.days, timeline.UnitCalendarDays), "NOWHERE", tt.submission, s.snapshot)
			s.Require().NoError(err)
			s.Equal(tt.want, got)
		})
	}
}

func (s *DeadlineSuite) TestRejectsBadInput() {
	today := domain.NewDate(2024, 1, 10)

	s.Run("non-positive duration", func() {
		_, err := ComputeDeadline(today, rule(0, timeline.UnitWorkingDays), "IN-KA", today, s.snapshot)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRule))
	})

	s.Run("unknown unit", func() {
		_, err := ComputeDeadline(today, rule(5, "fortnights"), "IN-KA", today, s.snapshot)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRule))
	})

	s.Run("submission after today", func() {
		_, err := ComputeDeadline(today.AddDays(1), rule(5, timeline.UnitCalendarDays), "IN-KA", today, s.snapshot)
		s.True(dErrors.HasCode(err, dErrors.CodeFutureSubmission))
	})

	s.Run("submission today is accepted", func() {
		_, err := ComputeDeadline(today, rule(5, timeline.UnitCalendarDays), "IN-KA", today, s.snapshot)
		s.NoError(err)
	})

	s.Run("calendar data missing is surfaced", func() {
		_, err := ComputeDeadline(domain.NewDate(2025, 12, 20), rule(20, timeline.UnitWorkingDays), "IN-KA", domain.NewDate(2025, 12, 20), s.snapshot)
		s.ErrorIs(err, catalog.ErrCalendarDataMissing)
		s.True(dErrors.HasCode(err, dErrors.CodeCalendarDataMissing))
	})
}

func (s *DeadlineSuite) TestRegionalAndNationalHolidaysAreSkipped() {
	// Skips Sun 14, Mon 15 (regional), Sun 21 and Fri 26 (national).
	deadline, err := ComputeDeadline(domain.NewDate(2024, 1, 19), rule(7, timeline.UnitWorkingDays), "IN-KA", domain.NewDate(2024, 1, 19), s.snapshot)
	s.Require().NoError(err)
	s.Equal(domain.NewDate(2024, 1, 29), deadline)

	deadline, err = ComputeDeadline(domain.NewDate(2024, 1, 12), rule(10, timeline.UnitWorkingDays), "IN-KA", domain.NewDate(2024, 1, 12), s.snapshot)
	s.Require().NoError(err)
	s.Equal(domain.NewDate(2024, 1, 25), deadline)
}

func (s *DeadlineSuite) TestComputeThenCountRoundTrip() {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		submission := domain.NewDate(2023, 1, 1).AddDays(rng.Intn(600))
		days := 1 + rng.Intn(60)
		j := domain.Jurisdiction("IN-KA")
		if i%2 == 0 {
			j = "IN-PLAIN"
		}

		deadline, err := ComputeDeadline(submission, rule(days, timeline.UnitWorkingDays), j, submission, s.snapshot)
		s.Require().NoError(err)

		count, err := s.snapshot.CountWorkingDays(submission, deadline, j)
		s.Require().NoError(err)
		s.Equal(days, count, "submission %s, %d working days in %s", submission, days, j)
		s.LessOrEqual(count, domain.CalendarDaysBetween(submission, deadline))

		working, err := s.snapshot.IsWorkingDay(deadline, j)
		s.Require().NoError(err)
		s.True(working, "deadline %s must be a working day", deadline)
	}
}

func (s *DeadlineSuite) TestPastSubmissionsNeverFutureError() {
	rng := rand.New(rand.NewSource(11))
	today := domain.NewDate(2024, 6, 30)
	for i := 0; i < 200; i++ {
		submission := today.AddDays(-1 - rng.Intn(400))
		_, err := ComputeDeadline(submission, rule(1+rng.Intn(90), timeline.UnitCalendarDays), "IN-KA", today, s.snapshot)
		s.Require().NoError(err)

		_, err = ComputeDeadline(today.AddDays(1+rng.Intn(400)), rule(5, timeline.UnitCalendarDays), "IN-KA", today, s.snapshot)
		s.True(dErrors.HasCode(err, dErrors.CodeFutureSubmission))
	}
}

// Package deadline computes statutory processing deadlines and breach
// verdicts. Everything here is a pure function of its arguments.
package deadline

import (
	"fmt"

	"sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
)

// maxScanDays bounds the working-day walk. No real calendar closes offices
// for ten years straight, so reaching it means the catalog is broken.
const maxScanDays = 3660

// CalendarView answers working-day questions against one catalog snapshot.
type CalendarView interface {
	IsWorkingDay(date domain.Date, j domain.Jurisdiction) (bool, error)
}

// ComputeDeadline returns the date on which the rule's processing time runs out.
//
// Calendar-day rules add the duration to the submission date. Working-day
// rules walk forward one day at a time from the day after submission and
// stop on the day the working-day count reaches the duration.
func ComputeDeadline(submission domain.Date, rule models.Rule, j domain.Jurisdiction, today domain.Date, view CalendarView) (domain.Date, error) {
	if err := rule.Validate(); err != nil {
		return domain.Date{}, err
	}
	if submission.After(today) {
		return domain.Date{}, dErrors.Field(dErrors.CodeFutureSubmission, "submission_date",
			fmt.Sprintf("The submission date %s is in the future. Enter the date printed on your acknowledgement.", submission))
	}

	switch rule.Unit {
	case models.UnitCalendarDays:
		return submission.AddDays(rule.DurationUnits), nil
	case models.UnitWorkingDays:
		return advanceWorkingDays(submission, rule.DurationUnits, j, view)
	default:
		return domain.Date{}, dErrors.Field(dErrors.CodeInvalidRule, "unit", "the processing time unit is not supported")
	}
}

func advanceWorkingDays(from domain.Date, n int, j domain.Jurisdiction, view CalendarView) (domain.Date, error) {
	day := from
	counted := 0
	for scanned := 0; scanned < maxScanDays; scanned++ {
		day = day.AddDays(1)
		working, err := view.IsWorkingDay(day, j)
		if err != nil {
			return domain.Date{}, err
		}
		if !working {
			continue
		}
		counted++
		if counted == n {
			return day, nil
		}
	}
	return domain.Date{}, dErrors.New(dErrors.CodeInvalidRule, "the processing time does not fit within the published calendars")
}

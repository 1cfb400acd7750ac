package models

import (
	"testing"
	"time"

	"sahayak/internal/deadline"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC)

func publishedRule(from domain.Date) timeline.Rule {
	return timeline.Rule{
		Service: "income-certificate", Jurisdiction: "IN-KA",
		DurationUnits: 15, Unit: timeline.UnitWorkingDays,
		EffectiveFrom: from, SourceVersion: "g-" + from.String(),
	}
}

func newPending() *Record {
	return NewRecord(domain.NewApplicationID(), domain.OwnerID(uuid.New()), publishedRule(domain.NewDate(2023, 1, 1)),
		domain.NewDate(2024, 1, 10), domain.NewDate(2024, 1, 27), deadline.Verdict{}, now)
}

func TestApplyVerdict(t *testing.T) {
	r := newPending()
	require.NoError(t, r.CheckInvariants())

	assert.True(t, r.ApplyVerdict(deadline.Verdict{Breached: true, OverdueDays: 9}, now))
	assert.Equal(t, StatusBreached, r.Status)
	assert.Equal(t, 9, r.OverdueDays)
	require.NoError(t, r.CheckInvariants())

	assert.False(t, r.ApplyVerdict(deadline.Verdict{Breached: true, OverdueDays: 10}, now), "already breached")
	assert.Equal(t, 10, r.OverdueDays)

	assert.False(t, r.ApplyVerdict(deadline.Verdict{}, now), "deadline extended by a new rule")
	assert.Equal(t, StatusPending, r.Status)
	assert.Zero(t, r.OverdueDays)
	require.NoError(t, r.CheckInvariants())
}

func TestCompletion(t *testing.T) {
	r := newPending()
	r.ApplyVerdict(deadline.Verdict{Breached: true, OverdueDays: 3}, now)

	require.NoError(t, r.CanComplete())
	r.ApplyCompletion(now)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Zero(t, r.OverdueDays)
	require.NoError(t, r.CheckInvariants())
	require.Error(t, r.CanComplete())

	assert.False(t, r.ApplyVerdict(deadline.Verdict{Breached: true, OverdueDays: 30}, now))
	assert.Equal(t, StatusCompleted, r.Status)
}

func TestCheckInvariants(t *testing.T) {
	r := newPending()
	r.OverdueDays = 2
	require.Error(t, r.CheckInvariants())

	r = newPending()
	r.Status = StatusBreached
	require.Error(t, r.CheckInvariants())

	r = newPending()
	r.Deadline = domain.NewDate(2024, 1, 1)
	require.Error(t, r.CheckInvariants())
}

func TestSupersedes(t *testing.T) {
	r := newPending()
	assert.True(t, r.Supersedes(publishedRule(domain.NewDate(2024, 1, 1))))
	assert.False(t, r.Supersedes(publishedRule(domain.NewDate(2023, 1, 1))))
	assert.False(t, r.Supersedes(publishedRule(domain.NewDate(2022, 1, 1))))

	reissued := r.Rule
	reissued.SourceVersion = "reissued"
	reissued.DurationUnits = 30
	assert.False(t, r.Supersedes(reissued))

	manual := timeline.ManualRule(timeline.Key{Service: "income-certificate", Jurisdiction: "IN-KA"}, 30, timeline.UnitCalendarDays, r.SubmissionDate, domain.NewSessionID())
	assert.False(t, r.Supersedes(manual))

	r.Rule = manual
	assert.True(t, r.Supersedes(publishedRule(domain.NewDate(2020, 1, 1))))
}

func TestCloneIsDeep(t *testing.T) {
	r := newPending()
	r.ApplyCompletion(now)
	c := r.Clone()
	*c.CompletedAt = now.Add(time.Hour)
	assert.Equal(t, now, *r.CompletedAt)
}

func TestSortByUrgency(t *testing.T) {
	mk := func(status Status, overdue int, due domain.Date) *Record {
		r := newPending()
		r.Status, r.OverdueDays, r.Deadline = status, overdue, due
		return r
	}
	pendingLate := mk(StatusPending, 0, domain.NewDate(2024, 3, 1))
	pendingSoon := mk(StatusPending, 0, domain.NewDate(2024, 2, 10))
	breachedLittle := mk(StatusBreached, 2, domain.NewDate(2024, 2, 3))
	breachedMuch := mk(StatusBreached, 40, domain.NewDate(2023, 12, 27))
	doneOld := mk(StatusCompleted, 0, domain.NewDate(2023, 6, 1))
	doneNew := mk(StatusCompleted, 0, domain.NewDate(2024, 1, 1))

	records := []*Record{doneOld, pendingLate, breachedLittle, doneNew, pendingSoon, breachedMuch}
	SortByUrgency(records)

	assert.Equal(t, []*Record{breachedMuch, breachedLittle, pendingSoon, pendingLate, doneNew, doneOld}, records)
}

func TestSortByUrgencyTieBreaksOnID(t *testing.T) {
	a := newPending()
	b := newPending()
	a.ID = domain.ApplicationID(uuid.MustParse("00000000-0000-0000-0000-000000000001"))
	b.ID = domain.ApplicationID(uuid.MustParse("00000000-0000-0000-0000-000000000002"))

	records := []*Record{b, a}
	SortByUrgency(records)
	assert.Equal(t, []*Record{a, b}, records)
}

func TestBreachReporting(t *testing.T) {
	r := newPending()
	assert.False(t, r.NeedsBreachReport())

	r.ApplyVerdict(deadline.Verdict{Breached: true, OverdueDays: 1}, now)
	assert.True(t, r.NeedsBreachReport())
	r.MarkBreachReported()
	assert.False(t, r.NeedsBreachReport())

	r.ApplyVerdict(deadline.Verdict{}, now)
	r.MarkBreachReported()
	assert.False(t, r.BreachReported)

	r.ApplyVerdict(deadline.Verdict{Breached: true, OverdueDays: 2}, now)
	assert.True(t, r.NeedsBreachReport(), "a second breach is reported again")
}

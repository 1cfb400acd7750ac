package deadline

import "sahayak/pkg/domain"

// Verdict is the breach detector's output.
type Verdict struct {
	Breached    bool
	OverdueDays int
}

// Evaluate compares today with the deadline. The deadline day itself is
// still within time. The submission date is carried for audit symmetry with
// ComputeDeadline and does not affect the verdict.
func Evaluate(_ domain.Date, deadline, today domain.Date) Verdict {
	overdue := domain.CalendarDaysBetween(deadline, today)
	if overdue <= 0 {
		return Verdict{}
	}
	return Verdict{Breached: true, OverdueDays: overdue}
}

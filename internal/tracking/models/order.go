package models

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// SortByUrgency orders records for display: breached first with the most
// overdue leading, then pending by soonest deadline, then completed with
// the latest deadline first. Ties fall back to the record id.
func SortByUrgency(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if ra, rb := rank(a.Status), rank(b.Status); ra != rb {
			return ra < rb
		}
		switch a.Status {
		case StatusBreached:
			if a.OverdueDays != b.OverdueDays {
				return a.OverdueDays > b.OverdueDays
			}
		case StatusPending:
			if c := a.Deadline.Compare(b.Deadline); c != 0 {
				return c < 0
			}
		case StatusCompleted:
			if c := a.Deadline.Compare(b.Deadline); c != 0 {
				return c > 0
			}
		}
		ida, idb := uuid.UUID(a.ID), uuid.UUID(b.ID)
		return bytes.Compare(ida[:], idb[:]) < 0
	})
}

func rank(s Status) int {
	switch s {
	case StatusBreached:
		return 0
	case StatusPending:
		return 1
	default:
		return 2
	}
}

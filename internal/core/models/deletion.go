// Package models holds the owner data deletion shapes.
package models

import (
	"time"

	"sahayak/pkg/domain"
)

// Part names a kind of owner data removed on request.
type Part string

const (
	PartApplications Part = "applications"
	PartParcels      Part = "parcels"
	PartSessions     Part = "sessions"
)

// Parts lists every part in the order deletion visits them.
var Parts = []Part{PartSessions, PartApplications, PartParcels}

// PendingDeletion is a deletion request that could not finish in one pass.
// RequestedAt is the first request and starts the completion deadline.
type PendingDeletion struct {
	OwnerID     domain.OwnerID
	RequestedAt time.Time
	Attempts    int
	LastError   string
}

// Due reports whether the deletion has passed its completion deadline.
func (p PendingDeletion) Due(now time.Time, sla time.Duration) bool {
	return !now.Before(p.RequestedAt.Add(sla))
}

// DeletionReport says what a deletion pass removed. Deferred lists the
// parts that failed and will be retried.
type DeletionReport struct {
	OwnerID     domain.OwnerID `json:"owner_id"`
	RequestedAt time.Time      `json:"requested_at"`
	Removed     map[Part]int   `json:"removed"`
	Deferred    []Part         `json:"deferred,omitempty"`
}

// Complete reports whether every part was removed.
func (r DeletionReport) Complete() bool { return len(r.Deferred) == 0 }

// Package core is the boundary citizens reach: sessions, applications and
// owner data deletion, each scoped to the authenticated owner.
package core

import (
	"sahayak/internal/core/models"
	"sahayak/internal/core/service"
	"sahayak/internal/core/store"
)

type (
	Service         = service.Service
	DeletionReport  = models.DeletionReport
	PendingDeletion = models.PendingDeletion
	Part            = models.Part
)

// NewDeletionStore returns the in-memory pending deletion queue used when no
// database is configured.
func NewDeletionStore() *store.InMemory { return store.NewInMemory() }

// Package tracking is the application tracking registry: durable records
// of citizen submissions with their statutory deadlines and breach status.
package tracking

import (
	"sahayak/internal/tracking/models"
	"sahayak/internal/tracking/service"
)

type (
	Service       = service.Service
	Sweeper       = service.Sweeper
	Record        = models.Record
	Status        = models.Status
	CreateRequest = service.CreateRequest
)

const (
	StatusPending   = models.StatusPending
	StatusBreached  = models.StatusBreached
	StatusCompleted = models.StatusCompleted
)

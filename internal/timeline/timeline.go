// Package timeline keeps the append-only catalog of legally mandated
// processing times and resolves the rule in force for a service.
package timeline

import (
	"sahayak/internal/timeline/catalog"
	"sahayak/internal/timeline/models"
	"sahayak/internal/timeline/service"
)

type (
	Service = service.Service
	Rule    = models.Rule
	Key     = models.Key
	Unit    = models.Unit
)

const (
	UnitCalendarDays = models.UnitCalendarDays
	UnitWorkingDays  = models.UnitWorkingDays
)

func NewService(store service.Store, opts ...service.Option) *Service {
	return service.New(catalog.New(), store, opts...)
}

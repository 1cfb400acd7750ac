// Package eligibility matches a citizen's aggregated land holdings against
// benefit scheme rules.
package eligibility

import (
	"sahayak/internal/eligibility/catalog"
	"sahayak/internal/eligibility/models"
	"sahayak/internal/eligibility/service"
)

type (
	Service    = service.Service
	Catalog    = catalog.Catalog
	Parcel     = models.Parcel
	AreaUnit   = models.AreaUnit
	SchemeRule = models.SchemeRule
	Match      = models.Match
	Result     = models.Result
)

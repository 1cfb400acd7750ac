package models

import (
	"fmt"
	"math"
	"strings"

	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
)

// AreaUnit is a land measurement unit used in revenue records.
type AreaUnit string

const (
	UnitAcre    AreaUnit = "acre"
	UnitHectare AreaUnit = "hectare"
	UnitGuntha  AreaUnit = "guntha"
	UnitCent    AreaUnit = "cent"
	UnitSqm     AreaUnit = "sqm"
)

var acresPer = map[AreaUnit]float64{
	UnitAcre:    1,
	UnitHectare: 2.471053814671653,
	UnitGuntha:  1.0 / 40,
	UnitCent:    1.0 / 100,
	UnitSqm:     1 / 4046.8564224,
}

// ParseAreaUnit accepts singular, plural and common short forms.
func ParseAreaUnit(s string) (AreaUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "acre", "acres", "ac":
		return UnitAcre, nil
	case "hectare", "hectares", "ha":
		return UnitHectare, nil
	case "guntha", "gunthas", "gunta", "guntas":
		return UnitGuntha, nil
	case "cent", "cents":
		return UnitCent, nil
	case "sqm", "m2", "square_metre", "square_meter":
		return UnitSqm, nil
	}
	return "", dErrors.Field(dErrors.CodeInvalidInput, "area_unit",
		fmt.Sprintf("area unit %q is not supported; use acre, hectare, guntha, cent or sqm", s))
}

// Parcel is one surveyed land holding.
type Parcel struct {
	OwnerID      domain.OwnerID `json:"-"`
	SurveyNumber string         `json:"survey_number"`
	Area         float64        `json:"area"`
	AreaUnit     AreaUnit       `json:"area_unit"`
	Category     string         `json:"category"`
}

// Acres converts the parcel's area.
func (p Parcel) Acres() float64 {
	return p.Area * acresPer[p.AreaUnit]
}

// Normalize validates the parcel and canonicalizes survey number and category.
func (p Parcel) Normalize() (Parcel, error) {
	p.SurveyNumber = strings.TrimSpace(p.SurveyNumber)
	if p.SurveyNumber == "" {
		return Parcel{}, dErrors.Field(dErrors.CodeInvalidInput, "survey_number", "survey number is required")
	}
	if math.IsNaN(p.Area) || math.IsInf(p.Area, 0) || p.Area <= 0 {
		return Parcel{}, dErrors.Field(dErrors.CodeInvalidInput, "area", "area must be a positive number")
	}
	unit, err := ParseAreaUnit(string(p.AreaUnit))
	if err != nil {
		return Parcel{}, err
	}
	p.AreaUnit = unit
	p.Category = NormalizeCategory(p.Category)
	if p.Category == "" {
		return Parcel{}, dErrors.Field(dErrors.CodeInvalidInput, "category", "land category is required")
	}
	return p, nil
}

// NormalizeCategory lowercases and joins words with '-', so "Dry Land" and
// "dry-land" compare equal.
func NormalizeCategory(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(s, "_", " "))), "-")
}

// SchemeRule is a benefit scheme's eligibility criteria. Areas are in acres.
type SchemeRule struct {
	ID                string              `json:"id" yaml:"id"`
	Name              string              `json:"name" yaml:"name"`
	Jurisdiction      domain.Jurisdiction `json:"jurisdiction" yaml:"jurisdiction"`
	MinArea           *float64            `json:"min_area,omitempty" yaml:"min_area"`
	MaxArea           *float64            `json:"max_area,omitempty" yaml:"max_area"`
	AllowedCategories []string            `json:"allowed_categories,omitempty" yaml:"allowed_categories"`
	BenefitAmount     int64               `json:"benefit_amount" yaml:"benefit_amount"`
	OtherConditions   []string            `json:"other_conditions,omitempty" yaml:"other_conditions"`
}

func (r SchemeRule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return dErrors.Field(dErrors.CodeValidation, "id", "scheme id is required")
	}
	if r.MinArea != nil && *r.MinArea < 0 {
		return dErrors.Field(dErrors.CodeValidation, "min_area", "minimum area cannot be negative")
	}
	if r.MinArea != nil && r.MaxArea != nil && *r.MaxArea < *r.MinArea {
		return dErrors.Field(dErrors.CodeValidation, "max_area", "maximum area is below the minimum")
	}
	if r.BenefitAmount < 0 {
		return dErrors.Field(dErrors.CodeValidation, "benefit_amount", "benefit amount cannot be negative")
	}
	return nil
}

// Condition names used in match results.
const (
	ConditionMinArea  = "min_area"
	ConditionMaxArea  = "max_area"
	ConditionCategory = "allowed_categories"
)

// Match is the derived evaluation of one scheme. It is never stored.
type Match struct {
	Scheme              SchemeRule `json:"scheme"`
	Score               float64    `json:"score"`
	MatchedConditions   []string   `json:"matched_conditions"`
	UnmatchedConditions []string   `json:"unmatched_conditions"`
}

// Result partitions matches. Excluded schemes are not reported.
type Result struct {
	Eligible []Match `json:"eligible"`
	NearMiss []Match `json:"near_miss"`
}

// Holdings aggregates an owner's parcels.
type Holdings struct {
	TotalAcres float64
	Categories map[string]struct{}
}

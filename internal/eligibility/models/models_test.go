package models

import (
	"math"
	"testing"

	dErrors "sahayak/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParcelNormalize(t *testing.T) {
	p, err := Parcel{SurveyNumber: " 45/2A ", Area: 3, AreaUnit: "Hectares", Category: "Dry Land"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "45/2A", p.SurveyNumber)
	assert.Equal(t, UnitHectare, p.AreaUnit)
	assert.Equal(t, "dry-land", p.Category)
	assert.InDelta(t, 7.413161444, p.Acres(), 1e-6)

	tests := []struct {
		name   string
		parcel Parcel
		field  string
	}{
		{"missing survey number", Parcel{Area: 1, AreaUnit: UnitAcre, Category: "dry"}, "survey_number"},
		{"zero area", Parcel{SurveyNumber: "1", AreaUnit: UnitAcre, Category: "dry"}, "area"},
		{"nan area", Parcel{SurveyNumber: "1", Area: math.NaN(), AreaUnit: UnitAcre, Category: "dry"}, "area"},
		{"unknown unit", Parcel{SurveyNumber: "1", Area: 1, AreaUnit: "bigha", Category: "dry"}, "area_unit"},
		{"blank category", Parcel{SurveyNumber: "1", Area: 1, AreaUnit: UnitAcre, Category: " _ "}, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parcel.Normalize()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			var de *dErrors.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestSchemeRuleValidate(t *testing.T) {
	lo, hi := 5.0, 2.0
	assert.NoError(t, SchemeRule{ID: "x"}.Validate())
	assert.Error(t, SchemeRule{}.Validate())
	assert.Error(t, SchemeRule{ID: "x", MinArea: &lo, MaxArea: &hi}.Validate())
	assert.Error(t, SchemeRule{ID: "x", BenefitAmount: -1}.Validate())
}

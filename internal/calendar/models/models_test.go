package models

import (
	"testing"
	"time"

	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolidayCalendar_Normalize(t *testing.T) {
	base := HolidayCalendar{Jurisdiction: "IN-KA", Year: 2024}

	t.Run("orders by date and drops duplicates", func(t *testing.T) {
		cal := base
		cal.Holidays = []Holiday{
			{Date: domain.NewDate(2024, 8, 15), Name: "Independence Day", Kind: KindNational},
			{Date: domain.NewDate(2024, 1, 26), Name: "Republic Day", Kind: KindNational},
			{Date: domain.NewDate(2024, 1, 26), Name: " Republic Day ", Kind: KindNational},
		}
		got, err := cal.Normalize()
		require.NoError(t, err)
		require.Len(t, got.Holidays, 2)
		assert.Equal(t, domain.NewDate(2024, 1, 26), got.Holidays[0].Date)
		assert.Len(t, cal.Holidays, 3, "input is not mutated")
	})

	t.Run("rejects a holiday outside the year", func(t *testing.T) {
		cal := base
		cal.Holidays = []Holiday{{Date: domain.NewDate(2025, 1, 1), Name: "New Year", Kind: KindOptional}}
		_, err := cal.Normalize()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		cal := base
		cal.Holidays = []Holiday{{Date: domain.NewDate(2024, 3, 8), Name: "Shivaratri", Kind: "bank"}}
		_, err := cal.Normalize()
		require.Error(t, err)
	})

	t.Run("accepts an empty holiday set", func(t *testing.T) {
		got, err := base.Normalize()
		require.NoError(t, err)
		assert.Empty(t, got.Holidays)
	})
}

func TestHolidayKind_NonWorking(t *testing.T) {
	assert.True(t, KindNational.NonWorking())
	assert.True(t, KindRegional.NonWorking())
	assert.False(t, KindOptional.NonWorking())
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday(" Friday ")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, d)

	_, err = ParseWeekday("funday")
	require.Error(t, err)
}

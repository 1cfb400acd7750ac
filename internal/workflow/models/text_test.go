package models

import (
	"testing"

	timeline "sahayak/internal/timeline/models"

	"github.com/stretchr/testify/assert"
)

func TestManualRuleFromText(t *testing.T) {
	tests := []struct {
		text string
		want ManualRuleEntered
		ok   bool
	}{
		{"15 working days", ManualRuleEntered{DurationUnits: 15, Unit: timeline.UnitWorkingDays}, true},
		{" 7 Business Days ", ManualRuleEntered{DurationUnits: 7, Unit: timeline.UnitWorkingDays}, true},
		{"30 days", ManualRuleEntered{DurationUnits: 30, Unit: timeline.UnitCalendarDays}, true},
		{"1 calendar day", ManualRuleEntered{DurationUnits: 1, Unit: timeline.UnitCalendarDays}, true},
		{"0 days", ManualRuleEntered{}, false},
		{"fifteen days", ManualRuleEntered{}, false},
		{"15 weeks", ManualRuleEntered{}, false},
		{"15 lunar days", ManualRuleEntered{}, false},
		{"two acres", ManualRuleEntered{}, false},
		{"", ManualRuleEntered{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ManualRuleFromText(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

package models

import (
	"strconv"
	"strings"

	timeline "sahayak/internal/timeline/models"
)

// ManualRuleFromText reads a processing time such as "15 working days" or
// "30 days". Without a qualifier the days are calendar days.
func ManualRuleFromText(text string) (ManualRuleEntered, bool) {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(words) < 2 || len(words) > 3 {
		return ManualRuleEntered{}, false
	}
	n, err := strconv.Atoi(words[0])
	if err != nil || n <= 0 {
		return ManualRuleEntered{}, false
	}
	if last := words[len(words)-1]; last != "day" && last != "days" {
		return ManualRuleEntered{}, false
	}
	unit := timeline.UnitCalendarDays
	if len(words) == 3 {
		switch words[1] {
		case "working", "business":
			unit = timeline.UnitWorkingDays
		case "calendar":
		default:
			return ManualRuleEntered{}, false
		}
	}
	return ManualRuleEntered{DurationUnits: n, Unit: unit}, true
}

package deadline

import (
	"math/rand"
	"testing"

	"sahayak/pkg/domain"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	submission := domain.NewDate(2024, 1, 10)
	deadline := domain.NewDate(2024, 1, 27)

	tests := []struct {
		name  string
		today domain.Date
		want  Verdict
	}{
		{"before deadline", domain.NewDate(2024, 1, 20), Verdict{}},
		{"on deadline day", deadline, Verdict{}},
		{"day after deadline", domain.NewDate(2024, 1, 28), Verdict{Breached: true, OverdueDays: 1}},
		{"across month", domain.NewDate(2024, 2, 5), Verdict{Breached: true, OverdueDays: 9}},
		{"across leap day", domain.NewDate(2024, 3, 1), Verdict{Breached: true, OverdueDays: 34}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(submission, deadline, tt.today))
		})
	}
}

func TestEvaluate_Law(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	base := domain.NewDate(2020, 1, 1)
	for i := 0; i < 500; i++ {
		deadline := base.AddDays(rng.Intn(2000))
		today := base.AddDays(rng.Intn(2000))
		v := Evaluate(base, deadline, today)

		if today.After(deadline) {
			assert.True(t, v.Breached)
			assert.Equal(t, domain.CalendarDaysBetween(deadline, today), v.OverdueDays)
		} else {
			assert.False(t, v.Breached)
			assert.Zero(t, v.OverdueDays)
		}
		assert.Equal(t, v, Evaluate(base, deadline, today))
	}
}

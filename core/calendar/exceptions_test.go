package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmwangi/chuo/core"
)

func clockPtr(c core.ClockTime) *core.ClockTime { return &c }

// scenarioPattern is the Mon/Wed 09:00-10:00 weekly pattern over Jan 2024
// used throughout: it expands to 10 occurrences (Jan 1,3,8,10,15,17,22,24,29,31).
func scenarioPattern() SchedulePattern {
	return testPattern(
		RecurrenceWeekly,
		[]time.Weekday{time.Monday, time.Wednesday},
		core.NewDate(2024, time.January, 1),
		core.NewDate(2024, time.January, 31),
	)
}

func scenarioOccurrences(t *testing.T) []Occurrence {
	t.Helper()
	occs := Expand(scenarioPattern(), core.NewDate(2024, time.January, 1), core.NewDate(2024, time.January, 31))
	require.Len(t, occs, 10)
	return occs
}

func TestApplyExceptions_cancellationRemovesExactlyOne(t *testing.T) {
	p := scenarioPattern()
	occs := scenarioOccurrences(t)
	excs := []ScheduleException{{
		ID:            "exc-1",
		PatternID:     p.ID,
		ExceptionDate: core.NewDate(2024, time.January, 8),
	}}

	adjusted := ApplyExceptions(p, occs, excs)

	require.Len(t, adjusted, 9)
	assert.Equal(t, []int{1, 3, 10, 15, 17, 22, 24, 29, 31}, occurrenceDays(adjusted))
	for _, occ := range adjusted {
		assert.NotEqual(t, core.NewDate(2024, time.January, 8), occ.Date)
	}
}

func TestApplyExceptions_rescheduleReplacesOccurrence(t *testing.T) {
	p := scenarioPattern()
	occs := scenarioOccurrences(t)
	excs := []ScheduleException{{
		ID:               "exc-1",
		PatternID:        p.ID,
		ExceptionDate:    core.NewDate(2024, time.January, 8),
		AlternativeDate:  datePtr(core.NewDate(2024, time.January, 9)),
		AlternativeStart: clockPtr(core.ClockTime{Hour: 14}),
		AlternativeEnd:   clockPtr(core.ClockTime{Hour: 15}),
	}}

	adjusted := ApplyExceptions(p, occs, excs)

	require.Len(t, adjusted, 10)
	assert.Equal(t, []int{1, 3, 9, 10, 15, 17, 22, 24, 29, 31}, occurrenceDays(adjusted))

	moved := adjusted[2]
	assert.Equal(t, core.NewDate(2024, time.January, 9), moved.Date)
	assert.Equal(t, time.Date(2024, time.January, 9, 14, 0, 0, 0, time.UTC), moved.Start)
	assert.Equal(t, time.Date(2024, time.January, 9, 15, 0, 0, 0, time.UTC), moved.End)

	// all other occurrences keep the pattern's own times
	for i, occ := range adjusted {
		if i == 2 {
			continue
		}
		assert.Equal(t, 9, occ.Start.Hour())
		assert.Equal(t, 10, occ.End.Hour())
	}
}

func TestApplyExceptions_alternativeTimesDefaultToPattern(t *testing.T) {
	p := scenarioPattern()
	occs := scenarioOccurrences(t)
	excs := []ScheduleException{{
		ID:              "exc-1",
		PatternID:       p.ID,
		ExceptionDate:   core.NewDate(2024, time.January, 3),
		AlternativeDate: datePtr(core.NewDate(2024, time.January, 4)),
	}}

	adjusted := ApplyExceptions(p, occs, excs)

	require.Len(t, adjusted, 10)
	moved := adjusted[1]
	assert.Equal(t, core.NewDate(2024, time.January, 4), moved.Date)
	assert.Equal(t, 9, moved.Start.Hour())
	assert.Equal(t, 10, moved.End.Hour())
}

func TestApplyExceptions_alternativeDateDefaultsToOriginal(t *testing.T) {
	p := scenarioPattern()
	occs := scenarioOccurrences(t)
	excs := []ScheduleException{{
		ID:               "exc-1",
		PatternID:        p.ID,
		ExceptionDate:    core.NewDate(2024, time.January, 15),
		AlternativeStart: clockPtr(core.ClockTime{Hour: 11}),
		AlternativeEnd:   clockPtr(core.ClockTime{Hour: 12, Minute: 30}),
	}}

	adjusted := ApplyExceptions(p, occs, excs)

	require.Len(t, adjusted, 10)
	moved := adjusted[4]
	assert.Equal(t, core.NewDate(2024, time.January, 15), moved.Date)
	assert.Equal(t, time.Date(2024, time.January, 15, 11, 0, 0, 0, time.UTC), moved.Start)
	assert.Equal(t, time.Date(2024, time.January, 15, 12, 30, 0, 0, time.UTC), moved.End)
}

func TestApplyExceptions_noMatchPassesThrough(t *testing.T) {
	p := scenarioPattern()
	occs := scenarioOccurrences(t)
	excs := []ScheduleException{{
		ID:            "exc-1",
		PatternID:     p.ID,
		ExceptionDate: core.NewDate(2024, time.February, 5), // outside expansion
	}}

	assert.Equal(t, occs, ApplyExceptions(p, occs, excs))
}

func TestApplyExceptions_duplicateDateLastOneWins(t *testing.T) {
	p := scenarioPattern()
	occs := scenarioOccurrences(t)
	excs := []ScheduleException{
		{
			ID:            "exc-1",
			PatternID:     p.ID,
			ExceptionDate: core.NewDate(2024, time.January, 8), // cancellation
		},
		{
			ID:              "exc-2",
			PatternID:       p.ID,
			ExceptionDate:   core.NewDate(2024, time.January, 8),
			AlternativeDate: datePtr(core.NewDate(2024, time.January, 9)), // reschedule
		},
	}

	adjusted := ApplyExceptions(p, occs, excs)

	// the reschedule was supplied last, so it wins over the cancellation
	require.Len(t, adjusted, 10)
	assert.Equal(t, core.NewDate(2024, time.January, 9), adjusted[2].Date)
}

func TestApplyExceptions_noExceptionsIsIdentity(t *testing.T) {
	p := scenarioPattern()
	occs := scenarioOccurrences(t)

	assert.Equal(t, occs, ApplyExceptions(p, occs, nil))
}

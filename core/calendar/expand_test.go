package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmwangi/chuo/core"
)

func datePtr(d core.Date) *core.Date { return &d }

func testPattern(rec Recurrence, days []time.Weekday, start, end core.Date) SchedulePattern {
	return SchedulePattern{
		ID:         "pat-1",
		Name:       "CS101 Lecture",
		Recurrence: rec,
		DaysOfWeek: days,
		StartTime:  core.ClockTime{Hour: 9},
		EndTime:    core.ClockTime{Hour: 10},
		StartDate:  start,
		EndDate:    datePtr(end),
		IsActive:   true,
	}
}

func occurrenceDays(occs []Occurrence) []int {
	days := make([]int, 0, len(occs))
	for _, occ := range occs {
		days = append(days, occ.Date.Day())
	}
	return days
}

func TestExpand_weeklyMondayWednesday(t *testing.T) {
	// Jan 2024: Mondays 1,8,15,22,29; Wednesdays 3,10,17,24,31
	p := testPattern(
		RecurrenceWeekly,
		[]time.Weekday{time.Monday, time.Wednesday},
		core.NewDate(2024, time.January, 1),
		core.NewDate(2024, time.January, 31),
	)

	occs := Expand(p, core.NewDate(2024, time.January, 1), core.NewDate(2024, time.January, 31))

	require.Len(t, occs, 10)
	assert.Equal(t, []int{1, 3, 8, 10, 15, 17, 22, 24, 29, 31}, occurrenceDays(occs))
	for _, occ := range occs {
		assert.Equal(t, 9, occ.Start.Hour())
		assert.Equal(t, 10, occ.End.Hour())
		assert.Equal(t, occ.Date.At(core.ClockTime{Hour: 9}), occ.Start)
	}
}

func TestExpand_weeklyOnlyMatchingWeekdays(t *testing.T) {
	p := testPattern(
		RecurrenceWeekly,
		[]time.Weekday{time.Monday},
		core.NewDate(2024, time.January, 1),
		core.NewDate(2024, time.March, 31),
	)

	occs := Expand(p, core.NewDate(2024, time.February, 1), core.NewDate(2024, time.February, 29))

	require.NotEmpty(t, occs)
	for _, occ := range occs {
		assert.Equal(t, time.Monday, occ.Date.Weekday())
		assert.False(t, occ.Date.Before(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)))
		assert.False(t, occ.Date.After(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)))
	}
}

func TestExpand_daily(t *testing.T) {
	p := testPattern(
		RecurrenceDaily, nil,
		core.NewDate(2024, time.January, 10),
		core.NewDate(2024, time.January, 20),
	)

	// window is the intersection of pattern bounds and query range
	occs := Expand(p, core.NewDate(2024, time.January, 1), core.NewDate(2024, time.January, 15))

	assert.Equal(t, []int{10, 11, 12, 13, 14, 15}, occurrenceDays(occs))
}

func TestExpand_biweeklyEvenWeeksOnly(t *testing.T) {
	// start: Mon 2024-01-01 (week 0); even weeks hold Jan 1-7, 15-21, 29-...
	p := testPattern(
		RecurrenceBiweekly,
		[]time.Weekday{time.Monday},
		core.NewDate(2024, time.January, 1),
		core.NewDate(2024, time.January, 31),
	)

	occs := Expand(p, core.NewDate(2024, time.January, 1), core.NewDate(2024, time.January, 31))

	assert.Equal(t, []int{1, 15, 29}, occurrenceDays(occs))
}

func TestExpand_biweeklyAnchoredToPatternStart(t *testing.T) {
	// start mid-week: Thu 2024-01-04 is still in week 0
	p := testPattern(
		RecurrenceBiweekly,
		[]time.Weekday{time.Friday},
		core.NewDate(2024, time.January, 4),
		core.NewDate(2024, time.February, 2),
	)

	occs := Expand(p, core.NewDate(2024, time.January, 1), core.NewDate(2024, time.February, 29))

	// Fri Jan 5 (week 0), Fri Jan 19 (week 2), Fri Feb 2 (week 4)
	require.Len(t, occs, 3)
	assert.Equal(t, []int{5, 19, 2}, occurrenceDays(occs))
}

func TestExpand_monthlyClampsShortMonths(t *testing.T) {
	p := testPattern(
		RecurrenceMonthly, nil,
		core.NewDate(2024, time.January, 31),
		core.NewDate(2024, time.April, 30),
	)

	occs := Expand(p, core.NewDate(2024, time.January, 1), core.NewDate(2024, time.December, 31))

	require.Len(t, occs, 4)
	assert.Equal(t, core.NewDate(2024, time.January, 31), occs[0].Date)
	assert.Equal(t, core.NewDate(2024, time.February, 29), occs[1].Date) // leap year clamp
	assert.Equal(t, core.NewDate(2024, time.March, 31), occs[2].Date)
	assert.Equal(t, core.NewDate(2024, time.April, 30), occs[3].Date)
}

func TestExpand_customDates(t *testing.T) {
	p := testPattern(
		RecurrenceCustom, nil,
		core.NewDate(2024, time.January, 1),
		core.NewDate(2024, time.June, 30),
	)
	p.CustomDates = []core.Date{
		core.NewDate(2024, time.March, 15),
		core.NewDate(2024, time.January, 10),
		core.NewDate(2024, time.May, 2),
	}

	occs := Expand(p, core.NewDate(2024, time.January, 1), core.NewDate(2024, time.March, 31))

	// only in-range dates, in chronological order
	require.Len(t, occs, 2)
	assert.Equal(t, core.NewDate(2024, time.January, 10), occs[0].Date)
	assert.Equal(t, core.NewDate(2024, time.March, 15), occs[1].Date)
}

func TestExpand_emptyDaysOfWeekYieldsNothing(t *testing.T) {
	p := testPattern(
		RecurrenceWeekly, nil,
		core.NewDate(2024, time.January, 1),
		core.NewDate(2024, time.December, 31),
	)

	assert.Empty(t, Expand(p, core.NewDate(2024, time.January, 1), core.NewDate(2024, time.January, 31)))
}

func TestExpand_emptyWindowYieldsNothing(t *testing.T) {
	p := testPattern(
		RecurrenceDaily, nil,
		core.NewDate(2024, time.March, 1),
		core.NewDate(2024, time.March, 31),
	)

	assert.Empty(t, Expand(p, core.NewDate(2024, time.January, 1), core.NewDate(2024, time.January, 31)))
}

func TestExpand_openEndedPatternCappedToRange(t *testing.T) {
	p := testPattern(RecurrenceDaily, nil, core.NewDate(2024, time.January, 1), core.Date{})
	p.EndDate = nil // no end date: expansion must stop at the queried range

	occs := Expand(p, core.NewDate(2024, time.January, 1), core.NewDate(2024, time.January, 7))

	assert.Len(t, occs, 7)
	assert.Equal(t, core.NewDate(2024, time.January, 7), occs[len(occs)-1].Date)
}

func TestExpand_deterministic(t *testing.T) {
	p := testPattern(
		RecurrenceWeekly,
		[]time.Weekday{time.Tuesday, time.Thursday},
		core.NewDate(2024, time.January, 1),
		core.NewDate(2024, time.June, 30),
	)
	from, to := core.NewDate(2024, time.February, 1), core.NewDate(2024, time.April, 30)

	assert.Equal(t, Expand(p, from, to), Expand(p, from, to))
}

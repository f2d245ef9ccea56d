package calendar

import (
	"sort"
	"time"

	"github.com/tmwangi/chuo/core"
)

// Expand turns a recurrence pattern into concrete occurrences over the
// inclusive date range [rangeStart, rangeEnd]. It is a pure function of its
// inputs: expanding the same pattern over the same range twice yields the
// same result. Work is strictly bounded by the queried range; a pattern
// with no end date never expands past rangeEnd.
func Expand(p SchedulePattern, rangeStart, rangeEnd core.Date) []Occurrence {
	from, until, ok := effectiveWindow(p, rangeStart, rangeEnd)
	if !ok {
		return nil
	}

	if p.Recurrence == RecurrenceCustom {
		return expandCustom(p, from, until)
	}

	var occs []Occurrence
	for d := from; !d.After(until.Time); d = d.AddDays(1) {
		if matchesDate(p, d) {
			occs = append(occs, newOccurrence(p, d))
		}
	}
	return occs
}

// effectiveWindow intersects the pattern's own bounds with the queried range.
func effectiveWindow(p SchedulePattern, rangeStart, rangeEnd core.Date) (from, until core.Date, ok bool) {
	from = rangeStart
	if p.StartDate.After(from.Time) {
		from = p.StartDate
	}
	until = rangeEnd
	if p.EndDate != nil && p.EndDate.Before(until.Time) {
		until = *p.EndDate
	}
	return from, until, !until.Before(from.Time)
}

func matchesDate(p SchedulePattern, d core.Date) bool {
	switch p.Recurrence {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return p.matchesWeekday(d.Weekday())
	case RecurrenceBiweekly:
		return p.matchesWeekday(d.Weekday()) && weeksSince(p.StartDate, d)%2 == 0
	case RecurrenceMonthly:
		// same day-of-month as the pattern start, clamped to short months
		target := p.StartDate.Day()
		if last := daysInMonth(d.Year(), d.Month()); last < target {
			target = last
		}
		return d.Day() == target
	}
	return false
}

func expandCustom(p SchedulePattern, from, until core.Date) []Occurrence {
	var occs []Occurrence
	for _, d := range p.CustomDates {
		if !d.Before(from.Time) && !d.After(until.Time) {
			occs = append(occs, newOccurrence(p, d))
		}
	}
	sort.Slice(occs, func(i, j int) bool { return occs[i].Start.Before(occs[j].Start) })
	return occs
}

func newOccurrence(p SchedulePattern, d core.Date) Occurrence {
	return Occurrence{Date: d, SourceDate: d, Start: d.At(p.StartTime), End: d.At(p.EndTime)}
}

// weeksSince counts whole Monday-start weeks between anchor's week and d's week.
func weeksSince(anchor, d core.Date) int {
	days := int(weekStart(d).Sub(weekStart(anchor).Time) / (24 * time.Hour))
	return days / 7
}

// weekStart returns the Monday of the week containing d.
func weekStart(d core.Date) core.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

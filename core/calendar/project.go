package calendar

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tmwangi/chuo/core"
)

// View resolutions the portal can render.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
	ViewYear  View = "year"
)

var ErrUnknownView = errors.New("unknown calendar view")

const (
	hoursPerDay    = 24
	monthGridCells = 42 // 6 weeks x 7 days, always
	yearTopEvents  = 3  // events shown per month cell before overflow
)

type (
	// DayCell is one day square of a month grid.
	DayCell struct {
		Date    core.Date       `json:"date"`
		InMonth bool            `json:"in_month"`
		Events  []CalendarEvent `json:"events"`
	}

	// MonthGrid is a fixed 6x7 fold of the month containing the anchor,
	// padded with the surrounding weeks' days.
	MonthGrid struct {
		Anchor core.Date               `json:"anchor"`
		Cells  [monthGridCells]DayCell `json:"cells"`
	}

	// DayColumn is one day of a week grid, bucketed into hour rows.
	DayColumn struct {
		Date  core.Date                    `json:"date"`
		Hours [hoursPerDay][]CalendarEvent `json:"hours"`
	}

	WeekGrid struct {
		Start core.Date    `json:"start"` // Monday
		Days  [7]DayColumn `json:"days"`
	}

	DayGrid struct {
		Date  core.Date                    `json:"date"`
		Hours [hoursPerDay][]CalendarEvent `json:"hours"`
	}

	// MonthSummary is one mini-grid cell of a year view: the first few
	// events of the month plus a count of the rest.
	MonthSummary struct {
		Month    time.Month      `json:"month"`
		Events   []CalendarEvent `json:"events"`
		Overflow int             `json:"overflow"`
	}

	YearGrid struct {
		Year   int              `json:"year"`
		Months [12]MonthSummary `json:"months"`
	}
)

// Project buckets an aggregated timeline into the grid for the requested
// view. It never mutates the input events; it is a pure read-side transform.
func Project(events []CalendarEvent, view View, anchor core.Date) (interface{}, error) {
	switch view {
	case ViewDay:
		return ProjectDay(events, anchor), nil
	case ViewWeek:
		return ProjectWeek(events, anchor), nil
	case ViewMonth:
		return ProjectMonth(events, anchor), nil
	case ViewYear:
		return ProjectYear(events, anchor), nil
	}
	return nil, errors.Wrapf(ErrUnknownView, "%q", view)
}

// RangeFor returns the date span a view covers around the anchor: the
// exact grid days for day/week/month, the whole year for year.
func RangeFor(view View, anchor core.Date) (core.Date, core.Date, error) {
	switch view {
	case ViewDay:
		return anchor, anchor, nil
	case ViewWeek:
		start := weekStart(anchor)
		return start, start.AddDays(6), nil
	case ViewMonth:
		gridStart := weekStart(core.NewDate(anchor.Year(), anchor.Month(), 1))
		return gridStart, gridStart.AddDays(monthGridCells - 1), nil
	case ViewYear:
		return core.NewDate(anchor.Year(), time.January, 1), core.NewDate(anchor.Year(), time.December, 31), nil
	}
	return core.Date{}, core.Date{}, errors.Wrapf(ErrUnknownView, "%q", view)
}

// ProjectMonth folds the timeline into exactly 42 day-cells, starting at
// the Monday of the week containing the 1st of the anchor's month. An event
// appears in every day-cell its [start, end] span overlaps, not only its
// start day.
func ProjectMonth(events []CalendarEvent, anchor core.Date) MonthGrid {
	firstOfMonth := core.NewDate(anchor.Year(), anchor.Month(), 1)
	gridStart := weekStart(firstOfMonth)

	grid := MonthGrid{Anchor: anchor}
	for i := 0; i < monthGridCells; i++ {
		day := gridStart.AddDays(i)
		cell := DayCell{Date: day, InMonth: day.Month() == anchor.Month()}
		for _, ev := range events {
			if overlapsDay(ev, day) {
				cell.Events = append(cell.Events, ev)
			}
		}
		grid.Cells[i] = cell
	}
	return grid
}

// ProjectWeek buckets the timeline into 7 day-columns x 24 hour-rows for
// the week containing the anchor.
func ProjectWeek(events []CalendarEvent, anchor core.Date) WeekGrid {
	start := weekStart(anchor)
	grid := WeekGrid{Start: start}
	for i := range grid.Days {
		day := start.AddDays(i)
		grid.Days[i] = DayColumn{Date: day, Hours: hourRows(events, day)}
	}
	return grid
}

// ProjectDay buckets the timeline into 24 hour-rows for the anchor day.
func ProjectDay(events []CalendarEvent, anchor core.Date) DayGrid {
	return DayGrid{Date: anchor, Hours: hourRows(events, anchor)}
}

// ProjectYear summarizes the anchor's year as 12 month mini-grids, each
// showing the first few events (in the aggregator's sort order) plus an
// overflow count of the remainder.
func ProjectYear(events []CalendarEvent, anchor core.Date) YearGrid {
	grid := YearGrid{Year: anchor.Year()}
	for i := range grid.Months {
		grid.Months[i].Month = time.Month(i + 1)
	}
	for _, ev := range events {
		for i := range grid.Months {
			monthStart := core.NewDate(grid.Year, time.Month(i+1), 1)
			monthEnd := monthStart.AddDays(daysInMonth(grid.Year, monthStart.Month()) - 1)
			if ev.Start.After(endOfDay(monthEnd)) || ev.End.Before(monthStart.Time) {
				continue
			}
			m := &grid.Months[i]
			if len(m.Events) < yearTopEvents {
				m.Events = append(m.Events, ev)
			} else {
				m.Overflow++
			}
		}
	}
	return grid
}

// overlapsDay reports whether an event's [start, end] overlaps the
// calendar day d.
func overlapsDay(ev CalendarEvent, d core.Date) bool {
	dayStart := d.Time
	dayEnd := d.AddDays(1).Time
	return ev.Start.Before(dayEnd) && !ev.End.Before(dayStart)
}

// hourRows buckets events into the 24 hour-rows of day d. An event occupies
// hour-row h if start <= (d, h+1) and end >= (d, h), the inclusive hour
// interval test.
func hourRows(events []CalendarEvent, d core.Date) [hoursPerDay][]CalendarEvent {
	var rows [hoursPerDay][]CalendarEvent
	for h := 0; h < hoursPerDay; h++ {
		hourStart := d.At(core.ClockTime{Hour: h})
		hourEnd := hourStart.Add(time.Hour)
		for _, ev := range events {
			if !ev.Start.After(hourEnd) && !ev.End.Before(hourStart) {
				rows[h] = append(rows[h], ev)
			}
		}
	}
	return rows
}

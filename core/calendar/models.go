package calendar

import (
	"time"

	"github.com/tmwangi/chuo/core"
)

// Recurrence rules supported by schedule patterns.
type Recurrence string

const (
	RecurrenceDaily    Recurrence = "DAILY"
	RecurrenceWeekly   Recurrence = "WEEKLY"
	RecurrenceBiweekly Recurrence = "BIWEEKLY"
	RecurrenceMonthly  Recurrence = "MONTHLY"
	RecurrenceCustom   Recurrence = "CUSTOM"
)

// Weekday wire names, Monday first (timetables start on Monday).
var (
	weekdayNames = map[string]time.Weekday{
		"mon": time.Monday,
		"tue": time.Tuesday,
		"wed": time.Wednesday,
		"thu": time.Thursday,
		"fri": time.Friday,
		"sat": time.Saturday,
		"sun": time.Sunday,
	}
	weekdayValues = map[time.Weekday]string{
		time.Monday:    "mon",
		time.Tuesday:   "tue",
		time.Wednesday: "wed",
		time.Thursday:  "thu",
		time.Friday:    "fri",
		time.Saturday:  "sat",
		time.Sunday:    "sun",
	}
)

// SchedulePattern is a recurring class/activity slot definition.
// Patterns are never hard-deleted while referenced; deletion marks
// them inactive so historical occurrence queries keep working.
type SchedulePattern struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	CampusID    string         `json:"campus_id,omitempty"`
	Recurrence  Recurrence     `json:"recurrence"`
	DaysOfWeek  []time.Weekday `json:"days_of_week,omitempty"`
	StartTime   core.ClockTime `json:"start_time"`
	EndTime     core.ClockTime `json:"end_time"`
	StartDate   core.Date      `json:"start_date"`
	EndDate     *core.Date     `json:"end_date,omitempty"`
	CustomDates []core.Date    `json:"custom_dates,omitempty"` // CUSTOM recurrence only
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"` // UTC
	UpdatedAt   time.Time      `json:"updated_at"` // UTC
}

// InBounds reports whether d falls within the pattern's [StartDate, EndDate].
func (p SchedulePattern) InBounds(d core.Date) bool {
	if d.Before(p.StartDate.Time) {
		return false
	}
	if p.EndDate != nil && d.After(p.EndDate.Time) {
		return false
	}
	return true
}

func (p SchedulePattern) matchesWeekday(wd time.Weekday) bool {
	for _, d := range p.DaysOfWeek {
		if d == wd {
			return true
		}
	}
	return false
}

// ScheduleException overrides a single date of a pattern; with no
// alternative fields it cancels that date's occurrence, otherwise it
// reschedules it. Unique per (PatternID, ExceptionDate), which the
// repositories enforce on write.
type ScheduleException struct {
	ID               string          `json:"id"`
	PatternID        string          `json:"pattern_id"`
	ExceptionDate    core.Date       `json:"exception_date"`
	Reason           string          `json:"reason,omitempty"`
	AlternativeDate  *core.Date      `json:"alternative_date,omitempty"`
	AlternativeStart *core.ClockTime `json:"alternative_start,omitempty"`
	AlternativeEnd   *core.ClockTime `json:"alternative_end,omitempty"`
	CreatedAt        time.Time       `json:"created_at"` // UTC
	UpdatedAt        time.Time       `json:"updated_at"` // UTC
}

// IsCancellation reports whether the exception drops its occurrence
// instead of moving it.
func (e ScheduleException) IsCancellation() bool {
	return e.AlternativeDate == nil && e.AlternativeStart == nil && e.AlternativeEnd == nil
}

// Holiday is a campus-wide non-teaching day or span.
type Holiday struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	CampusID  string    `json:"campus_id,omitempty"` // empty = all campuses
	Type      string    `json:"type,omitempty"`      // e.g. PUBLIC, CAMPUS
	CreatedAt time.Time `json:"created_at"`          // UTC
	UpdatedAt time.Time `json:"updated_at"`          // UTC
}

// AcademicEvent is a dated academic milestone (exams, orientation, ...).
type AcademicEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartDate   core.Date `json:"start_date"`
	EndDate     core.Date `json:"end_date"`
	CampusID    string    `json:"campus_id,omitempty"`
	Type        string    `json:"type,omitempty"` // e.g. EXAM, ORIENTATION
	CreatedAt   time.Time `json:"created_at"`     // UTC
	UpdatedAt   time.Time `json:"updated_at"`     // UTC
}

// Occurrence is one concrete dated time-slot derived from a pattern.
// Derived on demand, never persisted.
type Occurrence struct {
	Date core.Date `json:"date"`
	// SourceDate is the pattern date the occurrence was expanded from.
	// It differs from Date when a reschedule moved the occurrence, and
	// uniquely identifies it within its pattern either way.
	SourceDate core.Date `json:"source_date"`
	Start      time.Time `json:"start"` // UTC
	End        time.Time `json:"end"`   // UTC
}

// EventType tags an aggregated calendar entry with its source.
type EventType string

const (
	EventTypeHoliday       EventType = "HOLIDAY"
	EventTypeAcademicEvent EventType = "ACADEMIC_EVENT"
	EventTypeSchedule      EventType = "SCHEDULE"
)

// Deterministic render order: holidays before academic events before schedules.
var eventTypeOrdinals = map[EventType]int{
	EventTypeHoliday:       0,
	EventTypeAcademicEvent: 1,
	EventTypeSchedule:      2,
}

func (t EventType) Ordinal() int {
	return eventTypeOrdinals[t]
}

// Colors assigned per source when aggregating.
const (
	ColorHoliday       = "#ef4444" // red
	ColorAcademicEvent = "#3b82f6" // blue
	ColorSchedule      = "#22c55e" // green
)

// CalendarEvent is the single shape the aggregator and projector operate
// on, a flattened union of all event sources. Ephemeral, rebuilt per query.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"` // UTC
	End         time.Time `json:"end"`   // UTC
	Type        EventType `json:"type"`
	Color       string    `json:"color"`
	Description string    `json:"description,omitempty"`
	CampusID    string    `json:"campus_id,omitempty"`
}

package calendar

import (
	"sort"
	"time"

	"github.com/tmwangi/chuo/core"
)

type (
	// Sources is everything Aggregate reads: the fan-out fetch results.
	// A category whose fetch failed arrives empty with a warning recorded,
	// so one unavailable source degrades the timeline instead of failing it.
	Sources struct {
		Patterns            []SchedulePattern
		ExceptionsByPattern map[string][]ScheduleException
		Holidays            []Holiday
		AcademicEvents      []AcademicEvent
		Warnings            []string

		// OccurrencesByPattern optionally carries pre-resolved (expanded +
		// exception-adjusted) occurrences, e.g. from the service's memo
		// cache. Patterns without an entry are resolved on the fly.
		OccurrencesByPattern map[string][]Occurrence
	}

	// Filter excludes events from the aggregated timeline.
	Filter struct {
		CampusID string      `query:"campus_id"`
		Types    []EventType `query:"type"`
	}
)

func (f Filter) allows(ev CalendarEvent) bool {
	// campus-scoped events are excluded for other campuses; unscoped pass
	if f.CampusID != "" && ev.CampusID != "" && ev.CampusID != f.CampusID {
		return false
	}
	if len(f.Types) > 0 {
		for _, t := range f.Types {
			if ev.Type == t {
				return true
			}
		}
		return false
	}
	return true
}

// Aggregate merges holidays, academic events and resolved pattern
// occurrences that intersect [rangeStart, rangeEnd] into one timeline,
// deduplicated by id and sorted by (start, type ordinal, id) for a
// deterministic, stable render order.
func Aggregate(rangeStart, rangeEnd core.Date, src Sources, filter Filter) []CalendarEvent {
	var events []CalendarEvent

	for _, p := range src.Patterns {
		if !p.IsActive {
			continue
		}
		occs, resolved := src.OccurrencesByPattern[p.ID]
		if !resolved {
			occs = ApplyExceptions(p, Expand(p, rangeStart, rangeEnd), src.ExceptionsByPattern[p.ID])
		}
		for _, occ := range occs {
			// the source date, not the rendered date, keys the id: a
			// rescheduled occurrence landing on an already occupied date
			// must not collide with that date's own occurrence
			events = append(events, CalendarEvent{
				ID:          p.ID + ":" + occ.SourceDate.String(),
				Title:       p.Name,
				Start:       occ.Start,
				End:         occ.End,
				Type:        EventTypeSchedule,
				Color:       ColorSchedule,
				Description: p.Description,
				CampusID:    p.CampusID,
			})
		}
	}

	for _, h := range src.Holidays {
		if !spanIntersects(h.StartDate, h.EndDate, rangeStart, rangeEnd) {
			continue
		}
		events = append(events, CalendarEvent{
			ID:       h.ID,
			Title:    h.Name,
			Start:    h.StartDate.At(core.ClockTime{}),
			End:      endOfDay(h.EndDate),
			Type:     EventTypeHoliday,
			Color:    ColorHoliday,
			CampusID: h.CampusID,
		})
	}

	for _, ae := range src.AcademicEvents {
		if !spanIntersects(ae.StartDate, ae.EndDate, rangeStart, rangeEnd) {
			continue
		}
		events = append(events, CalendarEvent{
			ID:          ae.ID,
			Title:       ae.Title,
			Start:       ae.StartDate.At(core.ClockTime{}),
			End:         endOfDay(ae.EndDate),
			Type:        EventTypeAcademicEvent,
			Color:       ColorAcademicEvent,
			Description: ae.Description,
			CampusID:    ae.CampusID,
		})
	}

	merged := make([]CalendarEvent, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		if !filter.allows(ev) {
			continue
		}
		seen[ev.ID] = struct{}{}
		merged = append(merged, ev)
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Type != b.Type {
			return a.Type.Ordinal() < b.Type.Ordinal()
		}
		return a.ID < b.ID
	})
	return merged
}

func spanIntersects(start, end, rangeStart, rangeEnd core.Date) bool {
	return !start.After(rangeEnd.Time) && !end.Before(rangeStart.Time)
}

func endOfDay(d core.Date) time.Time {
	return d.At(core.ClockTime{Hour: 23, Minute: 59})
}

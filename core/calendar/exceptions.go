package calendar

import "sort"

// ApplyExceptions adjusts expanded occurrences with their pattern's
// per-date overrides. An exception with no alternative fields cancels
// the matching occurrence; otherwise the occurrence is replaced using
// AlternativeDate (default: the original date) and AlternativeStart/End
// (default: the pattern's own times). Occurrences with no matching
// exception pass through unchanged.
//
// Duplicate exceptions on one date are a data-integrity violation the
// repositories reject on write; if encountered anyway, the last one
// supplied wins, deterministically.
func ApplyExceptions(p SchedulePattern, occurrences []Occurrence, exceptions []ScheduleException) []Occurrence {
	if len(occurrences) == 0 || len(exceptions) == 0 {
		return occurrences
	}

	byDate := make(map[string]ScheduleException, len(exceptions))
	for _, exc := range exceptions {
		byDate[exc.ExceptionDate.String()] = exc
	}

	adjusted := make([]Occurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		exc, ok := byDate[occ.Date.String()]
		if !ok {
			adjusted = append(adjusted, occ)
			continue
		}
		if exc.IsCancellation() {
			continue
		}
		adjusted = append(adjusted, rescheduled(p, occ, exc))
	}

	sort.Slice(adjusted, func(i, j int) bool { return adjusted[i].Start.Before(adjusted[j].Start) })
	return adjusted
}

func rescheduled(p SchedulePattern, occ Occurrence, exc ScheduleException) Occurrence {
	date := occ.Date
	if exc.AlternativeDate != nil {
		date = *exc.AlternativeDate
	}
	start := p.StartTime
	if exc.AlternativeStart != nil {
		start = *exc.AlternativeStart
	}
	end := p.EndTime
	if exc.AlternativeEnd != nil {
		end = *exc.AlternativeEnd
	}
	return Occurrence{Date: date, SourceDate: occ.SourceDate, Start: date.At(start), End: date.At(end)}
}

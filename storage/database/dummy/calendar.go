package dummydb

import (
	"sort"

	"github.com/tmwangi/chuo/core"
	"github.com/tmwangi/chuo/core/calendar"
)

// SchedulePattern

type patternRepository struct {
	db *patternTable
}

var _ calendar.PatternRepository = (*patternRepository)(nil) // interface compliance check

func NewPatternRepository(db *DB) calendar.PatternRepository {
	return &patternRepository{db: db.pattern}
}

func (repo *patternRepository) CreatePattern(p calendar.SchedulePattern) (calendar.SchedulePattern, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *patternRepository) GetPatternByID(id string) (calendar.SchedulePattern, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return calendar.SchedulePattern{}, calendar.ErrPatternNotFound
}

func (repo *patternRepository) ListPatterns(filter calendar.Filter) ([]calendar.SchedulePattern, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	patterns := make([]calendar.SchedulePattern, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		if filter.CampusID != "" && p.CampusID != "" && p.CampusID != filter.CampusID {
			continue
		}
		patterns = append(patterns, *p)
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].ID < patterns[j].ID })
	return patterns, nil
}

func (repo *patternRepository) UpdatePattern(p calendar.SchedulePattern) (calendar.SchedulePattern, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[p.ID]; !ok {
		return calendar.SchedulePattern{}, calendar.ErrPatternNotFound
	}
	repo.db.table[p.ID] = &p
	return p, nil
}

// ScheduleException

type exceptionRepository struct {
	db *exceptionTable
}

var _ calendar.ExceptionRepository = (*exceptionRepository)(nil) // interface compliance check

func NewExceptionRepository(db *DB) calendar.ExceptionRepository {
	return &exceptionRepository{db: db.exception}
}

func (repo *exceptionRepository) UpsertException(exc calendar.ScheduleException) (calendar.ScheduleException, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// one exception per (pattern, date)
	for id, existing := range repo.db.table {
		if existing.PatternID == exc.PatternID && existing.ExceptionDate.Equal(exc.ExceptionDate.Time) {
			delete(repo.db.table, id)
		}
	}
	repo.db.table[exc.ID] = &exc
	return exc, nil
}

func (repo *exceptionRepository) GetExceptionByID(id string) (calendar.ScheduleException, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if exc, ok := repo.db.table[id]; ok {
		return *exc, nil
	}
	return calendar.ScheduleException{}, calendar.ErrExceptionNotFound
}

func (repo *exceptionRepository) ListExceptionsForPattern(patternID string) ([]calendar.ScheduleException, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var excs []calendar.ScheduleException
	for _, exc := range repo.db.table {
		if exc.PatternID == patternID {
			excs = append(excs, *exc)
		}
	}
	sort.Slice(excs, func(i, j int) bool { return excs[i].ExceptionDate.Before(excs[j].ExceptionDate.Time) })
	return excs, nil
}

func (repo *exceptionRepository) DeleteException(id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return calendar.ErrExceptionNotFound
	}
	delete(repo.db.table, id)
	return nil
}

// Holiday

type holidayRepository struct {
	db *holidayTable
}

var _ calendar.HolidayRepository = (*holidayRepository)(nil) // interface compliance check

func NewHolidayRepository(db *DB) calendar.HolidayRepository {
	return &holidayRepository{db: db.holiday}
}

func (repo *holidayRepository) CreateHoliday(h calendar.Holiday) (calendar.Holiday, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[h.ID] = &h
	return h, nil
}

func (repo *holidayRepository) GetHolidayByID(id string) (calendar.Holiday, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if h, ok := repo.db.table[id]; ok {
		return *h, nil
	}
	return calendar.Holiday{}, calendar.ErrHolidayNotFound
}

func (repo *holidayRepository) ListHolidaysInRange(rangeStart, rangeEnd core.Date, filter calendar.Filter) ([]calendar.Holiday, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var holidays []calendar.Holiday
	for _, h := range repo.db.table {
		if h.StartDate.After(rangeEnd.Time) || h.EndDate.Before(rangeStart.Time) {
			continue
		}
		if filter.CampusID != "" && h.CampusID != "" && h.CampusID != filter.CampusID {
			continue
		}
		holidays = append(holidays, *h)
	}
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].StartDate.Before(holidays[j].StartDate.Time) })
	return holidays, nil
}

func (repo *holidayRepository) UpdateHoliday(h calendar.Holiday) (calendar.Holiday, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[h.ID]; !ok {
		return calendar.Holiday{}, calendar.ErrHolidayNotFound
	}
	repo.db.table[h.ID] = &h
	return h, nil
}

func (repo *holidayRepository) DeleteHoliday(id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return calendar.ErrHolidayNotFound
	}
	delete(repo.db.table, id)
	return nil
}

// AcademicEvent

type eventRepository struct {
	db *eventTable
}

var _ calendar.AcademicEventRepository = (*eventRepository)(nil) // interface compliance check

func NewAcademicEventRepository(db *DB) calendar.AcademicEventRepository {
	return &eventRepository{db: db.event}
}

func (repo *eventRepository) CreateEvent(e calendar.AcademicEvent) (calendar.AcademicEvent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[e.ID] = &e
	return e, nil
}

func (repo *eventRepository) GetEventByID(id string) (calendar.AcademicEvent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.table[id]; ok {
		return *e, nil
	}
	return calendar.AcademicEvent{}, calendar.ErrEventNotFound
}

func (repo *eventRepository) ListEventsInRange(rangeStart, rangeEnd core.Date, filter calendar.Filter) ([]calendar.AcademicEvent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var events []calendar.AcademicEvent
	for _, e := range repo.db.table {
		if e.StartDate.After(rangeEnd.Time) || e.EndDate.Before(rangeStart.Time) {
			continue
		}
		if filter.CampusID != "" && e.CampusID != "" && e.CampusID != filter.CampusID {
			continue
		}
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate.Time) })
	return events, nil
}

func (repo *eventRepository) UpdateEvent(e calendar.AcademicEvent) (calendar.AcademicEvent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[e.ID]; !ok {
		return calendar.AcademicEvent{}, calendar.ErrEventNotFound
	}
	repo.db.table[e.ID] = &e
	return e, nil
}

func (repo *eventRepository) DeleteEvent(id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return calendar.ErrEventNotFound
	}
	delete(repo.db.table, id)
	return nil
}

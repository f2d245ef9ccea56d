package calendar

import (
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tmwangi/chuo/core"
)

var (
	// errors
	ErrPatternNotFound   = errors.New("schedule pattern not found")
	ErrExceptionNotFound = errors.New("schedule exception not found")
	ErrHolidayNotFound   = errors.New("holiday not found")
	ErrEventNotFound     = errors.New("academic event not found")
)

type (
	// PatternRepository persists schedule patterns. Writes for one pattern
	// id must be serialized by the implementation (table lock or row lock);
	// concurrent edits are last-write-wins.
	PatternRepository interface {
		CreatePattern(p SchedulePattern) (SchedulePattern, error)
		GetPatternByID(id string) (SchedulePattern, error)
		ListPatterns(filter Filter) ([]SchedulePattern, error)
		UpdatePattern(p SchedulePattern) (SchedulePattern, error)
	}

	// ExceptionRepository persists per-date pattern overrides.
	ExceptionRepository interface {
		// UpsertException enforces the (PatternID, ExceptionDate) unique
		// key: writing to an already-excepted date replaces that exception.
		UpsertException(exc ScheduleException) (ScheduleException, error)
		GetExceptionByID(id string) (ScheduleException, error)
		ListExceptionsForPattern(patternID string) ([]ScheduleException, error)
		DeleteException(id string) error
	}

	HolidayRepository interface {
		CreateHoliday(h Holiday) (Holiday, error)
		GetHolidayByID(id string) (Holiday, error)
		ListHolidaysInRange(rangeStart, rangeEnd core.Date, filter Filter) ([]Holiday, error)
		UpdateHoliday(h Holiday) (Holiday, error)
		DeleteHoliday(id string) error
	}

	AcademicEventRepository interface {
		CreateEvent(e AcademicEvent) (AcademicEvent, error)
		GetEventByID(id string) (AcademicEvent, error)
		ListEventsInRange(rangeStart, rangeEnd core.Date, filter Filter) ([]AcademicEvent, error)
		UpdateEvent(e AcademicEvent) (AcademicEvent, error)
		DeleteEvent(id string) error
	}

	// AggregateResult is one aggregation response. RequestToken identifies
	// the request that produced it so a UI that has since changed its range
	// or filters can discard the stale response on arrival.
	AggregateResult struct {
		RequestToken string          `json:"request_token"`
		RangeStart   core.Date       `json:"range_start"`
		RangeEnd     core.Date       `json:"range_end"`
		Events       []CalendarEvent `json:"events"`
		Warnings     []string        `json:"warnings,omitempty"`
	}

	Service interface {
		// AggregateRange fan-reads all event sources for the range and
		// merges them into one timeline. A failing source degrades the
		// result (empty category + warning) instead of failing it.
		AggregateRange(rangeStart, rangeEnd core.Date, filter Filter) (AggregateResult, error)

		CreatePattern(np NewPattern) (SchedulePattern, error)
		UpdatePattern(id string, up UpdatePattern) (SchedulePattern, error)
		// DeletePattern soft-invalidates: the pattern is marked inactive and
		// drops out of aggregation, but stays queryable for history.
		DeletePattern(id string) error
		GetPattern(id string) (SchedulePattern, error)
		ListPatterns(filter Filter) ([]SchedulePattern, error)
		// ResolveOccurrences expands one pattern over a range and applies
		// its exceptions, memoizing the result until the next mutation.
		ResolveOccurrences(patternID string, rangeStart, rangeEnd core.Date) ([]Occurrence, error)

		CreateException(ne NewException) (ScheduleException, error)
		DeleteException(id string) error
		ListExceptions(patternID string) ([]ScheduleException, error)

		CreateHoliday(nh NewHoliday) (Holiday, error)
		UpdateHoliday(id string, nh NewHoliday) (Holiday, error)
		DeleteHoliday(id string) error

		CreateAcademicEvent(ne NewAcademicEvent) (AcademicEvent, error)
		UpdateAcademicEvent(id string, ne NewAcademicEvent) (AcademicEvent, error)
		DeleteAcademicEvent(id string) error
	}

	service struct {
		patternRepo PatternRepository
		excRepo     ExceptionRepository
		holRepo     HolidayRepository
		evtRepo     AcademicEventRepository
		cache       *occurrenceCache
		mailSvc     core.EmailService
		logger      core.Logger
		adminEmail  string
	}
)

var _ Service = (*service)(nil)

func NewService(
	conf *core.Config,
	logger core.Logger,
	mailSvc core.EmailService,
	patternRepo PatternRepository,
	excRepo ExceptionRepository,
	holRepo HolidayRepository,
	evtRepo AcademicEventRepository,
) (Service, error) {
	cache, err := newOccurrenceCache(conf.Calendar.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating occurrence cache")
	}
	return &service{
		patternRepo: patternRepo,
		excRepo:     excRepo,
		holRepo:     holRepo,
		evtRepo:     evtRepo,
		cache:       cache,
		mailSvc:     mailSvc,
		logger:      logger,
		adminEmail:  conf.AdminEmail,
	}, nil
}

// Aggregation

func (svc *service) AggregateRange(rangeStart, rangeEnd core.Date, filter Filter) (AggregateResult, error) {
	if rangeEnd.Before(rangeStart.Time) {
		return AggregateResult{}, core.NewValidationError(nil,
			core.FieldError{Field: "end", Error: "range end cannot be before range start"})
	}

	src := svc.fetchSources(rangeStart, rangeEnd, filter)

	// resolve active patterns through the memo cache
	src.OccurrencesByPattern = make(map[string][]Occurrence, len(src.Patterns))
	for _, p := range src.Patterns {
		if !p.IsActive {
			continue
		}
		src.OccurrencesByPattern[p.ID] = svc.resolve(p, src.ExceptionsByPattern[p.ID], rangeStart, rangeEnd)
	}

	return AggregateResult{
		RequestToken: uuid.New().String(),
		RangeStart:   rangeStart,
		RangeEnd:     rangeEnd,
		Events:       Aggregate(rangeStart, rangeEnd, src, filter),
		Warnings:     src.Warnings,
	}, nil
}

// fetchSources issues the category reads concurrently and joins them.
// Each category degrades independently: a failed fetch leaves it empty
// and records a warning.
func (svc *service) fetchSources(rangeStart, rangeEnd core.Date, filter Filter) Sources {
	var (
		src Sources
		mu  sync.Mutex
		wg  sync.WaitGroup
	)
	degrade := func(category string, err error) {
		mu.Lock()
		src.Warnings = append(src.Warnings, category+" unavailable")
		mu.Unlock()
		svc.logger.Warn(fmt.Sprintf("aggregation degraded: fetching %s", category), err)
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		patterns, err := svc.patternRepo.ListPatterns(filter)
		if err != nil {
			degrade("schedules", err)
			return
		}
		excs := make(map[string][]ScheduleException, len(patterns))
		for _, p := range patterns {
			if !p.IsActive {
				continue
			}
			pexcs, err := svc.excRepo.ListExceptionsForPattern(p.ID)
			if err != nil {
				// drop the whole category rather than publish patterns with
				// a partial exception sweep: unadjusted occurrences would
				// render cancelled classes and, worse, get memoized
				degrade("schedules", err)
				return
			}
			excs[p.ID] = pexcs
		}
		mu.Lock()
		src.Patterns, src.ExceptionsByPattern = patterns, excs
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		holidays, err := svc.holRepo.ListHolidaysInRange(rangeStart, rangeEnd, filter)
		if err != nil {
			degrade("holidays", err)
			return
		}
		mu.Lock()
		src.Holidays = holidays
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		events, err := svc.evtRepo.ListEventsInRange(rangeStart, rangeEnd, filter)
		if err != nil {
			degrade("academic events", err)
			return
		}
		mu.Lock()
		src.AcademicEvents = events
		mu.Unlock()
	}()
	wg.Wait()

	return src
}

func (svc *service) resolve(p SchedulePattern, excs []ScheduleException, rangeStart, rangeEnd core.Date) []Occurrence {
	if occs, hit := svc.cache.get(p.ID, rangeStart, rangeEnd); hit {
		return occs
	}
	occs := ApplyExceptions(p, Expand(p, rangeStart, rangeEnd), excs)
	svc.cache.put(p.ID, rangeStart, rangeEnd, occs)
	return occs
}

func (svc *service) ResolveOccurrences(patternID string, rangeStart, rangeEnd core.Date) ([]Occurrence, error) {
	p, err := svc.patternRepo.GetPatternByID(patternID)
	if err != nil {
		return nil, err
	}
	excs, err := svc.excRepo.ListExceptionsForPattern(p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing exceptions")
	}
	return svc.resolve(p, excs, rangeStart, rangeEnd), nil
}

// Pattern mutations

func (svc *service) CreatePattern(np NewPattern) (SchedulePattern, error) {
	if err := np.Validate(); err != nil {
		return SchedulePattern{}, err
	}
	now := time.Now().UTC()
	p := SchedulePattern{
		ID:          uuid.New().String(),
		Name:        np.Name,
		Description: np.Description,
		CampusID:    np.CampusID,
		Recurrence:  np.Recurrence,
		DaysOfWeek:  parseWeekdays(np.DaysOfWeek),
		CustomDates: parseDates(np.CustomDates),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.StartTime, _ = core.ParseClock(np.StartTime)
	p.EndTime, _ = core.ParseClock(np.EndTime)
	p.StartDate, _ = core.ParseDate(np.StartDate)
	if np.EndDate != "" {
		end, _ := core.ParseDate(np.EndDate)
		p.EndDate = &end
	}
	return svc.patternRepo.CreatePattern(p)
}

func (svc *service) UpdatePattern(id string, up UpdatePattern) (SchedulePattern, error) {
	orig, err := svc.patternRepo.GetPatternByID(id)
	if err != nil {
		return SchedulePattern{}, err
	}
	if err := up.Validate(orig); err != nil {
		return SchedulePattern{}, err
	}

	p := orig
	p.Name = up.Name
	p.Description = up.Description
	p.CampusID = up.CampusID
	p.Recurrence = up.Recurrence
	p.DaysOfWeek = parseWeekdays(up.DaysOfWeek)
	p.CustomDates = parseDates(up.CustomDates)
	p.StartTime, _ = core.ParseClock(up.StartTime)
	p.EndTime, _ = core.ParseClock(up.EndTime)
	p.StartDate, _ = core.ParseDate(up.StartDate)
	p.EndDate = nil
	if up.EndDate != "" {
		end, _ := core.ParseDate(up.EndDate)
		p.EndDate = &end
	}
	p.UpdatedAt = time.Now().UTC()

	updated, err := svc.patternRepo.UpdatePattern(p)
	if err != nil {
		return SchedulePattern{}, err
	}
	svc.cache.invalidate(id)
	return updated, nil
}

func (svc *service) DeletePattern(id string) error {
	p, err := svc.patternRepo.GetPatternByID(id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
	if _, err = svc.patternRepo.UpdatePattern(p); err != nil {
		return errors.Wrap(err, "deactivating pattern")
	}
	svc.cache.invalidate(id)
	return nil
}

func (svc *service) GetPattern(id string) (SchedulePattern, error) {
	return svc.patternRepo.GetPatternByID(id)
}

func (svc *service) ListPatterns(filter Filter) ([]SchedulePattern, error) {
	return svc.patternRepo.ListPatterns(filter)
}

// Exception mutations

func (svc *service) CreateException(ne NewException) (ScheduleException, error) {
	p, err := svc.patternRepo.GetPatternByID(ne.PatternID)
	if err != nil {
		if errors.Cause(err) == ErrPatternNotFound {
			return ScheduleException{}, core.NewValidationError(err,
				core.FieldError{Field: "pattern_id", Error: err.Error()})
		}
		return ScheduleException{}, err
	}
	if err := ne.Validate(p); err != nil {
		return ScheduleException{}, err
	}

	now := time.Now().UTC()
	exc := ScheduleException{
		ID:        uuid.New().String(),
		PatternID: p.ID,
		Reason:    ne.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	exc.ExceptionDate, _ = core.ParseDate(ne.ExceptionDate)
	if ne.AlternativeDate != "" {
		d, _ := core.ParseDate(ne.AlternativeDate)
		exc.AlternativeDate = &d
	}
	if ne.AlternativeStart != "" {
		c, _ := core.ParseClock(ne.AlternativeStart)
		exc.AlternativeStart = &c
	}
	if ne.AlternativeEnd != "" {
		c, _ := core.ParseClock(ne.AlternativeEnd)
		exc.AlternativeEnd = &c
	}

	exc, err = svc.excRepo.UpsertException(exc)
	if err != nil {
		return ScheduleException{}, err
	}
	svc.cache.invalidate(p.ID)
	svc.notifyException(p, exc)
	return exc, nil
}

func (svc *service) DeleteException(id string) error {
	exc, err := svc.excRepo.GetExceptionByID(id)
	if err != nil {
		return err
	}
	if err = svc.excRepo.DeleteException(id); err != nil {
		return err
	}
	svc.cache.invalidate(exc.PatternID)
	svc.notifyExceptionRemoved(exc)
	return nil
}

func (svc *service) ListExceptions(patternID string) ([]ScheduleException, error) {
	if _, err := svc.patternRepo.GetPatternByID(patternID); err != nil {
		return nil, err
	}
	return svc.excRepo.ListExceptionsForPattern(patternID)
}

func (svc *service) notifyException(p SchedulePattern, exc ScheduleException) {
	if svc.adminEmail == "" {
		return
	}
	verb := "rescheduled"
	if exc.IsCancellation() {
		verb = "cancelled"
	}
	body := fmt.Sprintf("%q on %s has been %s.", p.Name, exc.ExceptionDate, verb)
	if exc.Reason != "" {
		body += "\nReason: " + exc.Reason
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: svc.adminEmail}},
		Subject: fmt.Sprintf("Schedule change: %s", p.Name),
		BodyStr: body,
	})
}

func (svc *service) notifyExceptionRemoved(exc ScheduleException) {
	if svc.adminEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: svc.adminEmail}},
		Subject: "Schedule change withdrawn",
		BodyStr: fmt.Sprintf("The exception for %s has been withdrawn; the original schedule applies again.", exc.ExceptionDate),
	})
}

// Holiday mutations

func (svc *service) CreateHoliday(nh NewHoliday) (Holiday, error) {
	if err := nh.Validate(); err != nil {
		return Holiday{}, err
	}
	now := time.Now().UTC()
	h := Holiday{
		ID:        uuid.New().String(),
		Name:      nh.Name,
		CampusID:  nh.CampusID,
		Type:      nh.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.StartDate, _ = core.ParseDate(nh.StartDate)
	h.EndDate, _ = core.ParseDate(nh.EndDate)
	return svc.holRepo.CreateHoliday(h)
}

func (svc *service) UpdateHoliday(id string, nh NewHoliday) (Holiday, error) {
	orig, err := svc.holRepo.GetHolidayByID(id)
	if err != nil {
		return Holiday{}, err
	}
	if err := nh.Validate(); err != nil {
		return Holiday{}, err
	}
	h := orig
	h.Name = nh.Name
	h.CampusID = nh.CampusID
	h.Type = nh.Type
	h.StartDate, _ = core.ParseDate(nh.StartDate)
	h.EndDate, _ = core.ParseDate(nh.EndDate)
	h.UpdatedAt = time.Now().UTC()
	return svc.holRepo.UpdateHoliday(h)
}

func (svc *service) DeleteHoliday(id string) error {
	if _, err := svc.holRepo.GetHolidayByID(id); err != nil {
		return err
	}
	return svc.holRepo.DeleteHoliday(id)
}

// Academic event mutations

func (svc *service) CreateAcademicEvent(ne NewAcademicEvent) (AcademicEvent, error) {
	if err := ne.Validate(); err != nil {
		return AcademicEvent{}, err
	}
	now := time.Now().UTC()
	e := AcademicEvent{
		ID:          uuid.New().String(),
		Title:       ne.Title,
		Description: ne.Description,
		CampusID:    ne.CampusID,
		Type:        ne.Type,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.StartDate, _ = core.ParseDate(ne.StartDate)
	e.EndDate, _ = core.ParseDate(ne.EndDate)
	return svc.evtRepo.CreateEvent(e)
}

func (svc *service) UpdateAcademicEvent(id string, ne NewAcademicEvent) (AcademicEvent, error) {
	orig, err := svc.evtRepo.GetEventByID(id)
	if err != nil {
		return AcademicEvent{}, err
	}
	if err := ne.Validate(); err != nil {
		return AcademicEvent{}, err
	}
	e := orig
	e.Title = ne.Title
	e.Description = ne.Description
	e.CampusID = ne.CampusID
	e.Type = ne.Type
	e.StartDate, _ = core.ParseDate(ne.StartDate)
	e.EndDate, _ = core.ParseDate(ne.EndDate)
	e.UpdatedAt = time.Now().UTC()
	return svc.evtRepo.UpdateEvent(e)
}

func (svc *service) DeleteAcademicEvent(id string) error {
	if _, err := svc.evtRepo.GetEventByID(id); err != nil {
		return err
	}
	return svc.evtRepo.DeleteEvent(id)
}

package sqlxrepos

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmwangi/chuo/core"
	"github.com/tmwangi/chuo/core/calendar"
)

// SchedulePattern

type patternRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	CampusID    null.String    `db:"campus_id"`
	Recurrence  string         `db:"recurrence"`
	DaysOfWeek  pq.Int64Array  `db:"days_of_week"`
	StartTime   string         `db:"start_time"`
	EndTime     string         `db:"end_time"`
	StartDate   time.Time      `db:"start_date"`
	EndDate     null.Time      `db:"end_date"`
	CustomDates pq.StringArray `db:"custom_dates"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r patternRow) pattern() calendar.SchedulePattern {
	p := calendar.SchedulePattern{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CampusID:    r.CampusID.String,
		Recurrence:  calendar.Recurrence(r.Recurrence),
		StartDate:   core.DateOf(r.StartDate),
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	p.StartTime, _ = core.ParseClock(r.StartTime) // written pre-validated
	p.EndTime, _ = core.ParseClock(r.EndTime)
	if r.EndDate.Valid {
		end := core.DateOf(r.EndDate.Time)
		p.EndDate = &end
	}
	for _, day := range r.DaysOfWeek {
		p.DaysOfWeek = append(p.DaysOfWeek, time.Weekday(day))
	}
	for _, s := range r.CustomDates {
		d, _ := core.ParseDate(s)
		p.CustomDates = append(p.CustomDates, d)
	}
	return p
}

func newPatternRow(p calendar.SchedulePattern) patternRow {
	row := patternRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CampusID:    null.NewString(p.CampusID, p.CampusID != ""),
		Recurrence:  string(p.Recurrence),
		DaysOfWeek:  pq.Int64Array{},
		StartTime:   p.StartTime.String(),
		EndTime:     p.EndTime.String(),
		StartDate:   p.StartDate.Time,
		CustomDates: pq.StringArray{},
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.EndDate != nil {
		row.EndDate = null.TimeFrom(p.EndDate.Time)
	}
	for _, day := range p.DaysOfWeek {
		row.DaysOfWeek = append(row.DaysOfWeek, int64(day))
	}
	for _, d := range p.CustomDates {
		row.CustomDates = append(row.CustomDates, d.String())
	}
	return row
}

type patternRepository struct {
	db *sqlx.DB
}

var _ calendar.PatternRepository = (*patternRepository)(nil) // interface compliance check

func NewPatternRepository(db *sqlx.DB) calendar.PatternRepository {
	return &patternRepository{db: db}
}

func (repo *patternRepository) CreatePattern(p calendar.SchedulePattern) (calendar.SchedulePattern, error) {
	_, err := repo.db.NamedExec(
		`INSERT INTO schedule_pattern (id, name, description, campus_id, recurrence, days_of_week, start_time, end_time, start_date, end_date, custom_dates, is_active, created_at, updated_at)
		 VALUES (:id, :name, :description, :campus_id, :recurrence, :days_of_week, :start_time, :end_time, :start_date, :end_date, :custom_dates, :is_active, :created_at, :updated_at)`,
		newPatternRow(p),
	)
	if err != nil {
		return calendar.SchedulePattern{}, errors.Wrap(err, "creating pattern")
	}
	return p, nil
}

func (repo *patternRepository) GetPatternByID(id string) (calendar.SchedulePattern, error) {
	var row patternRow
	if err := repo.db.Get(&row, `SELECT * FROM schedule_pattern WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return calendar.SchedulePattern{}, calendar.ErrPatternNotFound
		}
		return calendar.SchedulePattern{}, errors.Wrap(err, "getting pattern")
	}
	return row.pattern(), nil
}

func (repo *patternRepository) ListPatterns(filter calendar.Filter) ([]calendar.SchedulePattern, error) {
	query := `SELECT * FROM schedule_pattern`
	var args []interface{}
	if filter.CampusID != "" {
		query += ` WHERE campus_id IS NULL OR campus_id = $1`
		args = append(args, filter.CampusID)
	}
	query += ` ORDER BY id`

	var rows []patternRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing patterns")
	}
	patterns := make([]calendar.SchedulePattern, 0, len(rows))
	for _, row := range rows {
		patterns = append(patterns, row.pattern())
	}
	return patterns, nil
}

func (repo *patternRepository) UpdatePattern(p calendar.SchedulePattern) (calendar.SchedulePattern, error) {
	res, err := repo.db.NamedExec(
		`UPDATE schedule_pattern
		 SET name = :name, description = :description, campus_id = :campus_id, recurrence = :recurrence,
		     days_of_week = :days_of_week, start_time = :start_time, end_time = :end_time,
		     start_date = :start_date, end_date = :end_date, custom_dates = :custom_dates,
		     is_active = :is_active, updated_at = :updated_at
		 WHERE id = :id`,
		newPatternRow(p),
	)
	if err != nil {
		return calendar.SchedulePattern{}, errors.Wrap(err, "updating pattern")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return calendar.SchedulePattern{}, calendar.ErrPatternNotFound
	}
	return repo.GetPatternByID(p.ID)
}

// ScheduleException

type exceptionRow struct {
	ID               string      `db:"id"`
	PatternID        string      `db:"pattern_id"`
	ExceptionDate    time.Time   `db:"exception_date"`
	Reason           string      `db:"reason"`
	AlternativeDate  null.Time   `db:"alternative_date"`
	AlternativeStart null.String `db:"alternative_start"`
	AlternativeEnd   null.String `db:"alternative_end"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func (r exceptionRow) exception() calendar.ScheduleException {
	exc := calendar.ScheduleException{
		ID:            r.ID,
		PatternID:     r.PatternID,
		ExceptionDate: core.DateOf(r.ExceptionDate),
		Reason:        r.Reason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.AlternativeDate.Valid {
		d := core.DateOf(r.AlternativeDate.Time)
		exc.AlternativeDate = &d
	}
	if r.AlternativeStart.Valid {
		c, _ := core.ParseClock(r.AlternativeStart.String)
		exc.AlternativeStart = &c
	}
	if r.AlternativeEnd.Valid {
		c, _ := core.ParseClock(r.AlternativeEnd.String)
		exc.AlternativeEnd = &c
	}
	return exc
}

func newExceptionRow(exc calendar.ScheduleException) exceptionRow {
	row := exceptionRow{
		ID:            exc.ID,
		PatternID:     exc.PatternID,
		ExceptionDate: exc.ExceptionDate.Time,
		Reason:        exc.Reason,
		CreatedAt:     exc.CreatedAt,
		UpdatedAt:     exc.UpdatedAt,
	}
	if exc.AlternativeDate != nil {
		row.AlternativeDate = null.TimeFrom(exc.AlternativeDate.Time)
	}
	if exc.AlternativeStart != nil {
		row.AlternativeStart = null.StringFrom(exc.AlternativeStart.String())
	}
	if exc.AlternativeEnd != nil {
		row.AlternativeEnd = null.StringFrom(exc.AlternativeEnd.String())
	}
	return row
}

type exceptionRepository struct {
	db *sqlx.DB
}

var _ calendar.ExceptionRepository = (*exceptionRepository)(nil) // interface compliance check

func NewExceptionRepository(db *sqlx.DB) calendar.ExceptionRepository {
	return &exceptionRepository{db: db}
}

func (repo *exceptionRepository) UpsertException(exc calendar.ScheduleException) (calendar.ScheduleException, error) {
	_, err := repo.db.NamedExec(
		`INSERT INTO schedule_exception (id, pattern_id, exception_date, reason, alternative_date, alternative_start, alternative_end, created_at, updated_at)
		 VALUES (:id, :pattern_id, :exception_date, :reason, :alternative_date, :alternative_start, :alternative_end, :created_at, :updated_at)
		 ON CONFLICT (pattern_id, exception_date) DO UPDATE
		 SET reason = EXCLUDED.reason, alternative_date = EXCLUDED.alternative_date,
		     alternative_start = EXCLUDED.alternative_start, alternative_end = EXCLUDED.alternative_end,
		     updated_at = EXCLUDED.updated_at`,
		newExceptionRow(exc),
	)
	if err != nil {
		return calendar.ScheduleException{}, errors.Wrap(err, "upserting exception")
	}

	// the stored row keeps its original id on conflict
	var row exceptionRow
	err = repo.db.Get(&row,
		`SELECT * FROM schedule_exception WHERE pattern_id = $1 AND exception_date = $2`,
		exc.PatternID, exc.ExceptionDate.Time,
	)
	if err != nil {
		return calendar.ScheduleException{}, errors.Wrap(err, "getting upserted exception")
	}
	return row.exception(), nil
}

func (repo *exceptionRepository) GetExceptionByID(id string) (calendar.ScheduleException, error) {
	var row exceptionRow
	if err := repo.db.Get(&row, `SELECT * FROM schedule_exception WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return calendar.ScheduleException{}, calendar.ErrExceptionNotFound
		}
		return calendar.ScheduleException{}, errors.Wrap(err, "getting exception")
	}
	return row.exception(), nil
}

func (repo *exceptionRepository) ListExceptionsForPattern(patternID string) ([]calendar.ScheduleException, error) {
	var rows []exceptionRow
	err := repo.db.Select(&rows,
		`SELECT * FROM schedule_exception WHERE pattern_id = $1 ORDER BY exception_date`, patternID)
	if err != nil {
		return nil, errors.Wrap(err, "listing exceptions")
	}
	excs := make([]calendar.ScheduleException, 0, len(rows))
	for _, row := range rows {
		excs = append(excs, row.exception())
	}
	return excs, nil
}

func (repo *exceptionRepository) DeleteException(id string) error {
	res, err := repo.db.Exec(`DELETE FROM schedule_exception WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting exception")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return calendar.ErrExceptionNotFound
	}
	return nil
}

// Holiday

type holidayRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	StartDate time.Time   `db:"start_date"`
	EndDate   time.Time   `db:"end_date"`
	CampusID  null.String `db:"campus_id"`
	Type      string      `db:"type"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r holidayRow) holiday() calendar.Holiday {
	return calendar.Holiday{
		ID:        r.ID,
		Name:      r.Name,
		StartDate: core.DateOf(r.StartDate),
		EndDate:   core.DateOf(r.EndDate),
		CampusID:  r.CampusID.String,
		Type:      r.Type,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newHolidayRow(h calendar.Holiday) holidayRow {
	return holidayRow{
		ID:        h.ID,
		Name:      h.Name,
		StartDate: h.StartDate.Time,
		EndDate:   h.EndDate.Time,
		CampusID:  null.NewString(h.CampusID, h.CampusID != ""),
		Type:      h.Type,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}

type holidayRepository struct {
	db *sqlx.DB
}

var _ calendar.HolidayRepository = (*holidayRepository)(nil) // interface compliance check

func NewHolidayRepository(db *sqlx.DB) calendar.HolidayRepository {
	return &holidayRepository{db: db}
}

func (repo *holidayRepository) CreateHoliday(h calendar.Holiday) (calendar.Holiday, error) {
	_, err := repo.db.NamedExec(
		`INSERT INTO holiday (id, name, start_date, end_date, campus_id, type, created_at, updated_at)
		 VALUES (:id, :name, :start_date, :end_date, :campus_id, :type, :created_at, :updated_at)`,
		newHolidayRow(h),
	)
	if err != nil {
		return calendar.Holiday{}, errors.Wrap(err, "creating holiday")
	}
	return h, nil
}

func (repo *holidayRepository) GetHolidayByID(id string) (calendar.Holiday, error) {
	var row holidayRow
	if err := repo.db.Get(&row, `SELECT * FROM holiday WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return calendar.Holiday{}, calendar.ErrHolidayNotFound
		}
		return calendar.Holiday{}, errors.Wrap(err, "getting holiday")
	}
	return row.holiday(), nil
}

func (repo *holidayRepository) ListHolidaysInRange(rangeStart, rangeEnd core.Date, filter calendar.Filter) ([]calendar.Holiday, error) {
	query := `SELECT * FROM holiday WHERE start_date <= $1 AND end_date >= $2`
	args := []interface{}{rangeEnd.Time, rangeStart.Time}
	if filter.CampusID != "" {
		query += fmt.Sprintf(` AND (campus_id IS NULL OR campus_id = $%d)`, len(args)+1)
		args = append(args, filter.CampusID)
	}
	query += ` ORDER BY start_date`

	var rows []holidayRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing holidays")
	}
	holidays := make([]calendar.Holiday, 0, len(rows))
	for _, row := range rows {
		holidays = append(holidays, row.holiday())
	}
	return holidays, nil
}

func (repo *holidayRepository) UpdateHoliday(h calendar.Holiday) (calendar.Holiday, error) {
	res, err := repo.db.NamedExec(
		`UPDATE holiday
		 SET name = :name, start_date = :start_date, end_date = :end_date,
		     campus_id = :campus_id, type = :type, updated_at = :updated_at
		 WHERE id = :id`,
		newHolidayRow(h),
	)
	if err != nil {
		return calendar.Holiday{}, errors.Wrap(err, "updating holiday")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return calendar.Holiday{}, calendar.ErrHolidayNotFound
	}
	return h, nil
}

func (repo *holidayRepository) DeleteHoliday(id string) error {
	res, err := repo.db.Exec(`DELETE FROM holiday WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting holiday")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return calendar.ErrHolidayNotFound
	}
	return nil
}

// AcademicEvent

type eventRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	StartDate   time.Time   `db:"start_date"`
	EndDate     time.Time   `db:"end_date"`
	CampusID    null.String `db:"campus_id"`
	Type        string      `db:"type"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r eventRow) event() calendar.AcademicEvent {
	return calendar.AcademicEvent{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		StartDate:   core.DateOf(r.StartDate),
		EndDate:     core.DateOf(r.EndDate),
		CampusID:    r.CampusID.String,
		Type:        r.Type,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func newEventRow(e calendar.AcademicEvent) eventRow {
	return eventRow{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartDate:   e.StartDate.Time,
		EndDate:     e.EndDate.Time,
		CampusID:    null.NewString(e.CampusID, e.CampusID != ""),
		Type:        e.Type,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type eventRepository struct {
	db *sqlx.DB
}

var _ calendar.AcademicEventRepository = (*eventRepository)(nil) // interface compliance check

func NewAcademicEventRepository(db *sqlx.DB) calendar.AcademicEventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(e calendar.AcademicEvent) (calendar.AcademicEvent, error) {
	_, err := repo.db.NamedExec(
		`INSERT INTO academic_event (id, title, description, start_date, end_date, campus_id, type, created_at, updated_at)
		 VALUES (:id, :title, :description, :start_date, :end_date, :campus_id, :type, :created_at, :updated_at)`,
		newEventRow(e),
	)
	if err != nil {
		return calendar.AcademicEvent{}, errors.Wrap(err, "creating academic event")
	}
	return e, nil
}

func (repo *eventRepository) GetEventByID(id string) (calendar.AcademicEvent, error) {
	var row eventRow
	if err := repo.db.Get(&row, `SELECT * FROM academic_event WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return calendar.AcademicEvent{}, calendar.ErrEventNotFound
		}
		return calendar.AcademicEvent{}, errors.Wrap(err, "getting academic event")
	}
	return row.event(), nil
}

func (repo *eventRepository) ListEventsInRange(rangeStart, rangeEnd core.Date, filter calendar.Filter) ([]calendar.AcademicEvent, error) {
	query := `SELECT * FROM academic_event WHERE start_date <= $1 AND end_date >= $2`
	args := []interface{}{rangeEnd.Time, rangeStart.Time}
	if filter.CampusID != "" {
		query += fmt.Sprintf(` AND (campus_id IS NULL OR campus_id = $%d)`, len(args)+1)
		args = append(args, filter.CampusID)
	}
	query += ` ORDER BY start_date`

	var rows []eventRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing academic events")
	}
	events := make([]calendar.AcademicEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.event())
	}
	return events, nil
}

func (repo *eventRepository) UpdateEvent(e calendar.AcademicEvent) (calendar.AcademicEvent, error) {
	res, err := repo.db.NamedExec(
		`UPDATE academic_event
		 SET title = :title, description = :description, start_date = :start_date, end_date = :end_date,
		     campus_id = :campus_id, type = :type, updated_at = :updated_at
		 WHERE id = :id`,
		newEventRow(e),
	)
	if err != nil {
		return calendar.AcademicEvent{}, errors.Wrap(err, "updating academic event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return calendar.AcademicEvent{}, calendar.ErrEventNotFound
	}
	return e, nil
}

func (repo *eventRepository) DeleteEvent(id string) error {
	res, err := repo.db.Exec(`DELETE FROM academic_event WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting academic event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return calendar.ErrEventNotFound
	}
	return nil
}

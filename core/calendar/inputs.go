package calendar

import (
	"time"

	"github.com/tmwangi/chuo/core"
)

// NewPattern contains information needed to create a SchedulePattern.
// Dates and times travel as strings and are validated before parsing so
// a malformed value surfaces as a field error, never a bind failure.
type NewPattern struct {
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description"`
	CampusID    string     `json:"campus_id"`
	Recurrence  Recurrence `json:"recurrence" validate:"required,oneof=DAILY WEEKLY BIWEEKLY MONTHLY CUSTOM"`
	DaysOfWeek  []string   `json:"days_of_week" validate:"omitempty,unique,dive,oneof=mon tue wed thu fri sat sun"`
	StartTime   string     `json:"start_time" validate:"required,hhmm"`
	EndTime     string     `json:"end_time" validate:"required,hhmm"`
	StartDate   string     `json:"start_date" validate:"required,dateonly"`
	EndDate     string     `json:"end_date" validate:"omitempty,dateonly"`
	CustomDates []string   `json:"custom_dates" validate:"omitempty,dive,dateonly"`
}

func (np *NewPattern) Validate() error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	np.CampusID = core.CleanString(np.CampusID)
	return core.Validate.Struct(np)
}

// UpdatePattern defines what may be modified on an existing SchedulePattern.
// Empty fields keep the original value.
type UpdatePattern struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CampusID    string     `json:"campus_id"`
	Recurrence  Recurrence `json:"recurrence" validate:"omitempty,oneof=DAILY WEEKLY BIWEEKLY MONTHLY CUSTOM"`
	DaysOfWeek  []string   `json:"days_of_week" validate:"omitempty,unique,dive,oneof=mon tue wed thu fri sat sun"`
	StartTime   string     `json:"start_time" validate:"omitempty,hhmm"`
	EndTime     string     `json:"end_time" validate:"omitempty,hhmm"`
	StartDate   string     `json:"start_date" validate:"omitempty,dateonly"`
	EndDate     string     `json:"end_date" validate:"omitempty,dateonly"`
	CustomDates []string   `json:"custom_dates" validate:"omitempty,dive,dateonly"`
}

func (up *UpdatePattern) Validate(orig SchedulePattern) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}
	if desc := core.CleanString(up.Description); desc != "" {
		up.Description = desc
	} else {
		up.Description = orig.Description
	}
	if campus := core.CleanString(up.CampusID); campus != "" {
		up.CampusID = campus
	} else {
		up.CampusID = orig.CampusID
	}
	if up.Recurrence == "" {
		up.Recurrence = orig.Recurrence
	}
	if up.StartTime == "" {
		up.StartTime = orig.StartTime.String()
	}
	if up.EndTime == "" {
		up.EndTime = orig.EndTime.String()
	}
	if up.StartDate == "" {
		up.StartDate = orig.StartDate.String()
	}
	if up.EndDate == "" && orig.EndDate != nil {
		up.EndDate = orig.EndDate.String()
	}
	if up.DaysOfWeek == nil {
		up.DaysOfWeek = formatWeekdays(orig.DaysOfWeek)
	}
	if up.CustomDates == nil {
		up.CustomDates = formatDates(orig.CustomDates)
	}
	return core.Validate.Struct(up)
}

// NewException contains information needed to file a ScheduleException.
// With none of the alternative fields set it cancels the target date.
type NewException struct {
	PatternID        string `json:"pattern_id" validate:"required"`
	ExceptionDate    string `json:"exception_date" validate:"required,dateonly"`
	Reason           string `json:"reason"`
	AlternativeDate  string `json:"alternative_date" validate:"omitempty,dateonly"`
	AlternativeStart string `json:"alternative_start" validate:"omitempty,hhmm"`
	AlternativeEnd   string `json:"alternative_end" validate:"omitempty,hhmm"`
}

// Validate checks the exception against its owning pattern: the exception
// date and any alternative date must fall within the pattern's bounds.
func (ne *NewException) Validate(pattern SchedulePattern) error {
	ne.Reason = core.CleanString(ne.Reason)
	if err := core.Validate.Struct(ne); err != nil {
		return err
	}

	var flds []core.FieldError
	excDate, _ := core.ParseDate(ne.ExceptionDate)
	if !pattern.InBounds(excDate) {
		flds = append(flds, core.FieldError{Field: "exception_date", Error: errDateOutOfBounds})
	}
	if ne.AlternativeDate != "" {
		altDate, _ := core.ParseDate(ne.AlternativeDate)
		if !pattern.InBounds(altDate) {
			flds = append(flds, core.FieldError{Field: "alternative_date", Error: errDateOutOfBounds})
		}
	}
	if ne.AlternativeStart != "" && ne.AlternativeEnd != "" {
		altStart, _ := core.ParseClock(ne.AlternativeStart)
		altEnd, _ := core.ParseClock(ne.AlternativeEnd)
		if !altStart.Before(altEnd) {
			flds = append(flds, core.FieldError{Field: "alternative_end", Error: errEndNotAfterStart})
		}
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// NewHoliday contains information needed to create a Holiday.
// EndDate defaults to StartDate (single day).
type NewHoliday struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required,dateonly"`
	EndDate   string `json:"end_date" validate:"omitempty,dateonly"`
	CampusID  string `json:"campus_id"`
	Type      string `json:"type"`
}

func (nh *NewHoliday) Validate() error {
	nh.Name = core.CleanString(nh.Name)
	nh.CampusID = core.CleanString(nh.CampusID)
	nh.Type = core.CleanString(nh.Type, true /* lower */)
	if nh.EndDate == "" {
		nh.EndDate = nh.StartDate
	}
	return core.Validate.Struct(nh)
}

// NewAcademicEvent contains information needed to create an AcademicEvent.
// EndDate defaults to StartDate (single day).
type NewAcademicEvent struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" validate:"required,dateonly"`
	EndDate     string `json:"end_date" validate:"omitempty,dateonly"`
	CampusID    string `json:"campus_id"`
	Type        string `json:"type"`
}

func (ne *NewAcademicEvent) Validate() error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.CampusID = core.CleanString(ne.CampusID)
	ne.Type = core.CleanString(ne.Type, true /* lower */)
	if ne.EndDate == "" {
		ne.EndDate = ne.StartDate
	}
	return core.Validate.Struct(ne)
}

// conversion helpers; inputs are pre-validated so parse errors cannot occur

func parseWeekdays(names []string) []time.Weekday {
	if len(names) == 0 {
		return nil
	}
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		days = append(days, weekdayNames[name])
	}
	return days
}

func formatWeekdays(days []time.Weekday) []string {
	if len(days) == 0 {
		return nil
	}
	names := make([]string, 0, len(days))
	for _, day := range days {
		names = append(names, weekdayValues[day])
	}
	return names
}

func parseDates(strs []string) []core.Date {
	if len(strs) == 0 {
		return nil
	}
	dates := make([]core.Date, 0, len(strs))
	for _, s := range strs {
		d, _ := core.ParseDate(s)
		dates = append(dates, d)
	}
	return dates
}

func formatDates(dates []core.Date) []string {
	if len(dates) == 0 {
		return nil
	}
	strs := make([]string, 0, len(dates))
	for _, d := range dates {
		strs = append(strs, d.String())
	}
	return strs
}

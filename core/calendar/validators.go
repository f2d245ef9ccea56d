package calendar

import (
	"github.com/go-playground/validator/v10"

	"github.com/tmwangi/chuo/core"
)

var (
	dateOnlyTag  = "dateonly"
	dateOnlyText = "must be a valid date in YYYY-MM-DD format"

	timeOrderTag        = "timeorder"
	errEndNotAfterStart = "end time must be after start time"

	dateOrderTag      = "dateorder"
	errEndBeforeStart = "end date cannot be before start date"

	customBoundsTag    = "custombounds"
	errDateOutOfBounds = "date falls outside the pattern's date bounds"
)

func init() {
	_ = core.Validate.RegisterValidation(dateOnlyTag, dateOnlyValidation)
	core.RegisterCustomTranslation(dateOnlyTag, dateOnlyText)

	core.Validate.RegisterStructValidation(patternStructValidation, NewPattern{}, UpdatePattern{})
	core.RegisterCustomTranslation(timeOrderTag, errEndNotAfterStart)
	core.RegisterCustomTranslation(dateOrderTag, errEndBeforeStart)
	core.RegisterCustomTranslation(customBoundsTag, errDateOutOfBounds)

	core.Validate.RegisterStructValidation(dateSpanStructValidation, NewHoliday{}, NewAcademicEvent{})
}

// dateOnlyValidation allows dates such as "2024-01-31".
func dateOnlyValidation(fl validator.FieldLevel) bool {
	_, err := core.ParseDate(fl.Field().String())
	return err == nil
}

// patternStructValidation enforces the cross-field pattern invariants:
// StartTime < EndTime, EndDate >= StartDate, and CUSTOM dates inside the
// pattern's bounds. Field-format failures are left to the field tags.
func patternStructValidation(sl validator.StructLevel) {
	var startTime, endTime, startDate, endDate, customDates string
	var customList []string

	switch p := sl.Current().Interface().(type) {
	case NewPattern:
		startTime, endTime, startDate, endDate = p.StartTime, p.EndTime, p.StartDate, p.EndDate
		customList, customDates = p.CustomDates, "custom_dates"
	case UpdatePattern:
		startTime, endTime, startDate, endDate = p.StartTime, p.EndTime, p.StartDate, p.EndDate
		customList, customDates = p.CustomDates, "custom_dates"
	default:
		return
	}

	start, serr := core.ParseClock(startTime)
	end, eerr := core.ParseClock(endTime)
	if serr == nil && eerr == nil && !start.Before(end) {
		sl.ReportError(endTime, "end_time", "EndTime", timeOrderTag, "")
	}

	from, ferr := core.ParseDate(startDate)
	if ferr != nil {
		return
	}
	var until *core.Date
	if endDate != "" {
		to, terr := core.ParseDate(endDate)
		if terr != nil {
			return
		}
		if to.Before(from.Time) {
			sl.ReportError(endDate, "end_date", "EndDate", dateOrderTag, "")
			return
		}
		until = &to
	}

	bounds := SchedulePattern{StartDate: from, EndDate: until}
	for _, s := range customList {
		d, derr := core.ParseDate(s)
		if derr != nil {
			return // field tag reports the format error
		}
		if !bounds.InBounds(d) {
			sl.ReportError(s, customDates, "CustomDates", customBoundsTag, "")
			return
		}
	}
}

// dateSpanStructValidation enforces EndDate >= StartDate on holiday and
// academic event inputs.
func dateSpanStructValidation(sl validator.StructLevel) {
	var startDate, endDate string

	switch e := sl.Current().Interface().(type) {
	case NewHoliday:
		startDate, endDate = e.StartDate, e.EndDate
	case NewAcademicEvent:
		startDate, endDate = e.StartDate, e.EndDate
	default:
		return
	}

	from, ferr := core.ParseDate(startDate)
	to, terr := core.ParseDate(endDate)
	if ferr == nil && terr == nil && to.Before(from.Time) {
		sl.ReportError(endDate, "end_date", "EndDate", dateOrderTag, "")
	}
}

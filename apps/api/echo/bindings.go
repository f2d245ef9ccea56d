package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tmwangi/chuo/core"
	"github.com/tmwangi/chuo/core/calendar"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// CalendarQuery is the query surface of the aggregated calendar endpoint.
// View defaults to month, anchor to today; start/end, when both set,
// override the view's derived range.
type CalendarQuery struct {
	View     string   `query:"view"`
	Anchor   string   `query:"anchor" validate:"omitempty,dateonly"`
	Start    string   `query:"start" validate:"omitempty,dateonly"`
	End      string   `query:"end" validate:"omitempty,dateonly"`
	CampusID string   `query:"campus_id"`
	Types    []string `query:"type" validate:"omitempty,dive,oneof=HOLIDAY ACADEMIC_EVENT SCHEDULE"`
}

func (q *CalendarQuery) Validate() error {
	q.View = core.CleanString(q.View, true /* lower */)
	if q.View == "" {
		q.View = string(calendar.ViewMonth)
	}
	q.CampusID = core.CleanString(q.CampusID)
	return core.Validate.Struct(q)
}

func (q *CalendarQuery) anchor() core.Date {
	if q.Anchor == "" {
		return core.DateOf(time.Now().UTC())
	}
	d, _ := core.ParseDate(q.Anchor) // pre-validated
	return d
}

// Resolve derives the view, anchor and date range this query asks for.
func (q *CalendarQuery) Resolve() (calendar.View, core.Date, core.Date, core.Date, error) {
	view := calendar.View(q.View)
	anchor := q.anchor()

	if q.Start != "" && q.End != "" {
		rangeStart, _ := core.ParseDate(q.Start)
		rangeEnd, _ := core.ParseDate(q.End)
		return view, anchor, rangeStart, rangeEnd, nil
	}

	rangeStart, rangeEnd, err := calendar.RangeFor(view, anchor)
	return view, anchor, rangeStart, rangeEnd, err
}

func (q *CalendarQuery) Filter() calendar.Filter {
	filter := calendar.Filter{CampusID: q.CampusID}
	for _, t := range q.Types {
		filter.Types = append(filter.Types, calendar.EventType(t))
	}
	return filter
}

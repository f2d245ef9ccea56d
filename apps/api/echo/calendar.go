package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmwangi/chuo/core"
	"github.com/tmwangi/chuo/core/access"
	"github.com/tmwangi/chuo/core/calendar"
)

type calendarApi struct {
	svc  calendar.Service
	gate *access.Gate
}

func registerCalendarAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc calendar.Service, gate *access.Gate) {
	api := calendarApi{svc: svc, gate: gate}

	// every portal role may view; mutations go through the gate
	cg := g.Group("/calendar", jwt)
	cg.GET("", api.aggregate)
	cg.GET("/capabilities", api.capabilities)

	pg := cg.Group("/patterns")
	pg.GET("", api.queryPatterns)
	pg.POST("", api.createPattern, permissionMiddleware(gate, access.ActionCreateSchedulePattern))
	pg.GET("/:id", api.retrievePattern)
	pg.PUT("/:id", api.updatePattern, permissionMiddleware(gate, access.ActionUpdateSchedulePattern))
	pg.DELETE("/:id", api.destroyPattern, permissionMiddleware(gate, access.ActionDeleteSchedulePattern))
	pg.GET("/:id/occurrences", api.queryOccurrences)
	pg.GET("/:id/exceptions", api.queryExceptions)

	eg := cg.Group("/exceptions")
	eg.POST("", api.createException, permissionMiddleware(gate, access.ActionCreateScheduleException))
	eg.DELETE("/:id", api.destroyException, permissionMiddleware(gate, access.ActionDeleteScheduleException))

	hg := cg.Group("/holidays")
	hg.POST("", api.createHoliday, permissionMiddleware(gate, access.ActionCreateHoliday))
	hg.PUT("/:id", api.updateHoliday, permissionMiddleware(gate, access.ActionUpdateHoliday))
	hg.DELETE("/:id", api.destroyHoliday, permissionMiddleware(gate, access.ActionDeleteHoliday))

	evg := cg.Group("/events")
	evg.POST("", api.createEvent, permissionMiddleware(gate, access.ActionCreateAcademicEvent))
	evg.PUT("/:id", api.updateEvent, permissionMiddleware(gate, access.ActionUpdateAcademicEvent))
	evg.DELETE("/:id", api.destroyEvent, permissionMiddleware(gate, access.ActionDeleteAcademicEvent))
}

type (
	// CalendarResponse is one rendered calendar: the aggregation result
	// plus the grid projected for the requested view. RequestToken lets a
	// client that has since re-queried discard this response as stale.
	CalendarResponse struct {
		RequestToken string        `json:"request_token"`
		View         calendar.View `json:"view"`
		Anchor       core.Date     `json:"anchor"`
		RangeStart   core.Date     `json:"range_start"`
		RangeEnd     core.Date     `json:"range_end"`
		Grid         interface{}   `json:"grid"`
		Warnings     []string      `json:"warnings,omitempty"`
	}

	CapabilitiesResponse struct {
		Actions []access.Action `json:"actions"`
	}
)

// Handlers

func (api *calendarApi) aggregate(ctx echo.Context) error {
	var query CalendarQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to CalendarQuery")
	}
	if err := query.Validate(); err != nil {
		return err
	}

	view, anchor, rangeStart, rangeEnd, err := query.Resolve()
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "view", Error: err.Error()})
	}

	res, err := api.svc.AggregateRange(rangeStart, rangeEnd, query.Filter())
	if err != nil {
		return errors.Wrap(err, "aggregating calendar")
	}

	grid, err := calendar.Project(res.Events, view, anchor)
	if err != nil {
		return errors.Wrap(err, "projecting calendar")
	}

	return ctx.JSON(http.StatusOK, CalendarResponse{
		RequestToken: res.RequestToken,
		View:         view,
		Anchor:       anchor,
		RangeStart:   res.RangeStart,
		RangeEnd:     res.RangeEnd,
		Grid:         grid,
		Warnings:     res.Warnings,
	})
}

func (api *calendarApi) capabilities(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return ctx.JSON(http.StatusOK, CapabilitiesResponse{Actions: api.gate.AllowedActions(claims.Roles)})
}

// Schedule patterns

func (api *calendarApi) queryPatterns(ctx echo.Context) error {
	var query CalendarQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to CalendarQuery")
	}
	if err := query.Validate(); err != nil {
		return err
	}

	patterns, err := api.svc.ListPatterns(query.Filter())
	if err != nil {
		return errors.Wrap(err, "listing patterns")
	}
	if patterns == nil {
		patterns = []calendar.SchedulePattern{}
	}
	return ctx.JSON(http.StatusOK, patterns)
}

func (api *calendarApi) createPattern(ctx echo.Context) error {
	var data calendar.NewPattern
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPattern")
	}

	p, err := api.svc.CreatePattern(data)
	if err != nil {
		return errors.Wrap(err, "creating pattern")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *calendarApi) retrievePattern(ctx echo.Context) error {
	p, err := api.svc.GetPattern(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == calendar.ErrPatternNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting pattern")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *calendarApi) updatePattern(ctx echo.Context) error {
	var data calendar.UpdatePattern
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePattern")
	}

	p, err := api.svc.UpdatePattern(ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == calendar.ErrPatternNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating pattern")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *calendarApi) destroyPattern(ctx echo.Context) error {
	if err := api.svc.DeletePattern(ctx.Param("id")); err != nil {
		if errors.Cause(err) == calendar.ErrPatternNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting pattern")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *calendarApi) queryOccurrences(ctx echo.Context) error {
	var query OccurrencesQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to OccurrencesQuery")
	}
	if err := query.Validate(); err != nil {
		return err
	}

	rangeStart, _ := core.ParseDate(query.Start)
	rangeEnd, _ := core.ParseDate(query.End)
	occs, err := api.svc.ResolveOccurrences(ctx.Param("id"), rangeStart, rangeEnd)
	if err != nil {
		if errors.Cause(err) == calendar.ErrPatternNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "resolving occurrences")
	}
	if occs == nil {
		occs = []calendar.Occurrence{}
	}
	return ctx.JSON(http.StatusOK, occs)
}

func (api *calendarApi) queryExceptions(ctx echo.Context) error {
	excs, err := api.svc.ListExceptions(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == calendar.ErrPatternNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "listing exceptions")
	}
	if excs == nil {
		excs = []calendar.ScheduleException{}
	}
	return ctx.JSON(http.StatusOK, excs)
}

// Schedule exceptions

func (api *calendarApi) createException(ctx echo.Context) error {
	var data calendar.NewException
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewException")
	}

	exc, err := api.svc.CreateException(data)
	if err != nil {
		return errors.Wrap(err, "creating exception")
	}
	return ctx.JSON(http.StatusCreated, exc)
}

func (api *calendarApi) destroyException(ctx echo.Context) error {
	if err := api.svc.DeleteException(ctx.Param("id")); err != nil {
		if errors.Cause(err) == calendar.ErrExceptionNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting exception")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Holidays

func (api *calendarApi) createHoliday(ctx echo.Context) error {
	var data calendar.NewHoliday
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHoliday")
	}

	h, err := api.svc.CreateHoliday(data)
	if err != nil {
		return errors.Wrap(err, "creating holiday")
	}
	return ctx.JSON(http.StatusCreated, h)
}

func (api *calendarApi) updateHoliday(ctx echo.Context) error {
	var data calendar.NewHoliday
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHoliday")
	}

	h, err := api.svc.UpdateHoliday(ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == calendar.ErrHolidayNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating holiday")
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *calendarApi) destroyHoliday(ctx echo.Context) error {
	if err := api.svc.DeleteHoliday(ctx.Param("id")); err != nil {
		if errors.Cause(err) == calendar.ErrHolidayNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting holiday")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Academic events

func (api *calendarApi) createEvent(ctx echo.Context) error {
	var data calendar.NewAcademicEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcademicEvent")
	}

	e, err := api.svc.CreateAcademicEvent(data)
	if err != nil {
		return errors.Wrap(err, "creating academic event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *calendarApi) updateEvent(ctx echo.Context) error {
	var data calendar.NewAcademicEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcademicEvent")
	}

	e, err := api.svc.UpdateAcademicEvent(ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == calendar.ErrEventNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating academic event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *calendarApi) destroyEvent(ctx echo.Context) error {
	if err := api.svc.DeleteAcademicEvent(ctx.Param("id")); err != nil {
		if errors.Cause(err) == calendar.ErrEventNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting academic event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// OccurrencesQuery bounds a single pattern's occurrence resolution.
type OccurrencesQuery struct {
	Start string `query:"start" validate:"required,dateonly"`
	End   string `query:"end" validate:"required,dateonly"`
}

func (q *OccurrencesQuery) Validate() error {
	return core.Validate.Struct(q)
}

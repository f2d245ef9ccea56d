package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmwangi/chuo/core/access"
	"github.com/tmwangi/chuo/core/calendar"
	"github.com/tmwangi/chuo/core/user"
)

var errForbidden = httpErr{Error: "permission denied"}

func (f *fixture) seedPattern(t *testing.T) calendar.SchedulePattern {
	t.Helper()
	p, err := f.calSvc.CreatePattern(calendar.NewPattern{
		Name:       "CS101 Lecture",
		Recurrence: calendar.RecurrenceWeekly,
		DaysOfWeek: []string{"mon", "wed"},
		StartTime:  "09:00",
		EndTime:    "10:00",
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-31",
	})
	require.NoError(t, err)
	return p
}

func Test_calendarApi_aggregate(t *testing.T) {
	f := setup(t)
	f.seedPattern(t)
	_, err := f.calSvc.CreateHoliday(calendar.NewHoliday{Name: "New Year", StartDate: "2024-01-01"})
	require.NoError(t, err)
	_, err = f.calSvc.CreateAcademicEvent(calendar.NewAcademicEvent{Title: "Orientation", StartDate: "2024-01-08", EndDate: "2024-01-09"})
	require.NoError(t, err)

	student := f.createUser(t, "Student", "stud01", user.StudentRoles)
	studentToken := f.getToken(t, student)

	t.Run("authentication required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/calendar")
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("month view", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/calendar?anchor=2024-01-15", studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res CalendarResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.RequestToken)
		assert.Equal(t, calendar.ViewMonth, res.View) // the default
		assert.Equal(t, "2024-01-01", res.RangeStart.String())
		assert.Equal(t, "2024-02-11", res.RangeEnd.String())
		assert.Empty(t, res.Warnings)

		var grid calendar.MonthGrid
		decodeGrid(t, res.Grid, &grid)
		assert.Len(t, grid.Cells, 42)
		assert.Equal(t, "2024-01-01", grid.Cells[0].Date.String())
		assert.True(t, hasEvent(grid.Cells[0].Events, "New Year"))
		assert.True(t, hasEvent(grid.Cells[0].Events, "CS101 Lecture"))
	})

	t.Run("week view needs its anchor week only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/calendar?view=week&anchor=2024-01-10", studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res CalendarResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "2024-01-08", res.RangeStart.String())
		assert.Equal(t, "2024-01-14", res.RangeEnd.String())

		var grid calendar.WeekGrid
		decodeGrid(t, res.Grid, &grid)
		assert.Equal(t, "2024-01-08", grid.Start.String())
		assert.True(t, hasEvent(grid.Days[0].Hours[9], "CS101 Lecture"))  // Mon
		assert.True(t, hasEvent(grid.Days[2].Hours[9], "CS101 Lecture"))  // Wed
		assert.False(t, hasEvent(grid.Days[1].Hours[9], "CS101 Lecture")) // Tue
	})

	t.Run("explicit range overrides the view's", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/calendar?anchor=2024-01-15&start=2024-01-01&end=2024-01-07", studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res CalendarResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "2024-01-01", res.RangeStart.String())
		assert.Equal(t, "2024-01-07", res.RangeEnd.String())
	})

	t.Run("type filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/calendar?anchor=2024-01-15&type=HOLIDAY", studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res CalendarResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		var grid calendar.MonthGrid
		decodeGrid(t, res.Grid, &grid)
		for _, cell := range grid.Cells {
			for _, ev := range cell.Events {
				assert.Equal(t, calendar.EventTypeHoliday, ev.Type)
			}
		}
	})

	t.Run("unknown view", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/calendar?view=fortnight", studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var flds map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flds))
		assert.Contains(t, flds, "view")
	})

	t.Run("invalid anchor", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/calendar?anchor=someday", studentToken)
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_calendarApi_capabilities(t *testing.T) {
	f := setup(t)
	student := f.createUser(t, "Student", "stud01", user.StudentRoles)
	teacher := f.createUser(t, "Teacher", "teach01", user.TeacherRoles)
	dean := f.createUser(t, "Dean", "dean01", []string{user.RoleAdminDean})

	tests := []httpTest{
		{name: "students get read-only access", token: f.getToken(t, student),
			wantData: marchallObj(t, CapabilitiesResponse{Actions: []access.Action{}})},
		{name: "teachers may file exceptions", token: f.getToken(t, teacher),
			wantData: marchallObj(t, CapabilitiesResponse{Actions: []access.Action{access.ActionCreateScheduleException}})},
		{name: "deans get the full surface", token: f.getToken(t, dean), extra: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/calendar/capabilities", tt.token)
			f.server.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			if n, ok := tt.extra.(int); ok {
				var res CapabilitiesResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.Len(t, res.Actions, n)
				return
			}
			checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: tt.wantData}, rec)
		})
	}
}

func Test_calendarApi_patternCRUD(t *testing.T) {
	f := setup(t)
	student := f.createUser(t, "Student", "stud01", user.StudentRoles)
	teacher := f.createUser(t, "Teacher", "teach01", user.TeacherRoles)
	dean := f.createUser(t, "Dean", "dean01", []string{user.RoleAdminDean})
	studentToken := f.getToken(t, student)
	teacherToken := f.getToken(t, teacher)
	deanToken := f.getToken(t, dean)

	body := marchallObj(t, calendar.NewPattern{
		Name:       "CS101 Lecture",
		Recurrence: calendar.RecurrenceWeekly,
		DaysOfWeek: []string{"mon", "wed"},
		StartTime:  "09:00",
		EndTime:    "10:00",
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-31",
	})

	denied := []httpTest{
		{name: "students cannot create patterns", token: studentToken},
		{name: "teachers cannot create patterns", token: teacherToken},
	}
	for _, tt := range denied {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/calendar/patterns", tt.token, body)
			f.server.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
		})
	}

	var created calendar.SchedulePattern
	t.Run("deans can create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/calendar/patterns", deanToken, body)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "CS101 Lecture", created.Name)
		assert.True(t, created.IsActive)
	})

	t.Run("anyone can list and retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/calendar/patterns", studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var patterns []calendar.SchedulePattern
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patterns))
		require.Len(t, patterns, 1)

		req, rec = newAuthRequest(http.MethodGet, "/v1/calendar/patterns/"+created.ID, studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("occurrences honour the recurrence", func(t *testing.T) {
		path := fmt.Sprintf("/v1/calendar/patterns/%s/occurrences?start=2024-01-01&end=2024-01-31", created.ID)
		req, rec := newAuthRequest(http.MethodGet, path, studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var occs []calendar.Occurrence
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &occs))
		assert.Len(t, occs, 10) // 5 Mondays + 5 Wednesdays
	})

	t.Run("update", func(t *testing.T) {
		upd := marchallObj(t, calendar.UpdatePattern{Name: "CS101 Lecture (Hall B)"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/calendar/patterns/"+created.ID, deanToken, upd)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var p calendar.SchedulePattern
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, "CS101 Lecture (Hall B)", p.Name)
		assert.Equal(t, created.Recurrence, p.Recurrence) // unset fields survive
	})

	t.Run("delete deactivates but keeps history", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/calendar/patterns/"+created.ID, deanToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/calendar/patterns/"+created.ID, studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var p calendar.SchedulePattern
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.False(t, p.IsActive)
	})

	t.Run("unknown pattern", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/calendar/patterns/nope", studentToken)
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid times are field errors", func(t *testing.T) {
		bad := marchallObj(t, calendar.NewPattern{
			Name:       "Backwards",
			Recurrence: calendar.RecurrenceDaily,
			StartTime:  "10:00",
			EndTime:    "09:00",
			StartDate:  "2024-01-01",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/calendar/patterns", deanToken, bad)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var flds map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flds))
		assert.Contains(t, flds, "end_time")
	})
}

func Test_calendarApi_exceptions(t *testing.T) {
	f := setup(t)
	pattern := f.seedPattern(t)
	student := f.createUser(t, "Student", "stud01", user.StudentRoles)
	teacher := f.createUser(t, "Teacher", "teach01", user.TeacherRoles)
	dean := f.createUser(t, "Dean", "dean01", []string{user.RoleAdminDean})
	studentToken := f.getToken(t, student)
	teacherToken := f.getToken(t, teacher)
	deanToken := f.getToken(t, dean)

	body := marchallObj(t, calendar.NewException{
		PatternID:     pattern.ID,
		ExceptionDate: "2024-01-08",
		Reason:        "staff meeting",
	})

	t.Run("students cannot file exceptions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/calendar/exceptions", studentToken, body)
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	var created calendar.ScheduleException
	t.Run("teachers can", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/calendar/exceptions", teacherToken, body)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, pattern.ID, created.PatternID)
		assert.Equal(t, "2024-01-08", created.ExceptionDate.String())
	})

	t.Run("the cancelled date drops out of the occurrences", func(t *testing.T) {
		path := fmt.Sprintf("/v1/calendar/patterns/%s/occurrences?start=2024-01-01&end=2024-01-31", pattern.ID)
		req, rec := newAuthRequest(http.MethodGet, path, studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var occs []calendar.Occurrence
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &occs))
		assert.Len(t, occs, 9)
		for _, occ := range occs {
			assert.NotEqual(t, "2024-01-08", occ.Date.String())
		}
	})

	t.Run("listed on the pattern", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/calendar/patterns/"+pattern.ID+"/exceptions", studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var excs []calendar.ScheduleException
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &excs))
		require.Len(t, excs, 1)
		assert.Equal(t, created.ID, excs[0].ID)
	})

	t.Run("out-of-bounds date is a field error", func(t *testing.T) {
		bad := marchallObj(t, calendar.NewException{PatternID: pattern.ID, ExceptionDate: "2024-03-01"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/calendar/exceptions", teacherToken, bad)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var flds map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flds))
		assert.Contains(t, flds, "exception_date")
	})

	t.Run("teachers cannot delete exceptions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/calendar/exceptions/"+created.ID, teacherToken)
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("deans can", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/calendar/exceptions/"+created.ID, deanToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/calendar/exceptions/"+created.ID, deanToken)
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_calendarApi_holidaysAndEvents(t *testing.T) {
	f := setup(t)
	teacher := f.createUser(t, "Teacher", "teach01", user.TeacherRoles)
	registrar := f.createUser(t, "Registrar", "regist01", []string{user.RoleAdminRegistrar})
	teacherToken := f.getToken(t, teacher)
	registrarToken := f.getToken(t, registrar)

	t.Run("teachers cannot create holidays", func(t *testing.T) {
		body := marchallObj(t, calendar.NewHoliday{Name: "Labour Day", StartDate: "2024-05-01"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/calendar/holidays", teacherToken, body)
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	var holiday calendar.Holiday
	t.Run("registrars can", func(t *testing.T) {
		body := marchallObj(t, calendar.NewHoliday{Name: "Labour Day", StartDate: "2024-05-01"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/calendar/holidays", registrarToken, body)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &holiday))
		assert.Equal(t, "2024-05-01", holiday.EndDate.String()) // defaults to start
	})

	t.Run("update and delete", func(t *testing.T) {
		body := marchallObj(t, calendar.NewHoliday{Name: "Labour Day", StartDate: "2024-05-01", EndDate: "2024-05-02"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/calendar/holidays/"+holiday.ID, registrarToken, body)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/calendar/holidays/"+holiday.ID, registrarToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/calendar/holidays/"+holiday.ID, registrarToken)
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("academic events", func(t *testing.T) {
		body := marchallObj(t, calendar.NewAcademicEvent{Title: "Finals Week", StartDate: "2024-06-10", EndDate: "2024-06-14", Type: "EXAM"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/calendar/events", registrarToken, body)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		var event calendar.AcademicEvent
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
		assert.Equal(t, "exam", event.Type)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/calendar/events/"+event.ID, teacherToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/calendar/events/"+event.ID, registrarToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

// decodeGrid round-trips the untyped grid of a decoded CalendarResponse
// into the concrete grid type for the view under test.
func decodeGrid(t *testing.T, grid interface{}, into interface{}) {
	t.Helper()
	data, err := json.Marshal(grid)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, into))
}

func hasEvent(events []calendar.CalendarEvent, title string) bool {
	for _, ev := range events {
		if ev.Title == title {
			return true
		}
	}
	return false
}

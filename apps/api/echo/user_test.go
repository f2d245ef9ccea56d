package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmwangi/chuo/core/user"
)

func Test_userApi_login(t *testing.T) {
	f := setup(t)
	usr := f.createUser(t, "Jane Awesome", "jawesome", user.StudentRoles)

	tests := []httpTest{
		{name: "empty credentials", body: marchallObj(t, LoginRequest{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"username": "username is a required field", "password": "password is a required field"})},
		{name: "wrong password", body: marchallObj(t, LoginRequest{Username: "jawesome", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "unknown user", body: marchallObj(t, LoginRequest{Username: "ghost1", Password: "S3curePass!"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			f.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("valid credentials", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Username: "jawesome", Password: "S3curePass!"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.Token)

		// login tracks the last visit
		usr, err := f.usrSvc.GetByID(usr.ID)
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})

	t.Run("deactivated account", func(t *testing.T) {
		isActive := false
		uu := user.UpdateUser{IsActive: &isActive}
		require.NoError(t, uu.Validate(usr, f.usrSvc))
		_, err := f.usrSvc.Update(usr.ID, uu)
		require.NoError(t, err)

		body := marchallObj(t, LoginRequest{Username: "jawesome", Password: "S3curePass!"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})}, rec)
	})
}

func Test_userApi_register(t *testing.T) {
	f := setup(t)
	student := f.createUser(t, "Student", "stud01", user.StudentRoles)
	registrar := f.createUser(t, "Registrar", "regist01", []string{user.RoleAdminRegistrar})

	body := marchallObj(t, user.NewUser{
		Name:            "New Teacher",
		Username:        "teach01",
		Email:           "teach01@chuo.test",
		Password:        "S3curePass!",
		PasswordConfirm: "S3curePass!",
		Roles:           user.TeacherRoles,
	})

	t.Run("admins only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", f.getToken(t, student), body)
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("registrar registers a teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", f.getToken(t, registrar), body)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var usr user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.Equal(t, "teach01", usr.Username)
		assert.Equal(t, user.TeacherRoles, usr.Roles)
	})

	t.Run("cannot grant roles above your own", func(t *testing.T) {
		over := marchallObj(t, user.NewUser{
			Name:            "Wannabe Dean",
			Username:        "wdean01",
			Email:           "wdean01@chuo.test",
			Password:        "S3curePass!",
			PasswordConfirm: "S3curePass!",
			Roles:           []string{user.RoleAdminDean},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", f.getToken(t, registrar), over)
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"roles": errNoPermsToSetRoles})}, rec)
	})

	t.Run("duplicate username", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", f.getToken(t, registrar), body)
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_userApi_detail(t *testing.T) {
	f := setup(t)
	student := f.createUser(t, "Student", "stud01", user.StudentRoles)
	other := f.createUser(t, "Other", "stud02", user.StudentRoles)
	registrar := f.createUser(t, "Registrar", "regist01", []string{user.RoleAdminRegistrar})
	studentToken := f.getToken(t, student)
	registrarToken := f.getToken(t, registrar)

	t.Run("owners and admins see the detail, others get 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+student.ID, studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, studentToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, registrarToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("owners cannot touch admin-only fields", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Roles: user.TeacherRoles})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, body)
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

		body = marchallObj(t, user.UpdateUser{Name: "Student Renamed"})
		req, rec = newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, body)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admins cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+registrar.ID, registrarToken)
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("admins can delete others", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+other.ID, registrarToken)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		_, err := f.usrSvc.GetByID(other.ID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})
}

package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmwangi/chuo/core"
	"github.com/tmwangi/chuo/core/access"
	"github.com/tmwangi/chuo/core/calendar"
	"github.com/tmwangi/chuo/core/user"
	emailsvc "github.com/tmwangi/chuo/services/email"
	dummydb "github.com/tmwangi/chuo/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}

func testConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		AppName:          "Chuo",
		SecretKey:        "secret",
		DefaultFromEmail: "noreply@chuo.test",
		AdminEmail:       "registrar@chuo.test",
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Calendar: core.CalendarConfig{CacheSize: 16},
	}
}

type fixture struct {
	server Server
	conf   *core.Config
	usrSvc user.Service
	calSvc calendar.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := testConfig()
	db, err := dummydb.Open()
	require.NoError(t, err)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(dummydb.NewUserRepository(db), mailSvc)
	calSvc, err := calendar.NewService(
		conf, nopLogger{}, mailSvc,
		dummydb.NewPatternRepository(db),
		dummydb.NewExceptionRepository(db),
		dummydb.NewHolidayRepository(db),
		dummydb.NewAcademicEventRepository(db),
	)
	require.NoError(t, err)

	server := NewServer(
		&Options{
			DisableReqLogs: true,
			Conf:           conf,
			Logger:         nopLogger{},
			UserSvc:        usrSvc,
			CalendarSvc:    calSvc,
			Gate:           access.NewGate(access.DefaultTable()),
		},
	)
	return &fixture{server: server, conf: conf, usrSvc: usrSvc, calSvc: calSvc}
}

func (f *fixture) createUser(t *testing.T, name, uname string, roles []string) user.User {
	t.Helper()
	usr, err := f.usrSvc.Create(user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           uname + "@chuo.test",
		Password:        "S3curePass!",
		PasswordConfirm: "S3curePass!",
		Roles:           roles,
	})
	require.NoError(t, err)
	return usr
}

func (f *fixture) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(f.conf, GetUserClaims(f.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

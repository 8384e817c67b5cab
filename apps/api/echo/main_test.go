package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/attendance"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/notification"
	"github.com/trezcool/appel/core/roster"
	"github.com/trezcool/appel/services/email"
	"github.com/trezcool/appel/services/logger"
	"github.com/trezcool/appel/storage/database/inmem"
	"github.com/trezcool/appel/testutil"
)

var (
	bg = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errBadToken     = httpErr{Error: "invalid or expired jwt"}
	errForbidden    = httpErr{Error: core.ErrUnauthorized.Error()}
	errNotFound     = httpErr{Error: core.ErrNotFound.Error()}
)

type fixture struct {
	app        Server
	conf       *core.Config
	idRepo     identity.Repository
	rosterRepo roster.Repository
	attendRepo attendance.Repository
	notifRepo  notification.Repository
	school     testutil.School
}

func setup(t *testing.T, opts ...func(*Options)) fixture {
	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()

	// set up DB & repos
	db := inmemdb.Open()
	f := fixture{
		conf:       conf,
		idRepo:     inmemdb.NewIdentityRepository(db),
		rosterRepo: inmemdb.NewRosterRepository(db),
		attendRepo: inmemdb.NewAttendanceRepository(db),
		notifRepo:  inmemdb.NewNotificationRepository(db),
	}
	f.school = testutil.SeedSchool(t, f.idRepo, f.rosterRepo)

	// set up services
	validate, translator := testutil.NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	options := &Options{
		Conf:            conf,
		Logger:          logger,
		Translator:      translator,
		IdentitySvc:     identity.NewService(conf, f.idRepo, mailSvc, validate),
		RosterSvc:       roster.NewService(f.rosterRepo, validate),
		AttendanceSvc:   attendance.NewService(conf, f.attendRepo, f.rosterRepo, validate),
		NotificationSvc: notification.NewService(f.notifRepo, f.rosterRepo, validate),
	}
	for _, opt := range opts {
		opt(options)
	}

	// set up server
	f.app = NewServer(options)
	return f
}

func (f fixture) token(t *testing.T, acc identity.Account) string {
	return getToken(t, f.conf, acc)
}

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
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
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

func getToken(t *testing.T, conf *core.Config, acc identity.Account) string {
	token, err := GenerateToken(conf, GetAccountClaims(conf, acc))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

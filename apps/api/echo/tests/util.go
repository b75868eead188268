package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/assignment"
	"github.com/trezcool/chuo/core/course"
	"github.com/trezcool/chuo/core/event"
	"github.com/trezcool/chuo/core/notification"
	"github.com/trezcool/chuo/core/prefs"
	"github.com/trezcool/chuo/core/session"
	"github.com/trezcool/chuo/core/user"
	emailsvc "github.com/trezcool/chuo/services/email"
	inmemdb "github.com/trezcool/chuo/storage/database/inmem"
	testutil "github.com/trezcool/chuo/tests"
)

var (
	usrRepo   user.Repository
	sessRepo  session.Repository
	crsRepo   course.Repository
	asgRepo   assignment.Repository
	evtRepo   event.Repository
	notifRepo notification.Repository
	prefsRepo prefs.Repository

	usrSvc  user.Service
	sessSvc session.Service

	errMissingToken  = httpErr{Error: "missing or malformed jwt"}
	errInvalidToken  = httpErr{Error: "invalid or expired jwt"}
	errPermDenied    = httpErr{Error: "permission denied"}
	errDeadSession   = httpErr{Error: "session expired or signed out"}
	errHTTPNotFound  = httpErr{Error: "not found"}
	errLoginRejected = httpErr{Error: "authentication failed"}
)

func setup(t *testing.T) Server {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = inmemdb.NewUserRepository(db)
	sessRepo = inmemdb.NewSessionRepository(db)
	crsRepo = inmemdb.NewCourseRepository(db)
	asgRepo = inmemdb.NewAssignmentRepository(db)
	evtRepo = inmemdb.NewEventRepository(db)
	notifRepo = inmemdb.NewNotificationRepository(db)
	prefsRepo = inmemdb.NewPrefsRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc = user.NewServiceMock(core.Conf, usrRepo, mailSvc)
	sessSvc = session.NewService(core.Conf, sessRepo)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         testutil.NewLogger(),
			Validate:       validate,
			Translator:     translator,
			SignalShutdown: func() {},

			UserSvc:         usrSvc,
			SessionSvc:      sessSvc,
			PrefsSvc:        prefs.NewService(prefsRepo),
			CourseSvc:       course.NewService(crsRepo),
			AssignmentSvc:   assignment.NewService(asgRepo),
			EventSvc:        event.NewService(evtRepo),
			NotificationSvc: notification.NewService(notifRepo, usrRepo, prefsRepo, mailSvc, testutil.NewLogger()),
		},
	)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
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
	extra    interface{}
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

// getToken opens a session for usr and returns a JWT bound to it.
func getToken(t *testing.T, usr user.User) string {
	sess, err := sessSvc.Create(context.Background(), usr.ID, session.Device{UserAgent: "test", IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	token, err := GenerateToken(GetUserClaims(usr, sess.Token))
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

// nolint
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
	if tt.wantCode == 0 {
		tt.wantCode = http.StatusOK
	}
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

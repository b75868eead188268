package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/assignment"
	"github.com/trezcool/chuo/core/course"
	"github.com/trezcool/chuo/core/event"
	"github.com/trezcool/chuo/core/notification"
	"github.com/trezcool/chuo/core/prefs"
	"github.com/trezcool/chuo/core/session"
	"github.com/trezcool/chuo/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		SignalShutdown func()

		UserSvc         user.Service
		SessionSvc      session.Service
		PrefsSvc        prefs.Service
		CourseSvc       course.Service
		AssignmentSvc   assignment.Service
		EventSvc        event.Service
		NotificationSvc notification.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	sess := sessionMiddleware(s.opts.SessionSvc)

	registerAuthAPI(v1, jwt, sess, s.opts)
	registerUserAPI(v1, jwt, sess, s.opts)
	registerCourseAPI(v1, jwt, sess, s.opts)
	registerAssignmentAPI(v1, jwt, sess, s.opts)
	registerEventAPI(v1, jwt, sess, s.opts)
	registerNotificationAPI(v1, jwt, sess, s.opts)

	// TODO: swagger !!
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Chuo API!")
}

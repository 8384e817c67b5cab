package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/attendance"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/notification"
	"github.com/trezcool/appel/core/roster"
	"github.com/trezcool/appel/services/metrics"
)

type (
	Options struct {
		Conf       *core.Config
		Logger     core.Logger
		Translator ut.Translator
		DB         core.DBPinger
		// SignalShutdown is called when a handler fails with a core shutdown error.
		SignalShutdown func()

		IdentitySvc     identity.Service
		RosterSvc       roster.Service
		AttendanceSvc   attendance.Service
		NotificationSvc notification.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		auth *authenticator
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.Translator == nil {
		panic("echoapi: Options.Translator is required")
	}
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
		auth: newAuthenticator(opts.Conf),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/healthz", s.healthz)
	s.app.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	v1 := s.app.Group("/v1")
	ag := v1.Group("", middleware.JWTWithConfig(s.auth.jwtConfig), principalMiddleware())

	registerAuthAPI(v1, ag, s.auth, s.opts.IdentitySvc)
	registerIdentityAPI(ag, s.opts.IdentitySvc)
	registerRosterAPI(ag, s.opts.RosterSvc, s.opts.AttendanceSvc)
	registerAttendanceAPI(ag, s.opts.AttendanceSvc)
	registerNotificationAPI(ag, s.opts.NotificationSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}

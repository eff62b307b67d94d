package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/dashboard"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	"github.com/erasmushub/erasmushub/core/user"
	"github.com/erasmushub/erasmushub/services/ratelimit"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Limiter    ratelimit.Limiter // optional
		// MetricsHandler is mounted on /metrics when set.
		MetricsHandler http.Handler

		UserSvc         user.Service
		ApplicationSvc  application.Service
		DocumentSvc     document.Service
		AnnouncementSvc announcement.Service
		MessageSvc      message.Service
		DashboardSvc    dashboard.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if s.deps.MetricsHandler != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.deps.MetricsHandler))
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerUserAPI(v1, jwt, conf, s.deps.UserSvc, s.deps.Validate, s.deps.Limiter)
	registerApplicationAPI(v1, jwt, s.deps.ApplicationSvc)
	registerDocumentAPI(v1, jwt, s.deps.ApplicationSvc, s.deps.DocumentSvc, s.deps.Validate)
	registerAnnouncementAPI(v1, jwt, s.deps.AnnouncementSvc, s.deps.Validate)
	registerMessageAPI(v1, jwt, s.deps.MessageSvc)
	registerDashboardAPI(v1, jwt, s.deps.DashboardSvc)
}

func (s *server) Start() {
	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Addr)
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown asks the process to stop as if it received SIGTERM.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/fee"
)

type (
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		FeeSvc     *fee.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		addr     string
		deps     *Deps
		app      *echo.Echo
		jwtConf  middleware.JWTConfig
		shutdown chan os.Signal
		errors   chan error
	}
)

var _ http.Handler = (*Server)(nil)

// NewServer builds the API server. shutdown receives a signal whenever the app needs to stop;
// a new channel is made when it is nil.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps, "deps"),
	).CheckAndPanic()
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "deps.Conf"),
		vala.IsNotNil(deps.Logger, "deps.Logger"),
		vala.IsNotNil(deps.FeeSvc, "deps.FeeSvc"),
		vala.IsNotNil(deps.Validate, "deps.Validate"),
		vala.IsNotNil(deps.Translator, "deps.Translator"),
	).CheckAndPanic()

	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	s := &Server{
		addr:     addr,
		deps:     deps,
		app:      echo.New(),
		jwtConf:  newJWTConfig(deps.Conf.SecretKey),
		shutdown: shutdown,
		errors:   make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	// amounts are sent as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode
	s.app.HideBanner = true

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwtConf)

	registerStudentAPI(v1, jwt, s.deps)
	registerConfigAPI(v1, jwt, s.deps)
	registerReportAPI(v1, jwt, s.deps)
}

// Start blocks until the server stops. Listener failures are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the app to stop gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

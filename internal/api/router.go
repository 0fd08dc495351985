package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/clubconnect/clubconnect/docs"
	"github.com/clubconnect/clubconnect/internal/api/handler"
	"github.com/clubconnect/clubconnect/internal/api/middleware"
	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/ports"
	"github.com/clubconnect/clubconnect/internal/core/service"
)

// Dependencies are the collaborators the HTTP layer is wired to.
type Dependencies struct {
	Provider         ports.AuthProvider
	Verifier         handler.SessionVerifier
	Devices          *service.DeviceRegistry
	Revoker          handler.Revoker
	Ready            map[string]handler.Pinger
	OAuthRedirectURL string
	AllowedOrigins   []string
	CookieSecure     bool
	Log              zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("clubconnect"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Provider, deps.Verifier, deps.Devices, deps.Revoker, deps.OAuthRedirectURL, deps.Log)
	sessionHandler := handler.NewSessionHandler()
	streamHandler := handler.NewStreamHandler(deps.AllowedOrigins, deps.Log)
	dashboardHandler := handler.NewDashboardHandler()
	device := middleware.Device(deps.Devices, deps.CookieSecure)

	// --- Auth routes ---
	auth := e.Group("/auth", device)
	auth.POST("/login", authHandler.Login)
	auth.POST("/signup", authHandler.SignUp)
	auth.GET("/oauth/:provider", authHandler.OAuth)
	auth.POST("/session", authHandler.Session)
	auth.POST("/logout", authHandler.Logout)

	// --- Session routes ---
	v1 := e.Group("/v1", device)
	v1.GET("/session", sessionHandler.Get)
	v1.PUT("/session/path", sessionHandler.SetPath)
	v1.POST("/session/role", sessionHandler.ChooseRole)
	v1.GET("/session/stream", streamHandler.Stream)
	v1.GET("/dashboard", dashboardHandler.Get,
		middleware.RequireUser(),
		middleware.RBAC(domain.RoleFan, domain.RoleCreator),
	)

	// --- Health probes, metrics and docs (no device required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Ready)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			} else {
				ev = log.Info()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

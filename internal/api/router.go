package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/villagegrid/outage-alerts/docs"
	"github.com/villagegrid/outage-alerts/internal/api/handler"
	"github.com/villagegrid/outage-alerts/internal/api/middleware"
	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Identity ports.IdentityService
	Villages ports.VillageService
	Outages  ports.OutageService
	// Ready lists the dependencies checked by /health/ready.
	Ready []handler.Dependency
	Log   zerolog.Logger
	// Registry receives HTTP metrics; nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
// Every path is served with and without a trailing slash.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Pre(echomiddleware.RemoveTrailingSlash())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Identity)
	userHandler := handler.NewUserHandler(d.Identity, d.Villages)
	villageHandler := handler.NewVillageHandler(d.Villages)
	outageHandler := handler.NewOutageHandler(d.Outages)
	auth := middleware.Auth(d.Identity)
	employeeOnly := middleware.RBAC(domain.RoleEmployee)

	// --- Public routes ---
	e.POST("/users/login", authHandler.Login)
	e.POST("/users/register", authHandler.Register)

	// --- Session routes ---
	e.POST("/auth/logout", authHandler.Logout, auth)
	e.POST("/auth/logoutall", authHandler.LogoutAll, auth)

	users := e.Group("/users", auth)
	users.GET("/me", userHandler.Me)
	users.POST("/:id/toggle_sms", userHandler.ToggleSMS)
	users.POST("/:id/change_password", userHandler.ChangePassword)

	villages := e.Group("/villages", auth)
	villages.GET("", villageHandler.List)
	villages.GET("/:id", villageHandler.Get)

	outages := e.Group("/outages", auth)
	outages.GET("", outageHandler.List, employeeOnly)
	outages.POST("", outageHandler.Create, employeeOnly)
	outages.GET("/active", outageHandler.Active)
	outages.GET("/history", outageHandler.History)
	outages.GET("/:id", outageHandler.Get)
	outages.POST("/:id/resolve", outageHandler.Resolve, employeeOnly)
	outages.PUT("/:id", outageHandler.Update, employeeOnly)
	outages.PATCH("/:id", outageHandler.Update, employeeOnly)
	outages.DELETE("/:id", outageHandler.Delete, employeeOnly)

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Ready...)

	e.GET("/health", healthHandler.Liveness)          // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger feeds echo's request log into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Status >= 400:
				ev = log.Warn()
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

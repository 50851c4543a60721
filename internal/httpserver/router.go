package httpserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/metrics"
	"github.com/opsmind/auth/internal/middleware"
	"github.com/opsmind/auth/internal/transport"
	loggingmw "github.com/opsmind/auth/pkg/middleware/logging"
)

type Deps struct {
	AuthHandler   *AuthHTTP
	AdminHandler  *AdminHTTP
	HealthHandler *HealthHTTP
	Guard         *middleware.Guard

	// Limits builds the counter store for each rate limit; nil disables limiting.
	Limits   middleware.StoreFor
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// Options configure the echo instance built by New.
type Options struct {
	Log         *slog.Logger
	Development bool
	OTPLength   int
	CORSOrigins []string
}

// New returns an echo server with the common middleware chain and every route.
func New(opts Options, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Validator = transport.NewValidator(opts.OTPLength)
	e.HTTPErrorHandler = ErrorHandler(opts.Development)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(
		echomw.RequestID(),
		observe(d.Metrics),
		loggingmw.RequestLogger(opts.Log),
		echomw.Recover(),
		echomw.Secure(),
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		}),
		echomw.BodyLimit("10K"),
	)

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	limit := func(l middleware.Limit) []echo.MiddlewareFunc {
		if d.Limits == nil {
			return nil
		}
		return []echo.MiddlewareFunc{middleware.RateLimit(l, d.Limits(l))}
	}

	e.GET("/", d.HealthHandler.Info)
	e.GET("/health", d.HealthHandler.Health)
	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.Ready)
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// one global bucket per client across both groups
	global := limit(middleware.GlobalLimit)

	auth := e.Group("/auth", global...)
	auth.POST("/signup", d.AuthHandler.Signup, limit(middleware.SignupLimit)...)
	auth.POST("/login", d.AuthHandler.Login, limit(middleware.LoginLimit)...)
	auth.POST("/verify-otp", d.AuthHandler.VerifyOTP, limit(middleware.VerifyLimit)...)
	auth.POST("/resend-otp", d.AuthHandler.ResendOTP, limit(middleware.ResendLimit)...)

	admin := e.Group("/admin", append(global, d.Guard.RequireRoles(domain.RoleAdmin))...)
	admin.POST("/users", d.AdminHandler.CreateUser)
	admin.GET("/users", d.AdminHandler.ListUsers)
	admin.DELETE("/users/:id", d.AdminHandler.DeleteUser)
	admin.PATCH("/users/:id/status", d.AdminHandler.UpdateUserStatus)
	admin.POST("/technicians", d.AdminHandler.CreateTechnician)
	admin.GET("/technicians", d.AdminHandler.ListTechnicians)
	admin.POST("/buildings", d.AdminHandler.CreateBuilding)
	admin.GET("/buildings", d.AdminHandler.ListBuildings)
}

// observe records request latency by route template. It sits outside the
// request logger, so the error handler has already written the status.
func observe(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			m.ObserveRequest(c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status), time.Since(start))
			return err
		}
	}
}

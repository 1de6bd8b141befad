package api

import (
	"net"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/quillhub/blog/docs"
	"github.com/quillhub/blog/internal/api/handler"
	"github.com/quillhub/blog/internal/api/metrics"
	"github.com/quillhub/blog/internal/api/middleware"
	"github.com/quillhub/blog/internal/core/ports"
)

// AvatarPath is the URL prefix under which locally stored avatars are served.
const AvatarPath = "/static/profile_pics"

// RateLimitConfig bounds POSTs to the login, registration and reset endpoints
// per client IP. X-Forwarded-For is honoured only from TrustedProxies.
type RateLimitConfig struct {
	RPS            float64
	Burst          int
	TrustedProxies []*net.IPNet
}

// Deps carries everything the HTTP layer needs. Services are constructed by
// the caller.
type Deps struct {
	Accounts ports.AccountService
	Auth     ports.AuthService
	Posts    ports.PostService
	Resets   ports.ResetService

	Avatars handler.AvatarURLs
	// AvatarDir, when set, is served under AvatarPath.
	AvatarDir      string
	MaxAvatarBytes int64

	Checks    map[string]handler.CheckFunc
	Cookie    handler.CookieConfig
	RateLimit RateLimitConfig

	// Registry receives HTTP and domain metrics. A fresh registry with Go and
	// process collectors is used when nil.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	e.Validator = handler.NewValidator()
	e.IPExtractor = ipExtractor(d.RateLimit.TrustedProxies)

	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := metrics.New(reg)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "blog_http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
		},
	}))
	e.Use(middleware.Session(d.Auth, d.Log))

	// --- Dependencies ---
	postHandler := handler.NewPostHandler(d.Posts, d.Avatars, m)
	authHandler := handler.NewAuthHandler(d.Accounts, d.Auth, d.Avatars, d.Cookie, m, d.Log)
	accountHandler := handler.NewAccountHandler(d.Accounts, d.Avatars, d.MaxAvatarBytes, m)
	resetHandler := handler.NewResetHandler(d.Resets, m)
	healthHandler := handler.NewHealthHandler(d.Checks)

	requireAuth := middleware.RequireAuth()
	anonymousOnly := middleware.RedirectIfAuthenticated("/home")
	limited := middleware.RateLimit(middleware.NewRateLimitStore(d.RateLimit.RPS, d.RateLimit.Burst), m.RateLimited)

	// --- Posts ---
	e.GET("/", postHandler.Home)
	e.GET("/home", postHandler.Home)
	e.GET("/about", postHandler.About)
	e.GET("/user/:username", postHandler.UserPosts)
	e.GET("/post/new", postHandler.NewForm, requireAuth)
	e.POST("/post/new", postHandler.Create, requireAuth)
	e.GET("/post/:id", postHandler.Show)
	e.GET("/post/:id/update", postHandler.EditForm, requireAuth)
	e.POST("/post/:id/update", postHandler.Update, requireAuth)
	e.POST("/post/:id/delete", postHandler.Delete, requireAuth)

	// --- Auth ---
	e.GET("/register", authHandler.RegisterForm, anonymousOnly)
	e.POST("/register", authHandler.Register, anonymousOnly, limited)
	e.GET("/login", authHandler.LoginForm, anonymousOnly)
	e.POST("/login", authHandler.Login, anonymousOnly, limited)
	e.GET("/logout", authHandler.Logout)

	// --- Account ---
	e.GET("/account", accountHandler.Show, requireAuth)
	e.POST("/account", accountHandler.Update, requireAuth)

	// --- Password reset ---
	e.GET("/reset_password", resetHandler.RequestForm, anonymousOnly)
	e.POST("/reset_password", resetHandler.Request, anonymousOnly, limited)
	e.GET("/reset_password/:token", resetHandler.TokenForm, anonymousOnly)
	e.POST("/reset_password/:token", resetHandler.Reset, anonymousOnly, limited)

	// --- Static avatars ---
	if d.AvatarDir != "" {
		e.Static(AvatarPath, d.AvatarDir)
	}

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// ipExtractor reads the peer address, or X-Forwarded-For when the request
// arrives through one of trusted.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := make([]echo.TrustOption, 0, len(trusted)+3)
	opts = append(opts, echo.TrustLoopback(false), echo.TrustLinkLocal(false), echo.TrustPrivateNet(false))
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			switch {
			case v.Status >= 500:
				event = log.Error().Err(v.Error)
			case v.Error != nil:
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

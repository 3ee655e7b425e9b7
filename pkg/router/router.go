package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/ydkdan6/poly-com-ai/internal/api"
	"github.com/ydkdan6/poly-com-ai/internal/ws"
	"github.com/ydkdan6/poly-com-ai/pkg/config"
	"github.com/ydkdan6/poly-com-ai/pkg/di"
	"github.com/ydkdan6/poly-com-ai/pkg/errors"
	"github.com/ydkdan6/poly-com-ai/pkg/jwt"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/middleware"
	"github.com/ydkdan6/poly-com-ai/pkg/relay"
)

// Router is the main router for the application
type Router struct {
	Engine      *gin.Engine
	Container   *di.Container
	Logger      *logger.Logger
	Config      *config.Config
	WS          *ws.Server
	RateLimiter *middleware.RateLimiter
}

// New creates the engine with the global middleware chain
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// logger first so every request, including rejected ones, is logged with its id
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit:          rateLimit(cfg.Security.RateLimit),
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: middleware.DefaultRateLimiterOptions().ExpiryDuration,
	})

	return &Router{
		Engine:      engine,
		Container:   container,
		Logger:      container.Logger,
		Config:      cfg,
		WS:          ws.NewServer(container.RelayService, cfg.Security.AllowedOrigins, container.Logger),
		RateLimiter: rateLimiter,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	c := r.Container
	jwtAuth := middleware.JWTAuth(c.JWTService, c.Redis, r.Logger)

	authHandler := api.NewAuthHandler(c.UserService, r.Logger)
	relayHandler := api.NewRelayHandler(c.RelayService, r.Config.Security.MaxBodySize, r.Logger)
	sessionHandler := api.NewSessionHandler(c.SessionService)
	faqHandler := api.NewFAQHandler(c.FAQService)
	adminHandler := api.NewAdminHandler(c.RelayService)

	r.Engine.GET("/health", c.Health.Handler())
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// the relay is public; a bearer token, when sent, only tags the logs
	optionalAuth := middleware.OptionalAuth(c.JWTService, c.Redis, r.Logger)
	r.Engine.POST(relay.Path, optionalAuth, middleware.RequestContext(), relayHandler.Handle)
	r.Engine.OPTIONS(relay.Path, func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
	r.Engine.GET("/ws/chat", optionalAuth, r.WS.ServeWs)

	// the relay only ever answers 200 or 500, so limits apply to the API alone
	v1 := r.Engine.Group("/api/v1", r.RateLimiter.Middleware())
	r.addOpenAPIValidation(v1)

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/verify", authHandler.Verify)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
		authRoutes.POST("/logout", jwtAuth, authHandler.Logout)
	}

	v1.GET("/faqs", faqHandler.List)

	sessionRoutes := v1.Group("/sessions", jwtAuth, middleware.RequestContext())
	{
		sessionRoutes.POST("", sessionHandler.Create)
		sessionRoutes.POST("/:id/messages", sessionHandler.AppendMessage)
		sessionRoutes.GET("/:id/messages", sessionHandler.ListMessages)
	}

	adminRoutes := v1.Group("/admin", jwtAuth, middleware.RequireRole(jwt.RoleAdmin))
	{
		adminRoutes.GET("/relay", adminHandler.RelayStatus)
	}
}

func rateLimit(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return middleware.DefaultRateLimiterOptions().Limit
	}
	return rate.Limit(perSecond)
}

// corsMiddleware answers preflights with 204 and decorates every response,
// errors included, with the CORS headers browsers need for the relay
func corsMiddleware(allowed []string) gin.HandlerFunc {
	anyOrigin := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			anyOrigin = true
		}
		set[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case anyOrigin:
			c.Header("Access-Control-Allow-Origin", "*")
		case set[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", strings.Join([]string{
			"authorization", "x-client-info", "apikey", "content-type", "x-request-id",
		}, ", "))
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

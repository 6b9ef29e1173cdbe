package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/notifyah/notifyah/internal/handler"
	authHandler "github.com/notifyah/notifyah/internal/handler/auth"
	debugHandler "github.com/notifyah/notifyah/internal/handler/debug"
	notificationHandler "github.com/notifyah/notifyah/internal/handler/notification"
	"github.com/notifyah/notifyah/internal/middleware"
	"github.com/notifyah/notifyah/internal/ws"
)

type Config struct {
	RateLimit   rate.Limit
	RateBurst   int
	CORSConfig  middleware.CORSConfig
	EnableDebug bool
}

type Router struct {
	engine *gin.Engine
	config Config
	authMw *middleware.AuthMiddleware
	authH  *authHandler.Handler
	notifH *notificationHandler.Handler
	debugH *debugHandler.Handler
	wsH    *ws.Handler
	h      *handler.Handler
}

func New(
	config Config,
	authMw *middleware.AuthMiddleware,
	authH *authHandler.Handler,
	notifH *notificationHandler.Handler,
	debugH *debugHandler.Handler,
	wsH *ws.Handler,
	h *handler.Handler,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	return &Router{
		engine: gin.New(),
		config: config,
		authMw: authMw,
		authH:  authH,
		notifH: notifH,
		debugH: debugH,
		wsH:    wsH,
		h:      h,
	}
}

func (r *Router) Setup() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.CORS(r.config.CORSConfig))

	r.engine.GET("/health/live", r.h.LivenessCheck)
	r.engine.GET("/health/ready", r.h.ReadinessCheck)
	r.engine.GET("/metrics", r.h.MetricsHandler)

	// The websocket upgrade does its own authentication in the
	// handshake gate, so it sits outside the auth middleware.
	r.wsH.RegisterRoutes(r.engine.Group(""))

	api := r.engine.Group("/api")

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  r.config.RateLimit,
		Burst: r.config.RateBurst,
	})
	authGroup := api.Group("")
	authGroup.Use(rateLimiter.RateLimit())
	r.authH.RegisterRoutes(authGroup)

	r.notifH.RegisterRoutes(api, r.authMw)

	if r.config.EnableDebug {
		r.debugH.RegisterRoutes(r.engine.Group(""))
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

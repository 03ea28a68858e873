// Package api assembles the HTTP surface: REST routes, the SSE snapshot
// stream and the WebSocket endpoint.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nrebei2/lunarhaze/api/rest"
	"github.com/nrebei2/lunarhaze/api/sse"
	apows "github.com/nrebei2/lunarhaze/api/ws"
	"github.com/nrebei2/lunarhaze/audit"
	"github.com/nrebei2/lunarhaze/cache"
	"github.com/nrebei2/lunarhaze/config"
	"github.com/nrebei2/lunarhaze/game/world"
	mw "github.com/nrebei2/lunarhaze/middleware"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/nrebei2/lunarhaze/resource"
	"github.com/nrebei2/lunarhaze/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Deps are the services the routes are served from.
type Deps struct {
	Config  *config.Config
	Manager *world.Manager
	Levels  *resource.Store
	Journal *audit.Service
	PubSub  cache.PubSub
	Sched   *scheduler.Scheduler
	Hooks   *hook.HookCenter
	Logger  *zap.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	sec := d.Config.Security
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(d.Logger), mw.Recovery(d.Logger))
	perIP := mw.NewRateLimiter(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst)
	perSession := mw.NewRateLimiter(rate.Limit(sec.InputRateRPS), sec.InputRateBurst)
	r.Use(mw.RateLimit(perIP, mw.ByClientIP))
	if d.Sched != nil {
		d.Sched.AddTicker("ratelimit-sweep", time.Minute, func() {
			now := time.Now()
			if n := perIP.Sweep(now) + perSession.Sweep(now); n > 0 {
				d.Logger.Debug("rate limit buckets swept", zap.Int("dropped", n))
			}
		})
	}

	r.GET("/health", rest.Health)

	levelH := rest.NewLevelHandler(d.Levels, d.Journal, d.Logger)
	sessionH := rest.NewSessionHandler(d.Manager, d.Journal, sec, d.Logger)
	adminH := rest.NewAdminHandler(d.Manager, d.Sched, d.Hooks, d.Logger)
	sseH := sse.NewHandler(d.Manager, d.PubSub, d.Logger)

	wsRouter := apows.NewRouter(d.Logger)
	apows.RegisterHandlers(wsRouter)
	wsH := apows.NewHandler(d.Manager, d.PubSub, sec, wsRouter, d.Logger)

	adminOnly := []gin.HandlerFunc{
		mw.IPWhitelist(d.Config.Server.AdminIPs, d.Logger),
		mw.AdminAuth(d.Config.Server.AdminKey),
	}

	api := r.Group("/api")
	{
		levelsG := api.Group("/levels")
		levelsG.GET("", levelH.List)
		levelsG.GET("/:name", levelH.Get)
		levelsG.GET("/:name/leaderboard", levelH.Leaderboard)
		levelsG.PUT("/:name", append(adminOnly, levelH.Put)...)
		levelsG.DELETE("/:name", append(adminOnly, levelH.Delete)...)

		api.POST("/sessions", sessionH.Create)
		sessG := api.Group("/sessions/:id")
		sessG.Use(mw.SessionAuth(sec))
		sessG.GET("/snapshot", sessionH.Snapshot)
		sessG.POST("/input", mw.RateLimit(perSession, mw.BySession), sessionH.Input)
		sessG.GET("/route", sessionH.Route)
		sessG.GET("/events", sessionH.Events)
		sessG.DELETE("", sessionH.Delete)

		adminG := api.Group("/admin")
		adminG.Use(adminOnly...)
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/sessions", adminH.ListSessions)
		adminG.DELETE("/sessions/:id", adminH.KickSession)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.GET("/hooks", adminH.ListHooks)
		adminG.POST("/announce", sseH.PostAnnounce)
	}

	r.GET("/sse", mw.SessionAuth(sec), sseH.ServeSSE)
	r.GET("/ws", mw.SessionAuth(sec), wsH.ServeWS)
	return r
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nrebei2/lunarhaze/api"
	"github.com/nrebei2/lunarhaze/audit"
	"github.com/nrebei2/lunarhaze/cache"
	"github.com/nrebei2/lunarhaze/config"
	dbadapter "github.com/nrebei2/lunarhaze/db"
	"github.com/nrebei2/lunarhaze/game/world"
	"github.com/nrebei2/lunarhaze/model"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/nrebei2/lunarhaze/resource"
	"github.com/nrebei2/lunarhaze/scheduler"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Security.JWTSecret == "" {
		logger.Fatal("security.jwt_secret is not set")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database, logger)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	defer pubsub.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Levels ----
	ctx := context.Background()
	levels := resource.NewStore(db, c, cfg.Cache.LevelTTL, logger)
	bundled, err := resource.NewLoader(cfg.Game.LevelsDir, logger).LoadAll()
	if err != nil {
		logger.Warn("level load warning", zap.Error(err))
	}
	added, err := levels.Seed(ctx, bundled)
	if err != nil {
		log.Fatalf("seed levels: %v", err)
	}
	logger.Info("levels ready", zap.Int("files", len(bundled)), zap.Int("seeded", added))

	// ---- Audit ----
	auditSvc := audit.New(db, c, logger)
	defer auditSvc.Stop(ctx)

	// ---- Scheduler / Sessions ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	hooks := hook.NewHookCenter()

	mgr := world.NewManager(levels, sched, pubsub, auditSvc, hooks, world.ManagerConfig{
		TickInterval: cfg.TickInterval(),
		IdleTimeout:  cfg.Game.SessionIdleTimeout,
		MaxSessions:  cfg.Game.MaxSessions,
		Settings:     cfg.Settings(),
	}, logger)
	mgr.StartReaper(cfg.Game.ReapInterval)
	defer mgr.StopAll()

	if keep := cfg.Database.EncounterRetention; keep > 0 {
		sched.AddTicker("encounter-prune", time.Hour, func() {
			n, err := auditSvc.Prune(ctx, keep)
			if err != nil {
				logger.Warn("encounter prune failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("encounters pruned", zap.Int64("rows", n), zap.Duration("retention", keep))
			}
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(api.Deps{
		Config:  cfg,
		Manager: mgr,
		Levels:  levels,
		Journal: auditSvc,
		PubSub:  pubsub,
		Sched:   sched,
		Hooks:   hooks,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("shutting down")
	// End sessions first so SSE and WS streams return.
	mgr.StopAll()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

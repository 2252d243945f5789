package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Gopher0727/GuildWar/config"
	"github.com/Gopher0727/GuildWar/internal/api"
	"github.com/Gopher0727/GuildWar/internal/handler"
	"github.com/Gopher0727/GuildWar/internal/model"
	"github.com/Gopher0727/GuildWar/internal/remote"
	"github.com/Gopher0727/GuildWar/internal/roster"
	"github.com/Gopher0727/GuildWar/internal/storage"
	"github.com/Gopher0727/GuildWar/internal/ws"
	"github.com/Gopher0727/GuildWar/middleware/jwt"
	logger "github.com/Gopher0727/GuildWar/middleware/log"
	"github.com/Gopher0727/GuildWar/utils/ratelimit"
)

func main() {
	path := os.Getenv("GUILDWAR_CONFIG")
	if path == "" {
		path = "./config.toml"
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := storage.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		if !cfg.RateLimit.FailOpen {
			appLogger.Fatal("redis unavailable", zap.Error(err))
		}
		appLogger.Warn("redis unavailable, rate limiting fails open", zap.Error(err))
	}
	defer redisClient.Close()

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, appLogger.Named("remote"))
	engine := roster.NewEngine(client,
		roster.WithTTL(cfg.Roster.CacheTTL),
		roster.WithLogger(appLogger.Named("roster")),
	)

	hub := ws.NewHub(appLogger.Named("ws"))
	go hub.Run(ctx)
	unsubscribe := engine.Subscribe(hub.Notify)
	defer unsubscribe()

	if cfg.Roster.WarmUp {
		warmUp(ctx, engine, appLogger)
	}

	tokens := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.JWT.RefreshHours)
	limiter := ratelimit.NewRedisLimiter(redisClient, appLogger.Named("ratelimit"), cfg.RateLimit.FailOpen)
	mw := api.NewMiddlewareManager(tokens, limiter, appLogger, &cfg.RateLimit)
	router := api.NewRouter(cfg.Server.Mode, mw,
		handler.NewRosterHandler(engine, appLogger),
		handler.NewAuthHandler(tokens),
		hub,
	)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// warmUp loads every region once so the first page view is served from
// cache. Failures are recorded on the snapshots and retried on demand.
func warmUp(ctx context.Context, engine *roster.Engine, appLogger *logger.Logger) {
	// One region failing must not cancel the other.
	var g errgroup.Group
	for _, region := range model.Regions {
		g.Go(func() error {
			return engine.FetchEvent(ctx, region, true)
		})
	}
	if err := g.Wait(); err != nil {
		appLogger.Warn("cache warm-up incomplete", zap.Error(err))
		return
	}
	appLogger.Info("cache warmed", zap.Int("regions", len(model.Regions)))
}

// newLogger honors the [logging] section, except in gin debug mode where a
// console development logger is easier to read.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.Server.Mode == "debug" {
		return logger.NewDevelopmentLogger()
	}
	return logger.NewLogger(&cfg.Logging)
}

package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/broadcast"
	"github.com/kaladesignco/site-engine/pkg/cache"
	"github.com/kaladesignco/site-engine/pkg/config"
	"github.com/kaladesignco/site-engine/pkg/handlers"
	"github.com/kaladesignco/site-engine/pkg/remote"
	"github.com/kaladesignco/site-engine/pkg/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("cache_path", cfg.Cache.Path),
		zap.Bool("remote_configured", cfg.Remote.Configured()),
		zap.Bool("sync_channel_configured", cfg.Sync.RedisAddr != ""))

	db, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		logger.Fatal("Failed to open fallback cache", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	var remoteClient *remote.Client
	if cfg.Remote.Configured() {
		remoteClient = remote.NewClient(&cfg.Remote, logger)
	} else {
		logger.Warn("Remote store not configured, running on fallback cache only")
	}

	st := store.New(store.Options{
		Remote:        remoteClient,
		Cache:         db,
		FallbackUsers: cfg.Auth.FallbackUsers,
		SessionSecret: cfg.Auth.SessionSecret,
		SessionTTL:    cfg.Auth.SessionTTL(),
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := st.Initialize(ctx)
	logger.Info("Store initialized", zap.String("mode", mode.String()))

	var channel broadcast.Channel
	if cfg.Sync.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Sync.RedisAddr,
			Password: cfg.Sync.RedisPassword,
			DB:       cfg.Sync.RedisDB,
		})
		defer func() { _ = redisClient.Close() }()
		channel = broadcast.NewRedisChannel(redisClient, cfg.Sync.SlotKey, logger)
	}

	broadcaster := broadcast.New(broadcast.Options{
		Store:        st,
		Channel:      channel,
		Bus:          broadcast.NewBus(),
		PollInterval: cfg.Sync.PollInterval(),
		Logger:       logger,
	})
	go func() {
		if err := broadcaster.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Broadcaster stopped", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, st, logger)
	healthHandler.RegisterRoutes(mux)

	authHandler := handlers.NewAuthHandler(st, cfg.Auth.SessionSecret, logger)
	authHandler.RegisterRoutes(mux)

	contentHandler := handlers.NewContentHandler(st, broadcaster, authHandler, logger)
	contentHandler.RegisterRoutes(mux)

	publicHandler := handlers.NewPublicHandler(st, logger)
	publicHandler.RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		_ = server.Shutdown(context.Background())
	}()

	logger.Info("Starting site-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

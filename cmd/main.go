package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IdiegeA21/chat-app/internal/app/registry"
	"github.com/IdiegeA21/chat-app/internal/app/server"
	"github.com/IdiegeA21/chat-app/internal/app/server/handlers"
	"github.com/IdiegeA21/chat-app/internal/app/worker"
	"github.com/IdiegeA21/chat-app/internal/config"
	"github.com/IdiegeA21/chat-app/internal/core/services"
	"github.com/IdiegeA21/chat-app/internal/platform/logger"
	"github.com/IdiegeA21/chat-app/internal/platform/telemetry"
	"github.com/IdiegeA21/chat-app/internal/plugins/postgres"
	redisPlugin "github.com/IdiegeA21/chat-app/internal/plugins/redis"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var errMissingSecret = errors.New("JWT_SECRET is not set")

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")
	if cfg.Auth.JWTSecret == "" {
		log.Error("config - load - JWT_SECRET is required")
		return errMissingSecret
	}

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
		return err
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "err", err)
		return err
	}
	defer pdb.Close()
	log.Info("postgres connected")
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, pdb, log); err != nil {
			log.Error("postgres migration failed", "err", err)
			return err
		}
	}
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL, "err", err)
		return err
	}
	defer rdb.Close()
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepository(pdb)
	roomRepo := postgres.NewRoomRepository(pdb)
	memberRepo := postgres.NewMemberRepository(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	txManager := postgres.NewTxManager(pdb)
	presStore := redisPlugin.NewRedisPresenceStore(rdb)

	// Core Services
	hub := registry.NewRegistry(log)
	tokenSvc := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.JWTExpires)
	userSvc := services.NewUserService(log, userRepo, tokenSvc, cfg.Auth.BcryptCost)
	engine := services.NewEngine(log, services.EngineDeps{
		Auth:      userSvc,
		Members:   memberRepo,
		Rooms:     roomRepo,
		Users:     userRepo,
		Messages:  msgRepo,
		Transport: hub,
		Limiter: services.NewRateLimiter(
			services.RateLimitPolicy{Limit: cfg.RateLimit.MessageLimit, Window: cfg.RateLimit.MessageWindow},
			services.RateLimitPolicy{Limit: cfg.RateLimit.TypingLimit, Window: cfg.RateLimit.TypingWindow},
		),
		Mirror:    presStore,
		MirrorTTL: cfg.Presence.TTL,
	})
	roomSvc := services.NewRoomService(log, roomRepo, memberRepo, txManager, engine)
	msgSvc := services.NewMessageService(log, msgRepo, memberRepo, hub)

	wrkr := worker.NewPresenceWorker(log, engine, presStore, cfg.Presence.TTL, cfg.Presence.Interval)

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Add, *cfg.HTTP, server.Deps{
		Auth:     userSvc,
		Users:    userSvc,
		Rooms:    roomSvc,
		Messages: msgSvc,
		Hub:      hub,
		Engine:   engine,
		Health: handlers.HealthSources{
			Engine: engine,
			Groups: hub,
			Mirror: presStore,
		},
		Checks: map[string]handlers.Check{
			"postgres": pdb.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return wrkr.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("application stopped with error", "err", err)
		return err
	}
	log.Info("application stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ydkdan6/poly-com-ai/internal/repository"
	"github.com/ydkdan6/poly-com-ai/pkg/config"
	"github.com/ydkdan6/poly-com-ai/pkg/di"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/router"
	"github.com/ydkdan6/poly-com-ai/shared/observability"
	"github.com/ydkdan6/poly-com-ai/shared/redis"
)

const serviceName = "cs-assistant"

func main() {
	cfg := config.Load()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(serviceName, os.Stdout)
	if err != nil {
		log.LogError(err, "Failed to set up tracing")
		os.Exit(1)
	}
	shutdownMetrics, err := observability.SetupPrometheusMetrics(serviceName)
	if err != nil {
		log.LogError(err, "Failed to set up metrics")
		os.Exit(1)
	}

	db, err := config.NewDB(cfg)
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := repository.AutoMigrate(db); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	rdb := redis.NewRedisClient(redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx); err != nil {
		// sign-out revocation degrades, everything else keeps working
		log.Warn("Redis unreachable at startup", "addr", cfg.Redis.Addr, "error", err.Error())
	}

	container, err := di.New(di.Options{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Logger: log,
	})
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	if n, err := container.FAQService.Seed(ctx, cfg.FAQ.SeedPath); err != nil {
		log.LogError(err, "Failed to seed FAQ table", "path", cfg.FAQ.SeedPath)
	} else if n > 0 {
		log.Info("Seeded FAQ table", "count", n)
	}

	r := router.New(container)
	r.SetupRoutes()

	container.Health.Start(ctx)
	go r.RateLimiter.Cleanup(ctx)

	var grpcServer *grpc.Server
	if cfg.Server.GRPCPort != "" {
		grpcServer = startGRPCHealth(cfg.Server.GRPCPort, container, log)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError(err, "Server failed to start")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r.WS.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	container.Close()
	if err := rdb.Close(); err != nil {
		log.LogError(err, "Failed to close redis client")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.LogError(err, "Failed to shut down metrics provider")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.LogError(err, "Failed to shut down tracer provider")
	}

	log.Info("Server exited gracefully")
}

// startGRPCHealth exposes the health checker over the standard gRPC health service
func startGRPCHealth(port string, container *di.Container, log *logger.Logger) *grpc.Server {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		log.LogError(err, "Failed to listen for gRPC health", "port", port)
		return nil
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	container.Health.BindGRPC(healthServer)

	go func() {
		log.Info("gRPC health server starting", "port", port)
		if err := grpcServer.Serve(lis); err != nil {
			log.LogError(err, "gRPC health server stopped")
		}
	}()

	return grpcServer
}

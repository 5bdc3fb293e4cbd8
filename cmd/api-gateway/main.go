package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/class-scheduler/api/swagger"
	"github.com/noah-isme/class-scheduler/internal/service"
	"github.com/noah-isme/class-scheduler/migrations"
	"github.com/noah-isme/class-scheduler/pkg/cache"
	"github.com/noah-isme/class-scheduler/pkg/config"
	"github.com/noah-isme/class-scheduler/pkg/database"
	"github.com/noah-isme/class-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/class-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/class-scheduler/pkg/middleware/requestid"
)

// @title Class Scheduler API
// @version 1.0.0
// @description Generates, reviews and applies weekly class timetables.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, db, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, status cache disabled", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	app, err := newApp(cfg, db, redisClient, metricsSvc, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.SweepCron != "" {
		if err := app.sweeper.Start(cfg.Scheduler.SweepCron); err != nil {
			logr.Fatal("failed to start proposal sweeper", zap.Error(err))
		}
		defer app.sweeper.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	app.register(r, cfg)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newValidator matches the validator settings used by every service.
func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

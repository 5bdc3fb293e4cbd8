package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler/internal/handler"
	"github.com/noah-isme/class-scheduler/internal/middleware"
	"github.com/noah-isme/class-scheduler/internal/models"
	"github.com/noah-isme/class-scheduler/internal/repository"
	"github.com/noah-isme/class-scheduler/internal/service"
	"github.com/noah-isme/class-scheduler/pkg/config"
)

type app struct {
	generator *handler.ScheduleGeneratorHandler
	proposals *handler.ScheduleProposalHandler
	metrics   *handler.MetricsHandler
	sweeper   *service.ProposalSweeper
	tokens    *service.TokenValidator
	metricSvc *service.MetricsService
}

func newApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metricsSvc *service.MetricsService, logr *zap.Logger) (*app, error) {
	generatorCfg, err := service.GeneratorConfigFromSettings(cfg.Scheduler)
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(cfg.Scheduler.ExportTimezone)
	if err != nil {
		return nil, fmt.Errorf("export timezone: %w", err)
	}

	validate := newValidator()

	batchRepo := repository.NewBatchRepository(db)
	courseRepo := repository.NewBatchCourseRepository(db)
	roomRepo := repository.NewClassroomRepository(db)
	scheduleRepo := repository.NewClassScheduleRepository(db)
	prefRepo := repository.NewTeacherPreferenceRepository(db)
	proposalRepo := repository.NewScheduleProposalRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.SummaryCacheTTL, logr, redisClient != nil)

	generatorSvc := service.NewScheduleGeneratorService(batchRepo, courseRepo, roomRepo, scheduleRepo, prefRepo, proposalRepo, metricsSvc, validate, logr, generatorCfg)
	proposalSvc := service.NewScheduleProposalService(proposalRepo, scheduleRepo, db, cacheSvc, metricsSvc, validate, logr)
	statusSvc := service.NewScheduleStatusService(scheduleRepo, cacheSvc, cfg.Scheduler.SummaryCacheTTL, logr)
	exportSvc := service.NewExportService(proposalSvc, service.ExportConfig{
		Location:         location,
		CalendarWeeks:    cfg.Scheduler.ExportCalendarWeeks,
		CSVByteOrderMark: cfg.Scheduler.ExportCSVBOM,
	}, logr, nil, nil, nil)

	deps := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		deps["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	return &app{
		generator: handler.NewScheduleGeneratorHandler(generatorSvc),
		proposals: handler.NewScheduleProposalHandler(proposalSvc, exportSvc, statusSvc),
		metrics:   handler.NewMetricsHandler(metricsSvc, deps),
		sweeper:   service.NewProposalSweeper(proposalRepo, cfg.Scheduler.ProposalTTL, metricsSvc, logr),
		tokens:    service.NewTokenValidator(cfg.JWT.Secret, cfg.JWT.Issuer),
		metricSvc: metricsSvc,
	}, nil
}

func (a *app) register(r *gin.Engine, cfg *config.Config) {
	r.Use(middleware.Metrics(a.metricSvc))

	r.GET("/health", a.metrics.Health)
	r.GET("/ready", a.metrics.Ready)
	r.GET("/metrics", a.metrics.Prometheus)

	if !cfg.Scheduler.Enabled {
		return
	}

	api := r.Group(cfg.APIPrefix)
	sched := api.Group("/scheduler",
		middleware.JWT(a.tokens),
		middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
	)
	sched.POST("/validate", a.generator.Validate)
	sched.POST("/generate", a.generator.Generate)

	proposals := sched.Group("/proposals")
	proposals.GET("", a.proposals.List)
	proposals.GET("/:id", a.proposals.Get)
	proposals.POST("/:id/apply", a.proposals.Apply)
	proposals.DELETE("/:id", a.proposals.Delete)
	proposals.GET("/:id/export", a.proposals.Export)

	sched.POST("/schedules/close", a.proposals.Close)
	sched.GET("/schedules/status", a.proposals.Status)
}

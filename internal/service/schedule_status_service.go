package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler/internal/models"
	"github.com/noah-isme/class-scheduler/pkg/cache"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
)

const statusCacheNamespace = "status"

type scheduleStatusCounter interface {
	CountByStatus(ctx context.Context, sessionID string) ([]models.StatusCount, error)
}

// ScheduleStatusService reports how many live rows sit in each status.
type ScheduleStatusService struct {
	repo   scheduleStatusCounter
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewScheduleStatusService constructs the status reporter.
func NewScheduleStatusService(repo scheduleStatusCounter, cacheSvc *CacheService, ttl time.Duration, logger *zap.Logger) *ScheduleStatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleStatusService{repo: repo, cache: cacheSvc, ttl: ttl, logger: logger}
}

// Summary counts rows per status, optionally for one session.
func (s *ScheduleStatusService) Summary(ctx context.Context, sessionID string) (*models.ScheduleStatusSummary, error) {
	key := cache.Key(statusCacheNamespace, sessionID)
	var cached models.ScheduleStatusSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	counts, err := s.repo.CountByStatus(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count schedules")
	}
	summary := &models.ScheduleStatusSummary{}
	for _, c := range counts {
		switch c.Status {
		case models.ClassScheduleActive:
			summary.Active += c.Total
		case models.ClassScheduleClosed:
			summary.Closed += c.Total
		case models.ClassScheduleArchived:
			summary.Archived += c.Total
		default:
			s.logger.Warn("unknown class schedule status", zap.String("status", string(c.Status)), zap.Int("total", c.Total))
		}
	}
	_ = s.cache.Set(ctx, key, summary, s.ttl)
	return summary, nil
}

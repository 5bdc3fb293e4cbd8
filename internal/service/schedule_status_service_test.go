package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler/internal/models"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
)

type statusCounterStub struct {
	counts []models.StatusCount
	err    error
	calls  int
}

func (s *statusCounterStub) CountByStatus(ctx context.Context, sessionID string) ([]models.StatusCount, error) {
	s.calls++
	return s.counts, s.err
}

func TestScheduleStatusServiceSummaryUsesCache(t *testing.T) {
	repo := &statusCounterStub{counts: []models.StatusCount{
		{Status: models.ClassScheduleActive, Total: 12},
		{Status: models.ClassScheduleClosed, Total: 4},
		{Status: models.ClassScheduleArchived, Total: 1},
	}}
	cacheRepo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewScheduleStatusService(repo, NewCacheService(cacheRepo, metrics, time.Minute, nil, true), time.Minute, nil)

	first, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusSummary{Active: 12, Closed: 4, Archived: 1}, *first)

	second, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, repo.calls)
	assert.Contains(t, cacheRepo.entries, "scheduler:status:all")
	assert.InDelta(t, 0.5, metrics.Snapshot().CacheHitRatio, 0.001)

	require.NoError(t, cacheRepo.DeleteByPattern(context.Background(), "scheduler:status:*"))
	_, err = svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestScheduleStatusServiceWithoutCache(t *testing.T) {
	repo := &statusCounterStub{counts: []models.StatusCount{{Status: models.ClassScheduleActive, Total: 3}}}
	svc := NewScheduleStatusService(repo, nil, 0, nil)

	summary, err := svc.Summary(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Active)
	assert.Zero(t, summary.Closed)

	repo.err = errBoom
	_, err = svc.Summary(context.Background(), "session-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type staleProposalRejecter interface {
	RejectStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// ProposalSweeper rejects pending proposals that outlived their TTL.
type ProposalSweeper struct {
	repo    staleProposalRejecter
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cron    *cron.Cron
}

// NewProposalSweeper constructs a sweeper; ttl <= 0 defaults to 72h.
func NewProposalSweeper(repo staleProposalRejecter, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *ProposalSweeper {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalSweeper{
		repo:    repo,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs one pass and returns how many proposals were rejected.
func (s *ProposalSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl)
	rejected, err := s.repo.RejectStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("proposal sweep failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	s.metrics.RecordSweep(rejected)
	if rejected > 0 {
		s.logger.Info("stale proposals rejected", zap.Int64("rejected", rejected), zap.Time("cutoff", cutoff))
	}
	return rejected, nil
}

// Start schedules Sweep on spec. Overlapping runs are skipped.
func (s *ProposalSweeper) Start(spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("schedule proposal sweeper %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("proposal sweeper started", zap.String("spec", spec), zap.Duration("ttl", s.ttl))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *ProposalSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

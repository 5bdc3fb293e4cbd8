package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler/internal/dto"
	"github.com/noah-isme/class-scheduler/internal/models"
	"github.com/noah-isme/class-scheduler/internal/scheduler"
	"github.com/noah-isme/class-scheduler/pkg/cache"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
)

type proposalStore interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleProposal, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleProposal, error)
	MarkApplied(ctx context.Context, exec sqlx.ExtContext, id string, appliedAt time.Time) error
	DeletePending(ctx context.Context, id string) error
	ListBySession(ctx context.Context, sessionID string, status models.ProposalStatus) ([]models.ProposalSummary, error)
}

type classScheduleWriter interface {
	ListActiveForScope(ctx context.Context, exec sqlx.ExtContext, batchIDs, teacherIDs, roomIDs []string) ([]models.ClassSchedule, error)
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, rows []models.ClassSchedule) error
	CloseByBatches(ctx context.Context, exec sqlx.ExtContext, batchIDs []string) (int64, error)
	CloseBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) (int64, error)
	LockSession(ctx context.Context, exec sqlx.ExtContext, sessionID string) error
}

// ScheduleProposalService owns the proposal lifecycle and bulk transitions of live rows.
type ScheduleProposalService struct {
	proposals proposalStore
	schedules classScheduleWriter
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	locks     *keyedMutex
	now       func() time.Time
}

// NewScheduleProposalService wires proposal dependencies.
func NewScheduleProposalService(
	proposals proposalStore,
	schedules classScheduleWriter,
	tx txProvider,
	cacheSvc *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleProposalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleProposalService{
		proposals: proposals,
		schedules: schedules,
		tx:        tx,
		cache:     cacheSvc,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a decoded proposal.
func (s *ScheduleProposalService) Get(ctx context.Context, id string) (*dto.ProposalResponse, error) {
	proposal, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := proposalResponse(proposal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode proposal")
	}
	return resp, nil
}

// List returns proposals of a session, newest first.
func (s *ScheduleProposalService) List(ctx context.Context, query dto.ProposalListQuery) ([]dto.ProposalListItem, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proposal query")
	}
	summaries, err := s.proposals.ListBySession(ctx, query.SessionID, models.ProposalStatus(query.Status))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list proposals")
	}
	items := make([]dto.ProposalListItem, 0, len(summaries))
	for _, summary := range summaries {
		meta, err := decodeMetadata(summary.Metadata)
		if err != nil {
			s.logger.Warn("proposal metadata unreadable", zap.String("proposal_id", summary.ID), zap.Error(err))
		}
		items = append(items, dto.ProposalListItem{
			ID:               summary.ID,
			SessionID:        summary.SessionID,
			Status:           string(summary.Status),
			ItemCount:        meta.ItemCount,
			UnscheduledCount: meta.UnscheduledCount,
			CreatedAt:        summary.CreatedAt,
			AppliedAt:        summary.AppliedAt,
		})
	}
	return items, nil
}

// Apply writes a pending proposal to the live schedule. Applies of one session
// run one at a time; any failure leaves the proposal pending.
func (s *ScheduleProposalService) Apply(ctx context.Context, id string) (*dto.ApplyProposalResponse, error) {
	proposal, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalPending {
		s.metrics.RecordApply("invalid_state")
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("proposal is %s", proposal.Status))
	}

	unlock := s.locks.Lock(proposal.SessionID)
	defer unlock()

	resp, err := s.apply(ctx, id)
	if err != nil {
		s.metrics.RecordApply(applyOutcome(err))
		s.logger.Warn("proposal apply failed", zap.String("proposal_id", id), zap.Error(err))
		return nil, err
	}
	s.metrics.RecordApply("applied")
	s.invalidateStatus(ctx)
	s.logger.Info("proposal applied",
		zap.String("proposal_id", id),
		zap.String("session_id", proposal.SessionID),
		zap.Int("created", resp.Created),
		zap.Int64("closed", resp.Closed),
	)
	return resp, nil
}

func (s *ScheduleProposalService) apply(ctx context.Context, id string) (resp *dto.ApplyProposalResponse, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	proposal, err := s.proposals.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock proposal")
	}
	if proposal.Status != models.ProposalPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("proposal is %s", proposal.Status))
	}
	if err = s.schedules.LockSession(ctx, tx, proposal.SessionID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock session")
	}

	assignments, err := decodeAssignments(proposal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode proposal")
	}
	meta, err := decodeMetadata(proposal.Metadata)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode proposal")
	}
	batchIDs, teacherIDs, roomIDs := touchedResources(meta.BatchIDs, assignments)

	closed, err := s.schedules.CloseByBatches(ctx, tx, batchIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrApplyConflict.Code, appErrors.ErrApplyConflict.Status, "failed to close previous schedules")
	}
	remaining, err := s.schedules.ListActiveForScope(ctx, tx, batchIDs, teacherIDs, roomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active schedules")
	}
	if msg := firstConflict(assignments, assignmentsFromSchedules(remaining, s.logger)); msg != "" {
		err = appErrors.Clone(appErrors.ErrApplyConflict, msg)
		return nil, err
	}

	rows := schedulesFromAssignments(proposal, assignments)
	if err = s.schedules.BulkCreate(ctx, tx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrApplyConflict.Code, appErrors.ErrApplyConflict.Status, "failed to write schedules")
	}
	if err = s.proposals.MarkApplied(ctx, tx, id, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "proposal is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve proposal")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrApplyConflict.Code, appErrors.ErrApplyConflict.Status, "failed to commit apply")
	}

	return &dto.ApplyProposalResponse{
		ProposalID: id,
		Status:     string(models.ProposalApproved),
		Created:    len(rows),
		Closed:     closed,
	}, nil
}

// Discard deletes a pending proposal.
func (s *ScheduleProposalService) Discard(ctx context.Context, id string) error {
	proposal, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if proposal.Status != models.ProposalPending {
		return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot delete a %s proposal", proposal.Status))
	}
	if err := s.proposals.DeletePending(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidState, "proposal is no longer pending")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete proposal")
	}
	s.logger.Info("proposal discarded", zap.String("proposal_id", id), zap.String("session_id", proposal.SessionID))
	return nil
}

// Close moves live rows of batches or of a whole session to closed. Proposals
// are left alone.
func (s *ScheduleProposalService) Close(ctx context.Context, req dto.CloseSchedulesRequest) (*dto.CloseSchedulesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid close payload")
	}
	if len(req.BatchIDs) > 0 {
		return s.CloseForBatches(ctx, req.BatchIDs)
	}
	return s.CloseForSession(ctx, req.SessionID)
}

// CloseForBatches closes active rows of the batches.
func (s *ScheduleProposalService) CloseForBatches(ctx context.Context, batchIDs []string) (*dto.CloseSchedulesResponse, error) {
	closed, err := s.schedules.CloseByBatches(ctx, nil, batchIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close schedules")
	}
	s.invalidateStatus(ctx)
	s.logger.Info("schedules closed", zap.Strings("batch_ids", batchIDs), zap.Int64("closed", closed))
	return &dto.CloseSchedulesResponse{
		Message: fmt.Sprintf("closed %d schedule(s) for %d batch(es)", closed, len(batchIDs)),
		Closed:  closed,
	}, nil
}

// CloseForSession closes every active row of the session.
func (s *ScheduleProposalService) CloseForSession(ctx context.Context, sessionID string) (*dto.CloseSchedulesResponse, error) {
	closed, err := s.schedules.CloseBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close schedules")
	}
	s.invalidateStatus(ctx)
	s.logger.Info("schedules closed", zap.String("session_id", sessionID), zap.Int64("closed", closed))
	return &dto.CloseSchedulesResponse{
		Message: fmt.Sprintf("closed %d schedule(s) for session %s", closed, sessionID),
		Closed:  closed,
	}, nil
}

func (s *ScheduleProposalService) find(ctx context.Context, id string) (*models.ScheduleProposal, error) {
	proposal, err := s.proposals.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	return proposal, nil
}

func (s *ScheduleProposalService) invalidateStatus(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cache.Key(statusCacheNamespace, "*"))
}

func applyOutcome(err error) string {
	switch {
	case appErrors.Is(err, appErrors.ErrApplyConflict):
		return "conflict"
	case appErrors.Is(err, appErrors.ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}

// touchedResources collects sorted ids of the batches, teachers and rooms a
// proposal writes to.
func touchedResources(metaBatches []string, assignments []scheduler.Assignment) (batches, teachers, rooms []string) {
	batchSet := make(map[string]struct{})
	teacherSet := make(map[string]struct{})
	roomSet := make(map[string]struct{})
	for _, id := range metaBatches {
		batchSet[id] = struct{}{}
	}
	for _, a := range assignments {
		batchSet[a.BatchID] = struct{}{}
		teacherSet[a.TeacherID] = struct{}{}
		roomSet[a.RoomID] = struct{}{}
	}
	return sortedKeys(batchSet), sortedKeys(teacherSet), sortedKeys(roomSet)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// firstConflict replays proposal assignments over the remaining live rows and
// describes the first clash, or returns "".
func firstConflict(assignments, live []scheduler.Assignment) string {
	index := scheduler.NewIndex()
	for _, a := range live {
		for _, day := range a.DaysOfWeek {
			index.Block(scheduler.ResourceTeacher, a.TeacherID, day, a.Block())
			index.Block(scheduler.ResourceRoom, a.RoomID, day, a.Block())
			index.Block(scheduler.ResourceBatch, a.BatchID, day, a.Block())
		}
	}
	for _, a := range assignments {
		for _, day := range a.DaysOfWeek {
			checks := []struct {
				kind scheduler.ResourceKind
				id   string
			}{
				{scheduler.ResourceTeacher, a.TeacherID},
				{scheduler.ResourceRoom, a.RoomID},
				{scheduler.ResourceBatch, a.BatchID},
			}
			for _, c := range checks {
				if err := index.Reserve(c.kind, c.id, day, a.Block()); err != nil {
					return fmt.Sprintf("%s %s is already booked on %s %s", c.kind, c.id, day, a.Block())
				}
			}
		}
	}
	return ""
}

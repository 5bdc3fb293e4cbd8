package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/class-scheduler/internal/dto"
	"github.com/noah-isme/class-scheduler/internal/models"
	"github.com/noah-isme/class-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
)

type schedulerBatchReader interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
}

type batchCourseReader interface {
	ListByBatches(ctx context.Context, batchIDs []string) ([]models.BatchCourse, error)
}

type classroomReader interface {
	ListActive(ctx context.Context) ([]models.Classroom, error)
}

type activeScheduleReader interface {
	ListActiveForScope(ctx context.Context, exec sqlx.ExtContext, batchIDs, teacherIDs, roomIDs []string) ([]models.ClassSchedule, error)
}

type teacherPreferenceReader interface {
	ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.TeacherPreference, error)
}

type proposalWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, proposal *models.ScheduleProposal) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ScheduleGeneratorService validates scopes and turns planner runs into pending proposals.
type ScheduleGeneratorService struct {
	batches   schedulerBatchReader
	courses   batchCourseReader
	rooms     classroomReader
	schedules activeScheduleReader
	prefs     teacherPreferenceReader
	proposals proposalWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleGeneratorConfig
}

// NewScheduleGeneratorService wires generator dependencies.
func NewScheduleGeneratorService(
	batches schedulerBatchReader,
	courses batchCourseReader,
	rooms classroomReader,
	schedules activeScheduleReader,
	prefs teacherPreferenceReader,
	proposals proposalWriter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGeneratorService{
		batches:   batches,
		courses:   courses,
		rooms:     rooms,
		schedules: schedules,
		prefs:     prefs,
		proposals: proposals,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// scope is the data both Validate and Generate work on.
type scope struct {
	batches   []models.Batch
	offerings []scheduler.Offering
	rooms     []scheduler.Room
}

func (sc scope) validation(preferred scheduler.PreferredRooms) scheduler.ValidationScope {
	return scheduler.ValidationScope{
		Batches:        batchScopes(sc.batches),
		Offerings:      sc.offerings,
		Rooms:          sc.rooms,
		PreferredRooms: preferred,
	}
}

// Validate runs the instructor and resource checks for a scope.
func (s *ScheduleGeneratorService) Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*scheduler.ValidationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	sc, err := s.loadScope(ctx, req.ScopeRequest)
	if err != nil {
		return nil, err
	}
	result := scheduler.Validate(sc.validation(scheduler.PreferredRooms(req.PreferredRooms)))
	return &result, nil
}

// Generate validates the scope, plans it against the live schedule and stores
// the result as a pending proposal. A failed validation is returned as data
// with Mode blocked and no proposal.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest, actor string) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	grammar, err := s.buildGrammar(req)
	if err != nil {
		var cfgErr *scheduler.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, appErrors.Wrap(err, appErrors.ErrConfig.Code, appErrors.ErrConfig.Status, cfgErr.Error())
		}
		return nil, err
	}
	opts := scheduler.Options{
		GroupLabsTogether: req.GroupLabsTogether,
		PreferredRooms:    scheduler.PreferredRooms(req.PreferredRooms),
		TargetShift:       scheduler.Shift(req.TargetShift),
	}
	durations := s.durations(req.ClassDurations)

	sc, err := s.loadScope(ctx, req.ScopeRequest)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	validation := scheduler.Validate(sc.validation(opts.PreferredRooms))
	if !validation.Valid {
		blocked := validation.Blocked()
		s.metrics.ObserveGeneration(dto.GenerateModeBlocked, 0, len(blocked), time.Since(started))
		s.logger.Info("schedule generation blocked",
			zap.String("session_id", req.SessionID),
			zap.Strings("errors", validation.Errors),
			zap.Int("unassigned_courses", len(validation.UnassignedCourses)),
		)
		return &dto.GenerateScheduleResponse{
			Mode:       dto.GenerateModeBlocked,
			Validation: validation,
			Stats: dto.GenerationStats{
				Unscheduled:        len(blocked),
				UnscheduledCourses: blocked,
			},
		}, nil
	}

	existing, unavailable, err := s.loadBaseline(ctx, sc)
	if err != nil {
		return nil, err
	}

	planner := scheduler.NewPlanner(grammar, sc.rooms, opts)
	planner.Seed(existing)
	for teacherID, slots := range unavailable {
		for _, slot := range slots {
			s.blockUnavailable(planner, teacherID, slot)
		}
	}
	result := planner.Plan(scheduler.ExpandUnits(sc.offerings, durations))
	s.metrics.ObserveGeneration(dto.GenerateModeProposal, result.Stats.Scheduled, result.Stats.Unscheduled, time.Since(started))

	proposal, err := s.persist(ctx, req.SessionID, sc, result, opts, durations, actor)
	if err != nil {
		return nil, err
	}
	resp, err := proposalResponse(proposal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode proposal")
	}

	s.logger.Info("schedule proposal generated",
		zap.String("proposal_id", proposal.ID),
		zap.String("session_id", req.SessionID),
		zap.Int("batches", len(sc.batches)),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("scheduled_units", result.Stats.Scheduled),
		zap.Int("unscheduled_units", result.Stats.Unscheduled),
	)

	return &dto.GenerateScheduleResponse{
		Mode:       dto.GenerateModeProposal,
		Proposal:   resp,
		Validation: validation,
		Stats: dto.GenerationStats{
			Scheduled:          result.Stats.Scheduled,
			Unscheduled:        result.Stats.Unscheduled,
			UnscheduledCourses: result.Unscheduled,
		},
	}, nil
}

func (s *ScheduleGeneratorService) persist(ctx context.Context, sessionID string, sc scope, result scheduler.Result, opts scheduler.Options, durations scheduler.Durations, actor string) (*models.ScheduleProposal, error) {
	batchIDs := make([]string, 0, len(sc.batches))
	for _, b := range sc.batches {
		batchIDs = append(batchIDs, b.ID)
	}
	meta := dto.ProposalMetadata{
		ItemCount:        len(result.Assignments),
		UnscheduledCount: len(result.Unscheduled),
		ScheduledUnits:   result.Stats.Scheduled,
		BatchIDs:         batchIDs,
		Unscheduled:      result.Unscheduled,
		Options:          opts,
		Durations:        durations,
		GeneratedBy:      actor,
	}
	assignments := result.Assignments
	if assignments == nil {
		assignments = []scheduler.Assignment{}
	}
	data, err := json.Marshal(assignments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode proposal")
	}
	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode proposal metadata")
	}
	proposal := &models.ScheduleProposal{
		SessionID:    sessionID,
		Status:       models.ProposalPending,
		ScheduleData: types.JSONText(data),
		Metadata:     types.JSONText(metaRaw),
	}
	if err := s.proposals.Create(ctx, nil, proposal); err != nil {
		s.logger.Error("failed to store schedule proposal", zap.String("session_id", sessionID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proposal")
	}
	return proposal, nil
}

func (s *ScheduleGeneratorService) loadScope(ctx context.Context, req dto.ScopeRequest) (scope, error) {
	filter := models.BatchFilter{SessionID: req.SessionID}
	switch req.SelectionMode {
	case dto.SelectionDepartment:
		filter.DepartmentID = req.DepartmentID
	case dto.SelectionSingleBatch:
		if len(req.BatchIDs) != 1 {
			return scope{}, appErrors.Clone(appErrors.ErrValidation, "single_batch selection requires exactly one batch id")
		}
		filter.BatchIDs = req.BatchIDs
	case dto.SelectionMultiBatch:
		if len(req.BatchIDs) == 0 {
			return scope{}, appErrors.Clone(appErrors.ErrValidation, "multi_batch selection requires at least one batch id")
		}
		filter.BatchIDs = req.BatchIDs
	}

	exists, err := s.batches.SessionExists(ctx, req.SessionID)
	if err != nil {
		return scope{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if !exists {
		return scope{}, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	batches, err := s.batches.List(ctx, filter)
	if err != nil {
		return scope{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batches")
	}
	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}

	var (
		courses    []models.BatchCourse
		classrooms []models.Classroom
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		courses, err = s.courses.ListByBatches(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		classrooms, err = s.rooms.ListActive(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return scope{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling scope")
	}

	return scope{
		batches:   batches,
		offerings: offeringsFromCourses(courses),
		rooms:     roomsFromClassrooms(classrooms),
	}, nil
}

// loadBaseline fetches the live rows that constrain this run and the declared
// teacher unavailability, in parallel.
func (s *ScheduleGeneratorService) loadBaseline(ctx context.Context, sc scope) ([]scheduler.Assignment, map[string][]models.TeacherUnavailableSlot, error) {
	batchIDs := make([]string, 0, len(sc.batches))
	for _, b := range sc.batches {
		batchIDs = append(batchIDs, b.ID)
	}
	teacherSet := make(map[string]struct{})
	for _, o := range sc.offerings {
		if o.TeacherID != "" {
			teacherSet[o.TeacherID] = struct{}{}
		}
	}
	teacherIDs := make([]string, 0, len(teacherSet))
	for id := range teacherSet {
		teacherIDs = append(teacherIDs, id)
	}
	sort.Strings(teacherIDs)
	roomIDs := make([]string, 0, len(sc.rooms))
	for _, r := range sc.rooms {
		roomIDs = append(roomIDs, r.ID)
	}

	var (
		rows  []models.ClassSchedule
		prefs []models.TeacherPreference
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.schedules.ListActiveForScope(gctx, nil, batchIDs, teacherIDs, roomIDs)
		return err
	})
	if s.prefs != nil {
		g.Go(func() error {
			var err error
			prefs, err = s.prefs.ListByTeachers(gctx, teacherIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active schedules")
	}

	unavailable := make(map[string][]models.TeacherUnavailableSlot, len(prefs))
	for _, pref := range prefs {
		if len(pref.Unavailable) == 0 {
			continue
		}
		var slots []models.TeacherUnavailableSlot
		if err := json.Unmarshal(pref.Unavailable, &slots); err != nil {
			s.logger.Warn("ignoring malformed teacher preference", zap.String("teacher_id", pref.TeacherID), zap.Error(err))
			continue
		}
		unavailable[pref.TeacherID] = slots
	}
	return assignmentsFromSchedules(rows, s.logger), unavailable, nil
}

func (s *ScheduleGeneratorService) blockUnavailable(planner *scheduler.Planner, teacherID string, slot models.TeacherUnavailableSlot) {
	day, err := scheduler.ParseWeekday(slot.DayOfWeek)
	if err != nil {
		s.logger.Warn("ignoring unavailable slot", zap.String("teacher_id", teacherID), zap.Error(err))
		return
	}
	block, err := scheduler.NewTimeBlock(slot.Start, slot.End)
	if err != nil || !block.Valid() {
		s.logger.Warn("ignoring unavailable slot", zap.String("teacher_id", teacherID), zap.String("day", string(day)), zap.Error(err))
		return
	}
	planner.BlockTeacher(teacherID, day, block)
}

func (s *ScheduleGeneratorService) buildGrammar(req dto.GenerateScheduleRequest) (*scheduler.Grammar, error) {
	slots := s.cfg.Slots
	if req.CustomTimeSlots.Day != nil {
		day, err := shiftConfigFromRequest(scheduler.ShiftDay, req.CustomTimeSlots.Day)
		if err != nil {
			return nil, err
		}
		slots.Day = day
	}
	if req.CustomTimeSlots.Evening != nil {
		evening, err := shiftConfigFromRequest(scheduler.ShiftEvening, req.CustomTimeSlots.Evening)
		if err != nil {
			return nil, err
		}
		slots.Evening = evening
	}

	working := make(map[scheduler.Shift][]scheduler.Weekday, len(scheduler.Shifts))
	if req.OffDays != nil {
		off, err := scheduler.ParseWeekdays(req.OffDays)
		if err != nil {
			return nil, &scheduler.ConfigError{Message: "off days: " + err.Error()}
		}
		for _, shift := range scheduler.Shifts {
			working[shift] = scheduler.WorkingDays(off)
		}
	} else {
		for _, shift := range scheduler.Shifts {
			working[shift] = scheduler.WorkingDays(s.cfg.OffDays[shift])
		}
	}
	return scheduler.NewGrammar(slots, working)
}

func (s *ScheduleGeneratorService) durations(req dto.ClassDurations) scheduler.Durations {
	d := s.cfg.Durations
	if req.Theory > 0 {
		d.Theory = req.Theory
	}
	if req.Lab > 0 {
		d.Lab = req.Lab
	}
	if req.Project > 0 {
		d.Project = req.Project
	}
	return d
}

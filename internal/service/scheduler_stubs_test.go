package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler/internal/models"
	"github.com/noah-isme/class-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
)

type batchRepoStub struct {
	batches        []models.Batch
	sessionMissing bool
	lastFilter     models.BatchFilter
}

func (s *batchRepoStub) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	s.lastFilter = filter
	wanted := make(map[string]bool, len(filter.BatchIDs))
	for _, id := range filter.BatchIDs {
		wanted[id] = true
	}
	var out []models.Batch
	for _, b := range s.batches {
		if b.SessionID != filter.SessionID {
			continue
		}
		if filter.DepartmentID != "" && b.DepartmentID != filter.DepartmentID {
			continue
		}
		if len(wanted) > 0 && !wanted[b.ID] {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *batchRepoStub) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	return !s.sessionMissing, nil
}

type courseRepoStub struct {
	courses []models.BatchCourse
}

func (s courseRepoStub) ListByBatches(ctx context.Context, batchIDs []string) ([]models.BatchCourse, error) {
	wanted := make(map[string]bool, len(batchIDs))
	for _, id := range batchIDs {
		wanted[id] = true
	}
	var out []models.BatchCourse
	for _, c := range s.courses {
		if wanted[c.BatchID] {
			out = append(out, c)
		}
	}
	return out, nil
}

type roomRepoStub struct {
	rooms []models.Classroom
}

func (s roomRepoStub) ListActive(ctx context.Context) ([]models.Classroom, error) {
	return s.rooms, nil
}

type preferenceRepoStub struct {
	prefs []models.TeacherPreference
}

func (s preferenceRepoStub) ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.TeacherPreference, error) {
	return s.prefs, nil
}

// classScheduleRepoStub keeps rows in memory and mimics the status filters of
// the SQL repository.
type classScheduleRepoStub struct {
	mu            sync.Mutex
	rows          []models.ClassSchedule
	created       []models.ClassSchedule
	lockedSession []string
	bulkErr       error
	closeCalls    [][]string
}

func (s *classScheduleRepoStub) ListActiveForScope(ctx context.Context, exec sqlx.ExtContext, batchIDs, teacherIDs, roomIDs []string) ([]models.ClassSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := func(list []string, v string) bool {
		for _, item := range list {
			if item == v {
				return true
			}
		}
		return false
	}
	var out []models.ClassSchedule
	for _, row := range s.rows {
		if row.Status != models.ClassScheduleActive {
			continue
		}
		if in(batchIDs, row.BatchID) || in(teacherIDs, row.TeacherID) || in(roomIDs, row.ClassroomID) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *classScheduleRepoStub) BulkCreate(ctx context.Context, exec sqlx.ExtContext, rows []models.ClassSchedule) error {
	if s.bulkErr != nil {
		return s.bulkErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, rows...)
	return nil
}

func (s *classScheduleRepoStub) CloseByBatches(ctx context.Context, exec sqlx.ExtContext, batchIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls = append(s.closeCalls, batchIDs)
	var closed int64
	for i, row := range s.rows {
		if row.Status != models.ClassScheduleActive {
			continue
		}
		for _, id := range batchIDs {
			if row.BatchID == id {
				s.rows[i].Status = models.ClassScheduleClosed
				closed++
			}
		}
	}
	return closed, nil
}

func (s *classScheduleRepoStub) CloseBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var closed int64
	for i, row := range s.rows {
		if row.Status == models.ClassScheduleActive && row.SessionID == sessionID {
			s.rows[i].Status = models.ClassScheduleClosed
			closed++
		}
	}
	return closed, nil
}

func (s *classScheduleRepoStub) LockSession(ctx context.Context, exec sqlx.ExtContext, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockedSession = append(s.lockedSession, sessionID)
	return nil
}

type proposalRepoStub struct {
	mu        sync.Mutex
	items     map[string]*models.ScheduleProposal
	order     []string
	createErr error
	cutoffs   []time.Time
	stale     int64
}

func newProposalRepoStub() *proposalRepoStub {
	return &proposalRepoStub{items: make(map[string]*models.ScheduleProposal)}
}

func (s *proposalRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, proposal *models.ScheduleProposal) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if proposal.ID == "" {
		proposal.ID = "proposal-" + string(rune('a'+len(s.order)))
	}
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	}
	copied := *proposal
	s.items[proposal.ID] = &copied
	s.order = append(s.order, proposal.ID)
	return nil
}

func (s *proposalRepoStub) FindByID(ctx context.Context, id string) (*models.ScheduleProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *p
	return &copied, nil
}

func (s *proposalRepoStub) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleProposal, error) {
	return s.FindByID(ctx, id)
}

func (s *proposalRepoStub) MarkApplied(ctx context.Context, exec sqlx.ExtContext, id string, appliedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok || p.Status != models.ProposalPending {
		return sql.ErrNoRows
	}
	p.Status = models.ProposalApproved
	p.AppliedAt = &appliedAt
	return nil
}

func (s *proposalRepoStub) DeletePending(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok || p.Status != models.ProposalPending {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

func (s *proposalRepoStub) ListBySession(ctx context.Context, sessionID string, status models.ProposalStatus) ([]models.ProposalSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProposalSummary
	for _, id := range s.order {
		p, ok := s.items[id]
		if !ok || p.SessionID != sessionID || (status != "" && p.Status != status) {
			continue
		}
		out = append(out, models.ProposalSummary{ID: p.ID, SessionID: p.SessionID, Status: p.Status, Metadata: p.Metadata, CreatedAt: p.CreatedAt, AppliedAt: p.AppliedAt})
	}
	return out, nil
}

func (s *proposalRepoStub) RejectStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.stale, nil
}

// memoryCacheRepo stores JSON payloads like the Redis repository does.
type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func strPtr(v string) *string {
	return &v
}

func testGeneratorConfig() ScheduleGeneratorConfig {
	return ScheduleGeneratorConfig{
		Durations: scheduler.Durations{Theory: 75, Lab: 100, Project: 100},
		Slots: scheduler.TimeSlots{
			Day:     scheduler.ShiftTimeConfig{DefaultBlocks: []scheduler.TimeBlock{scheduler.Block("08:30", "13:00"), scheduler.Block("14:00", "17:00")}},
			Evening: scheduler.ShiftTimeConfig{DefaultBlocks: []scheduler.TimeBlock{scheduler.Block("18:00", "21:40")}},
		},
		OffDays: map[scheduler.Shift][]scheduler.Weekday{
			scheduler.ShiftDay:     {scheduler.Friday},
			scheduler.ShiftEvening: {scheduler.Friday},
		},
	}
}

func batchCourse(batchID, code, classType string, teacherID *string) models.BatchCourse {
	bc := models.BatchCourse{
		BatchID:         batchID,
		BatchCode:       strings.ToUpper(batchID),
		BatchShift:      "day",
		StudentCount:    30,
		SessionCourseID: "sc-" + code,
		CourseCode:      code,
		CourseTitle:     "Course " + code,
		ClassType:       classType,
		SessionsPerWeek: 1,
		TeacherID:       teacherID,
	}
	if teacherID != nil {
		bc.TeacherName = strPtr("Teacher " + *teacherID)
	}
	return bc
}

func activeRow(id, batchID, teacherID, roomID string, days []string, start, end string) models.ClassSchedule {
	return models.ClassSchedule{
		ID:              id,
		SessionID:       "session-1",
		BatchID:         batchID,
		SessionCourseID: "sc-" + id,
		TeacherID:       teacherID,
		ClassroomID:     roomID,
		DaysOfWeek:      days,
		StartTime:       start,
		EndTime:         end,
		ClassType:       "theory",
		Status:          models.ClassScheduleActive,
	}
}

func sortedAssignmentKeys(assignments []scheduler.Assignment) []string {
	keys := make([]string, 0, len(assignments))
	for _, a := range assignments {
		keys = append(keys, a.BatchID+"/"+a.CourseCode+"/"+a.Block().String())
	}
	sort.Strings(keys)
	return keys
}

var errBoom = errors.New("boom")

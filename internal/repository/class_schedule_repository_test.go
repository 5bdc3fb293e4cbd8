package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler/internal/models"
)

func TestClassScheduleListActiveForScope(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClassScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "session_id", "batch_id", "session_course_id", "teacher_id", "classroom_id", "days_of_week", "start_time", "end_time", "class_type", "status", "proposal_id", "created_at", "updated_at"}).
		AddRow("cs-1", "s1", "b1", "sc-1", "t1", "r1", "{Sunday,Tuesday}", "08:30", "09:45", "theory", "active", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules\nWHERE status = 'active' AND (batch_id = ANY($1) OR teacher_id = ANY($2) OR classroom_id = ANY($3))")).
		WithArgs(pq.Array([]string{"b1"}), pq.Array([]string{"t1"}), pq.Array([]string{"r1"})).
		WillReturnRows(rows)

	list, err := repo.ListActiveForScope(context.Background(), nil, []string{"b1"}, []string{"t1"}, []string{"r1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"Sunday", "Tuesday"}, []string(list[0].DaysOfWeek))
	assert.Nil(t, list[0].ProposalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleBulkCreateInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClassScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO class_schedules").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO class_schedules").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	proposalID := "proposal-a"
	rows := []models.ClassSchedule{
		{SessionID: "s1", BatchID: "b1", TeacherID: "t1", ClassroomID: "r1", DaysOfWeek: pq.StringArray{"Sunday"}, StartTime: "08:30", EndTime: "09:45", ProposalID: &proposalID},
		{SessionID: "s1", BatchID: "b1", TeacherID: "t2", ClassroomID: "l1", DaysOfWeek: pq.StringArray{"Monday"}, StartTime: "10:00", EndTime: "11:40"},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), tx, rows))
	require.NoError(t, tx.Commit())

	for _, row := range rows {
		assert.NotEmpty(t, row.ID)
		assert.Equal(t, models.ClassScheduleActive, row.Status)
		assert.False(t, row.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleClose(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClassScheduleRepository(db)

	closed, err := repo.CloseByBatches(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, closed)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_schedules SET status = 'closed', updated_at = $2 WHERE status = 'active' AND batch_id = ANY($1)")).
		WithArgs(pq.Array([]string{"b1", "b2"}), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 5))
	closed, err = repo.CloseByBatches(context.Background(), nil, []string{"b1", "b2"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, closed)

	mock.ExpectExec(regexp.QuoteMeta("WHERE status = 'active' AND session_id = $1")).
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 9))
	closed, err = repo.CloseBySession(context.Background(), nil, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 9, closed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleCountByStatusAndLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClassScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS total FROM class_schedules WHERE session_id = $1 GROUP BY status")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).AddRow("active", 7).AddRow("closed", 2))
	counts, err := repo.CountByStatus(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []models.StatusCount{{Status: models.ClassScheduleActive, Total: 7}, {Status: models.ClassScheduleClosed, Total: 2}}, counts)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS total FROM class_schedules GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}))
	_, err = repo.CountByStatus(context.Background(), "")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.LockSession(context.Background(), nil, "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

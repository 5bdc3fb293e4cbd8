package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler/internal/models"
)

func TestScheduleProposalCreateDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleProposalRepository(db)

	mock.ExpectExec("INSERT INTO schedule_proposals").
		WithArgs(sqlmock.AnyArg(), "s1", models.ProposalPending, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	proposal := &models.ScheduleProposal{SessionID: "s1"}
	require.NoError(t, repo.Create(context.Background(), nil, proposal))
	assert.NotEmpty(t, proposal.ID)
	assert.Equal(t, "[]", string(proposal.ScheduleData))
	assert.Equal(t, "{}", string(proposal.Metadata))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, repo.Create(context.Background(), nil, nil))
}

func TestScheduleProposalFindForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleProposalRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_proposals WHERE id = $1 FOR UPDATE")).
		WithArgs("proposal-a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "status", "schedule_data", "metadata", "created_at", "updated_at", "applied_at"}).
			AddRow("proposal-a", "s1", "pending", `[]`, `{}`, now, now, nil))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	proposal, err := repo.FindByIDForUpdate(context.Background(), tx, "proposal-a")
	require.NoError(t, err)
	assert.Equal(t, models.ProposalPending, proposal.Status)
	require.NoError(t, tx.Rollback())

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_proposals WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleProposalMarkAppliedOnlyWhenPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleProposalRepository(db)
	appliedAt := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_proposals SET status = 'approved'")).
		WithArgs("proposal-a", appliedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkApplied(context.Background(), nil, "proposal-a", appliedAt))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_proposals SET status = 'approved'")).
		WithArgs("proposal-a", appliedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkApplied(context.Background(), nil, "proposal-a", appliedAt)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleProposalDeletePending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleProposalRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_proposals WHERE id = $1 AND status = 'pending'")).
		WithArgs("proposal-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeletePending(context.Background(), "proposal-a"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_proposals")).
		WithArgs("proposal-b").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(repo.DeletePending(context.Background(), "proposal-b"), sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleProposalListAndRejectStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleProposalRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE session_id = $1 AND status = $2 ORDER BY created_at DESC, id ASC")).
		WithArgs("s1", models.ProposalPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "status", "metadata", "created_at", "applied_at"}).
			AddRow("proposal-b", "s1", "pending", `{"itemCount":3}`, now, nil))
	list, err := repo.ListBySession(context.Background(), "s1", models.ProposalPending)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, `{"itemCount":3}`, string(list[0].Metadata))

	cutoff := now.Add(-72 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_proposals SET status = 'rejected', updated_at = $2 WHERE status = 'pending' AND created_at < $1")).
		WithArgs(cutoff, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))
	rejected, err := repo.RejectStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 4, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

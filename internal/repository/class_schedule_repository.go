package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/class-scheduler/internal/models"
)

// ClassScheduleRepository persists live schedule rows.
type ClassScheduleRepository struct {
	db *sqlx.DB
}

// NewClassScheduleRepository constructs the repository.
func NewClassScheduleRepository(db *sqlx.DB) *ClassScheduleRepository {
	return &ClassScheduleRepository{db: db}
}

func (r *ClassScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const classScheduleColumns = `id, session_id, batch_id, session_course_id, teacher_id, classroom_id, days_of_week, start_time, end_time, class_type, status, proposal_id, created_at, updated_at`

// ListActiveForScope returns active rows touching any of the batches, teachers or rooms.
func (r *ClassScheduleRepository) ListActiveForScope(ctx context.Context, exec sqlx.ExtContext, batchIDs, teacherIDs, roomIDs []string) ([]models.ClassSchedule, error) {
	query := `SELECT ` + classScheduleColumns + ` FROM class_schedules
WHERE status = 'active' AND (batch_id = ANY($1) OR teacher_id = ANY($2) OR classroom_id = ANY($3))
ORDER BY batch_id ASC, start_time ASC, id ASC`
	var rows []models.ClassSchedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, pq.Array(batchIDs), pq.Array(teacherIDs), pq.Array(roomIDs)); err != nil {
		return nil, fmt.Errorf("list active class schedules: %w", err)
	}
	return rows, nil
}

// BulkCreate inserts rows using the provided executor.
func (r *ClassScheduleRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, rows []models.ClassSchedule) error {
	target := r.exec(exec)
	now := time.Now().UTC()
	const query = `INSERT INTO class_schedules (` + classScheduleColumns + `)
VALUES (:id, :session_id, :batch_id, :session_course_id, :teacher_id, :classroom_id, :days_of_week, :start_time, :end_time, :class_type, :status, :proposal_id, :created_at, :updated_at)`
	for i := range rows {
		payload := rows[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.Status == "" {
			payload.Status = models.ClassScheduleActive
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, &payload); err != nil {
			return fmt.Errorf("insert class schedule: %w", err)
		}
		rows[i] = payload
	}
	return nil
}

// CloseByBatches moves active rows of the batches to closed.
func (r *ClassScheduleRepository) CloseByBatches(ctx context.Context, exec sqlx.ExtContext, batchIDs []string) (int64, error) {
	if len(batchIDs) == 0 {
		return 0, nil
	}
	const query = `UPDATE class_schedules SET status = 'closed', updated_at = $2 WHERE status = 'active' AND batch_id = ANY($1)`
	res, err := r.exec(exec).ExecContext(ctx, query, pq.Array(batchIDs), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("close class schedules by batch: %w", err)
	}
	return res.RowsAffected()
}

// CloseBySession moves every active row of the session to closed.
func (r *ClassScheduleRepository) CloseBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) (int64, error) {
	const query = `UPDATE class_schedules SET status = 'closed', updated_at = $2 WHERE status = 'active' AND session_id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, sessionID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("close class schedules by session: %w", err)
	}
	return res.RowsAffected()
}

// CountByStatus aggregates rows per status, optionally for one session.
func (r *ClassScheduleRepository) CountByStatus(ctx context.Context, sessionID string) ([]models.StatusCount, error) {
	query := `SELECT status, COUNT(*) AS total FROM class_schedules`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = $1`
		args = append(args, sessionID)
	}
	query += ` GROUP BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count class schedules by status: %w", err)
	}
	return counts, nil
}

// LockSession takes a transaction-scoped advisory lock keyed by session.
func (r *ClassScheduleRepository) LockSession(ctx context.Context, exec sqlx.ExtContext, sessionID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sessionID); err != nil {
		return fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	return nil
}

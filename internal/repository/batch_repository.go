package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/class-scheduler/internal/models"
)

// BatchRepository reads batches selected for generation.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns batches of a session narrowed by department and/or ids, ordered by code.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	conditions := []string{"session_id = $1"}
	args := []interface{}{filter.SessionID}

	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if len(filter.BatchIDs) > 0 {
		args = append(args, pq.Array(filter.BatchIDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`SELECT id, code, name, department_id, session_id, shift, student_count FROM batches WHERE %s ORDER BY code ASC, id ASC`, strings.Join(conditions, " AND "))
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// SessionExists reports whether the session id is known.
func (r *BatchRepository) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, sessionID); err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return exists, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/class-scheduler/internal/models"
)

// ScheduleProposalRepository persists generated proposals.
type ScheduleProposalRepository struct {
	db *sqlx.DB
}

// NewScheduleProposalRepository constructs the repository.
func NewScheduleProposalRepository(db *sqlx.DB) *ScheduleProposalRepository {
	return &ScheduleProposalRepository{db: db}
}

func (r *ScheduleProposalRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const proposalColumns = `id, session_id, status, schedule_data, metadata, created_at, updated_at, applied_at`

// Create inserts a proposal, defaulting to pending.
func (r *ScheduleProposalRepository) Create(ctx context.Context, exec sqlx.ExtContext, proposal *models.ScheduleProposal) error {
	if proposal == nil {
		return fmt.Errorf("proposal payload is nil")
	}
	if proposal.ID == "" {
		proposal.ID = uuid.NewString()
	}
	if proposal.Status == "" {
		proposal.Status = models.ProposalPending
	}
	if len(proposal.ScheduleData) == 0 {
		proposal.ScheduleData = types.JSONText(`[]`)
	}
	if len(proposal.Metadata) == 0 {
		proposal.Metadata = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = now
	}
	proposal.UpdatedAt = now

	const query = `INSERT INTO schedule_proposals (` + proposalColumns + `)
VALUES (:id, :session_id, :status, :schedule_data, :metadata, :created_at, :updated_at, :applied_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, proposal); err != nil {
		return fmt.Errorf("insert schedule proposal: %w", err)
	}
	return nil
}

// FindByID loads a proposal.
func (r *ScheduleProposalRepository) FindByID(ctx context.Context, id string) (*models.ScheduleProposal, error) {
	var proposal models.ScheduleProposal
	if err := r.db.GetContext(ctx, &proposal, `SELECT `+proposalColumns+` FROM schedule_proposals WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// FindByIDForUpdate loads a proposal and locks its row until the transaction ends.
func (r *ScheduleProposalRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ScheduleProposal, error) {
	var proposal models.ScheduleProposal
	if err := sqlx.GetContext(ctx, r.exec(exec), &proposal, `SELECT `+proposalColumns+` FROM schedule_proposals WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// MarkApplied moves a pending proposal to approved. sql.ErrNoRows means it was not pending.
func (r *ScheduleProposalRepository) MarkApplied(ctx context.Context, exec sqlx.ExtContext, id string, appliedAt time.Time) error {
	const query = `UPDATE schedule_proposals SET status = 'approved', applied_at = $2, updated_at = $2 WHERE id = $1 AND status = 'pending'`
	res, err := r.exec(exec).ExecContext(ctx, query, id, appliedAt)
	if err != nil {
		return fmt.Errorf("mark proposal applied: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark proposal applied rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeletePending removes a proposal only while it is pending. sql.ErrNoRows
// means nothing was deleted.
func (r *ScheduleProposalRepository) DeletePending(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedule_proposals WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("delete schedule proposal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete schedule proposal rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListBySession returns proposal summaries newest first.
func (r *ScheduleProposalRepository) ListBySession(ctx context.Context, sessionID string, status models.ProposalStatus) ([]models.ProposalSummary, error) {
	query := `SELECT id, session_id, status, metadata, created_at, applied_at FROM schedule_proposals WHERE session_id = $1`
	args := []interface{}{sessionID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id ASC`
	var list []models.ProposalSummary
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule proposals: %w", err)
	}
	return list, nil
}

// RejectStale marks pending proposals created before cutoff as rejected.
func (r *ScheduleProposalRepository) RejectStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `UPDATE schedule_proposals SET status = 'rejected', updated_at = $2 WHERE status = 'pending' AND created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("reject stale proposals: %w", err)
	}
	return res.RowsAffected()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/workflow"
	"github.com/garyjia/fund-review/internal/infrastructure/persistence/sqlite"
)

const reimbursementColumns = `
	id, application_id, applicant_id, total_amount, approved_amount, comment,
	status, current_step, version, created_at, updated_at`

// ReimbursementRepository implements port.ReimbursementRepository
type ReimbursementRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReimbursementRepository creates a new reimbursement repository
func NewReimbursementRepository(db *sql.DB, logger *zap.Logger) port.ReimbursementRepository {
	return &ReimbursementRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a reimbursement. A second one for the same application is reported as a conflict.
func (r *ReimbursementRepository) Create(ctx context.Context, reimb *entity.Reimbursement) error {
	now := time.Now().UTC()
	if reimb.Version == 0 {
		reimb.Version = 1
	}

	query := `
		INSERT INTO reimbursements (
			application_id, applicant_id, total_amount, approved_amount, comment,
			status, current_step, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		reimb.ApplicationID,
		reimb.ApplicantID,
		reimb.TotalAmount,
		nullFloat(reimb.ApprovedAmount),
		reimb.Comment,
		reimb.Status,
		reimb.CurrentStep,
		reimb.Version,
		now,
		now,
	)
	if sqlite.IsUniqueViolation(err) {
		return entity.Conflict("already_reimbursed", "application %d already has a reimbursement", reimb.ApplicationID)
	}
	if err != nil {
		r.logger.Error("Failed to create reimbursement",
			zap.Int64("application_id", reimb.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to create reimbursement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	reimb.ID = id
	reimb.CreatedAt = now
	reimb.UpdatedAt = now
	return nil
}

// GetByID retrieves a reimbursement by ID, or nil
func (r *ReimbursementRepository) GetByID(ctx context.Context, id int64) (*entity.Reimbursement, error) {
	return r.getOne(ctx, `SELECT `+reimbursementColumns+` FROM reimbursements WHERE id = ?`, id)
}

// GetByApplicationID retrieves the reimbursement of an application, or nil
func (r *ReimbursementRepository) GetByApplicationID(ctx context.Context, applicationID int64) (*entity.Reimbursement, error) {
	return r.getOne(ctx, `SELECT `+reimbursementColumns+` FROM reimbursements WHERE application_id = ?`, applicationID)
}

func (r *ReimbursementRepository) getOne(ctx context.Context, query string, arg int64) (*entity.Reimbursement, error) {
	reimb, err := scanReimbursement(executor(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get reimbursement", zap.Int64("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get reimbursement: %w", err)
	}
	return reimb, nil
}

// Update writes the reimbursement guarded by the version column
func (r *ReimbursementRepository) Update(ctx context.Context, reimb *entity.Reimbursement) error {
	now := time.Now().UTC()
	query := `
		UPDATE reimbursements SET
			total_amount = ?, approved_amount = ?, comment = ?,
			status = ?, current_step = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		reimb.TotalAmount,
		nullFloat(reimb.ApprovedAmount),
		reimb.Comment,
		reimb.Status,
		reimb.CurrentStep,
		now,
		reimb.ID,
		reimb.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update reimbursement", zap.Int64("id", reimb.ID), zap.Error(err))
		return fmt.Errorf("failed to update reimbursement: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entity.Conflict("concurrent_modification", "reimbursement %d was modified concurrently", reimb.ID)
	}

	reimb.Version++
	reimb.UpdatedAt = now
	return nil
}

// Delete removes a reimbursement; items, photos and ledger cascade
func (r *ReimbursementRepository) Delete(ctx context.Context, id int64) error {
	if _, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM reimbursements WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete reimbursement", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete reimbursement: %w", err)
	}
	return nil
}

// ListAtStep returns reimbursements waiting at a step, oldest first
func (r *ReimbursementRepository) ListAtStep(ctx context.Context, step workflow.Step, limit int) ([]*entity.Reimbursement, error) {
	query := `SELECT ` + reimbursementColumns + `
		FROM reimbursements
		WHERE current_step = ? AND status NOT IN (?, ?, ?)
		ORDER BY updated_at ASC, id ASC
		LIMIT ?`
	return r.list(ctx, query, step, workflow.StatusCompleted, workflow.StatusApproved, workflow.StatusRejected, limit)
}

// ListOpen returns every reimbursement still waiting for a reviewer
func (r *ReimbursementRepository) ListOpen(ctx context.Context, limit int) ([]*entity.Reimbursement, error) {
	query := `SELECT ` + reimbursementColumns + `
		FROM reimbursements
		WHERE status NOT IN (?, ?, ?)
		ORDER BY updated_at ASC, id ASC
		LIMIT ?`
	return r.list(ctx, query, workflow.StatusCompleted, workflow.StatusApproved, workflow.StatusRejected, limit)
}

func (r *ReimbursementRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Reimbursement, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reimbursements", zap.Error(err))
		return nil, fmt.Errorf("failed to list reimbursements: %w", err)
	}
	defer rows.Close()

	var result []*entity.Reimbursement
	for rows.Next() {
		reimb, err := scanReimbursement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reimbursement: %w", err)
		}
		result = append(result, reimb)
	}

	return result, rows.Err()
}

func scanReimbursement(s rowScanner) (*entity.Reimbursement, error) {
	var (
		reimb    entity.Reimbursement
		approved sql.NullFloat64
	)

	err := s.Scan(
		&reimb.ID, &reimb.ApplicationID, &reimb.ApplicantID, &reimb.TotalAmount, &approved, &reimb.Comment,
		&reimb.Status, &reimb.CurrentStep, &reimb.Version, &reimb.CreatedAt, &reimb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	reimb.ApprovedAmount = floatPtr(approved)
	return &reimb, nil
}

// Verify interface compliance
var _ port.ReimbursementRepository = (*ReimbursementRepository)(nil)

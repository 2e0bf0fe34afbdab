package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/entity"
)

// AssignmentRepository implements port.AssignmentRepository
type AssignmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new teacher assignment repository
func NewAssignmentRepository(db *sql.DB, logger *zap.Logger) port.AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// Assign binds the teacher to the organization, replacing any previous teacher
func (r *AssignmentRepository) Assign(ctx context.Context, assignment *entity.TeacherAssignment) error {
	assignment.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO teacher_assignments (org_id, teacher_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(org_id) DO UPDATE SET
			teacher_id = excluded.teacher_id,
			created_at = excluded.created_at
	`

	if _, err := executor(ctx, r.db).ExecContext(ctx, query, assignment.OrgID, assignment.TeacherID, assignment.CreatedAt); err != nil {
		r.logger.Error("Failed to assign teacher",
			zap.Int64("org_id", assignment.OrgID),
			zap.Int64("teacher_id", assignment.TeacherID),
			zap.Error(err))
		return fmt.Errorf("failed to assign teacher: %w", err)
	}
	return nil
}

// GetByOrgID returns the organization's current assignment, or nil
func (r *AssignmentRepository) GetByOrgID(ctx context.Context, orgID int64) (*entity.TeacherAssignment, error) {
	query := `SELECT org_id, teacher_id, created_at FROM teacher_assignments WHERE org_id = ?`

	var a entity.TeacherAssignment
	err := executor(ctx, r.db).QueryRowContext(ctx, query, orgID).Scan(&a.OrgID, &a.TeacherID, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get teacher assignment", zap.Int64("org_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to get teacher assignment: %w", err)
	}
	return &a, nil
}

// IsAssigned reports whether the teacher currently covers the organization
func (r *AssignmentRepository) IsAssigned(ctx context.Context, teacherID, orgID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM teacher_assignments WHERE org_id = ? AND teacher_id = ?)`

	var exists bool
	if err := executor(ctx, r.db).QueryRowContext(ctx, query, orgID, teacherID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check teacher assignment", zap.Int64("org_id", orgID), zap.Error(err))
		return false, fmt.Errorf("failed to check teacher assignment: %w", err)
	}
	return exists, nil
}

// Verify interface compliance
var _ port.AssignmentRepository = (*AssignmentRepository)(nil)

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

const applicationColumns = `
	a.id, a.form_number, a.applicant_id, a.org_id, a.type,
	a.title, a.leader_class, a.leader_name, a.co_organizer, a.start_at, a.end_at,
	a.expected_people, a.location, a.target, a.purpose,
	a.total_amount, a.amount_approved, a.status, a.current_step,
	a.last_reject_step, a.bypass_teacher, a.version, a.created_at, a.updated_at`

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new application. A taken form number is reported as a conflict.
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.Application) error {
	now := time.Now().UTC()
	if app.Version == 0 {
		app.Version = 1
	}

	query := `
		INSERT INTO applications (
			form_number, applicant_id, org_id, type,
			title, leader_class, leader_name, co_organizer, start_at, end_at,
			expected_people, location, target, purpose,
			total_amount, amount_approved, status, current_step,
			last_reject_step, bypass_teacher, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	d := app.Details
	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		app.FormNumber, app.ApplicantID, app.OrgID, app.Kind,
		d.Title, d.LeaderClass, d.LeaderName, d.CoOrganizer, d.StartAt, d.EndAt,
		d.ExpectedPeople, d.Location, d.Target, d.Purpose,
		app.TotalAmount, nullFloat(app.AmountApproved), app.Status, app.CurrentStep,
		nullStep(app.LastRejectStep), app.BypassTeacher, app.Version, now, now,
	)
	if sqlite.IsUniqueViolation(err) {
		return entity.Conflict("duplicate_form_number", "form number %s is already taken", app.FormNumber)
	}
	if err != nil {
		r.logger.Error("Failed to create application", zap.String("form_number", app.FormNumber), zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	app.ID = id
	app.CreatedAt = now
	app.UpdatedAt = now
	return nil
}

// GetByID retrieves an application by ID, or nil when it does not exist
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications a WHERE a.id = ?`

	app, err := scanApplication(executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get application by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// Update writes content and workflow fields guarded by the version column
func (r *ApplicationRepository) Update(ctx context.Context, app *entity.Application) error {
	now := time.Now().UTC()
	query := `
		UPDATE applications SET
			title = ?, leader_class = ?, leader_name = ?, co_organizer = ?,
			start_at = ?, end_at = ?, expected_people = ?, location = ?, target = ?, purpose = ?,
			total_amount = ?, amount_approved = ?, status = ?, current_step = ?,
			last_reject_step = ?, bypass_teacher = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	d := app.Details
	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		d.Title, d.LeaderClass, d.LeaderName, d.CoOrganizer,
		d.StartAt, d.EndAt, d.ExpectedPeople, d.Location, d.Target, d.Purpose,
		app.TotalAmount, nullFloat(app.AmountApproved), app.Status, app.CurrentStep,
		nullStep(app.LastRejectStep), app.BypassTeacher,
		now, app.ID, app.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update application", zap.Int64("id", app.ID), zap.Error(err))
		return fmt.Errorf("failed to update application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entity.Conflict("concurrent_modification", "application %d was modified concurrently", app.ID)
	}

	app.Version++
	app.UpdatedAt = now
	return nil
}

// Delete removes an application; line items, ledger and reimbursement cascade
func (r *ApplicationRepository) Delete(ctx context.Context, id int64) error {
	if _, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete application", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete application: %w", err)
	}
	return nil
}

// ListByApplicant returns the applicant's applications, newest first
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID int64) ([]*entity.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM applications a
		WHERE a.applicant_id = ?
		ORDER BY a.created_at DESC, a.id DESC`
	return r.list(ctx, query, applicantID)
}

// ListAtStep returns applications waiting at a step, oldest first
func (r *ApplicationRepository) ListAtStep(ctx context.Context, step workflow.Step, limit int) ([]*entity.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM applications a
		WHERE a.current_step = ?
		ORDER BY a.updated_at ASC, a.id ASC
		LIMIT ?`
	return r.list(ctx, query, step, limit)
}

// ListForTeacher returns teacher-step applications of the organizations the teacher covers
func (r *ApplicationRepository) ListForTeacher(ctx context.Context, teacherID int64, limit int) ([]*entity.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM applications a
		JOIN teacher_assignments t ON t.org_id = a.org_id
		WHERE t.teacher_id = ? AND a.current_step = ?
		ORDER BY a.updated_at ASC, a.id ASC
		LIMIT ?`
	return r.list(ctx, query, teacherID, workflow.StepDeptTeacher, limit)
}

// ListRecent returns the most recently created applications
func (r *ApplicationRepository) ListRecent(ctx context.Context, limit int) ([]*entity.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM applications a
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ?`
	return r.list(ctx, query, limit)
}

func (r *ApplicationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Application, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}

func scanApplication(s rowScanner) (*entity.Application, error) {
	var (
		app            entity.Application
		amountApproved sql.NullFloat64
		lastReject     sql.NullString
	)

	err := s.Scan(
		&app.ID, &app.FormNumber, &app.ApplicantID, &app.OrgID, &app.Kind,
		&app.Details.Title, &app.Details.LeaderClass, &app.Details.LeaderName, &app.Details.CoOrganizer,
		&app.Details.StartAt, &app.Details.EndAt,
		&app.Details.ExpectedPeople, &app.Details.Location, &app.Details.Target, &app.Details.Purpose,
		&app.TotalAmount, &amountApproved, &app.Status, &app.CurrentStep,
		&lastReject, &app.BypassTeacher, &app.Version, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.AmountApproved = floatPtr(amountApproved)
	app.LastRejectStep = workflow.Step(lastReject.String)
	return &app, nil
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)

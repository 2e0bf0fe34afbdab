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

// ReviewRepository implements port.ReviewRepository. Entries are never updated or deleted individually.
type ReviewRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReviewRepository creates a new review ledger repository
func NewReviewRepository(db *sql.DB, logger *zap.Logger) port.ReviewRepository {
	return &ReviewRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a ledger entry
func (r *ReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reviews (
			application_id, reviewer_id, reviewer_role, step, decision,
			amount_approved, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		review.ApplicationID,
		review.ReviewerID,
		review.ReviewerRole,
		review.Step,
		review.Decision,
		nullFloat(review.Amount),
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create review",
			zap.Int64("application_id", review.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to create review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	review.ID = id
	return nil
}

// GetByApplicationID returns the application's ledger in chronological order
func (r *ReviewRepository) GetByApplicationID(ctx context.Context, applicationID int64) ([]*entity.Review, error) {
	query := `
		SELECT id, application_id, reviewer_id, reviewer_role, step, decision,
			amount_approved, comment, created_at
		FROM reviews
		WHERE application_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		r.logger.Error("Failed to get reviews", zap.Int64("application_id", applicationID), zap.Error(err))
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*entity.Review
	for rows.Next() {
		var (
			review entity.Review
			amount sql.NullFloat64
		)
		if err := rows.Scan(
			&review.ID, &review.ApplicationID, &review.ReviewerID, &review.ReviewerRole,
			&review.Step, &review.Decision, &amount, &review.Comment, &review.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		review.Amount = floatPtr(amount)
		reviews = append(reviews, &review)
	}

	return reviews, rows.Err()
}

// HasReviewed reports whether the reviewer has any ledger entry on the application
func (r *ReviewRepository) HasReviewed(ctx context.Context, applicationID, reviewerID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM reviews WHERE application_id = ? AND reviewer_id = ?)`

	var exists bool
	if err := executor(ctx, r.db).QueryRowContext(ctx, query, applicationID, reviewerID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check review history",
			zap.Int64("application_id", applicationID),
			zap.Int64("reviewer_id", reviewerID),
			zap.Error(err))
		return false, fmt.Errorf("failed to check review history: %w", err)
	}
	return exists, nil
}

// ListByReviewer returns the reviewer's most recent decisions with their applications
func (r *ReviewRepository) ListByReviewer(ctx context.Context, reviewerID int64, limit int) ([]*entity.ReviewSummary, error) {
	query := `
		SELECT rv.id, rv.application_id, rv.reviewer_id, rv.reviewer_role, rv.step, rv.decision,
			rv.amount_approved, rv.comment, rv.created_at,
			a.form_number, a.title, a.current_step, a.status
		FROM reviews rv
		JOIN applications a ON a.id = rv.application_id
		WHERE rv.reviewer_id = ?
		ORDER BY rv.created_at DESC, rv.id DESC
		LIMIT ?
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, reviewerID, limit)
	if err != nil {
		r.logger.Error("Failed to list reviews by reviewer", zap.Int64("reviewer_id", reviewerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var summaries []*entity.ReviewSummary
	for rows.Next() {
		var (
			s      entity.ReviewSummary
			amount sql.NullFloat64
		)
		if err := rows.Scan(
			&s.ID, &s.ApplicationID, &s.ReviewerID, &s.ReviewerRole, &s.Step, &s.Decision,
			&amount, &s.Comment, &s.CreatedAt,
			&s.FormNumber, &s.Title, &s.CurrentStep, &s.CurrentStatus,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review summary: %w", err)
		}
		s.Amount = floatPtr(amount)
		summaries = append(summaries, &s)
	}

	return summaries, rows.Err()
}

// Verify interface compliance
var _ port.ReviewRepository = (*ReviewRepository)(nil)

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

// ReimbursementReviewRepository implements port.ReimbursementReviewRepository
type ReimbursementReviewRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReimbursementReviewRepository creates a new reimbursement ledger repository
func NewReimbursementReviewRepository(db *sql.DB, logger *zap.Logger) port.ReimbursementReviewRepository {
	return &ReimbursementReviewRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a ledger entry
func (r *ReimbursementReviewRepository) Create(ctx context.Context, review *entity.ReimbursementReview) error {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reimbursement_reviews (reimbursement_id, reviewer_id, decision, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		review.ReimbursementID,
		review.ReviewerID,
		review.Decision,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create reimbursement review",
			zap.Int64("reimbursement_id", review.ReimbursementID),
			zap.Error(err))
		return fmt.Errorf("failed to create reimbursement review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	review.ID = id
	return nil
}

// GetByReimbursementID returns the reimbursement's ledger in chronological order
func (r *ReimbursementReviewRepository) GetByReimbursementID(ctx context.Context, reimbursementID int64) ([]*entity.ReimbursementReview, error) {
	query := `
		SELECT id, reimbursement_id, reviewer_id, decision, comment, created_at
		FROM reimbursement_reviews
		WHERE reimbursement_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, reimbursementID)
	if err != nil {
		r.logger.Error("Failed to get reimbursement reviews", zap.Int64("reimbursement_id", reimbursementID), zap.Error(err))
		return nil, fmt.Errorf("failed to get reimbursement reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*entity.ReimbursementReview
	for rows.Next() {
		var review entity.ReimbursementReview
		if err := rows.Scan(&review.ID, &review.ReimbursementID, &review.ReviewerID, &review.Decision, &review.Comment, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reimbursement review: %w", err)
		}
		reviews = append(reviews, &review)
	}

	return reviews, rows.Err()
}

// Verify interface compliance
var _ port.ReimbursementReviewRepository = (*ReimbursementReviewRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/entity"
)

// ReceiptRepository implements port.ReceiptRepository
type ReceiptRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt item repository
func NewReceiptRepository(db *sql.DB, logger *zap.Logger) port.ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceForReimbursement swaps the reimbursement's receipt items for the given list
func (r *ReceiptRepository) ReplaceForReimbursement(ctx context.Context, reimbursementID int64, items []entity.ReceiptItem) error {
	exec := executor(ctx, r.db)

	if _, err := exec.ExecContext(ctx, `DELETE FROM reimbursement_items WHERE reimbursement_id = ?`, reimbursementID); err != nil {
		r.logger.Error("Failed to clear receipt items", zap.Int64("reimbursement_id", reimbursementID), zap.Error(err))
		return fmt.Errorf("failed to clear receipt items: %w", err)
	}

	query := `
		INSERT INTO reimbursement_items (reimbursement_id, name, purpose, amount, receipt_path)
		VALUES (?, ?, ?, ?, ?)
	`
	for i := range items {
		result, err := exec.ExecContext(ctx, query, reimbursementID, items[i].Name, items[i].Purpose, items[i].Amount, items[i].ReceiptPath)
		if err != nil {
			r.logger.Error("Failed to insert receipt item", zap.Int64("reimbursement_id", reimbursementID), zap.Error(err))
			return fmt.Errorf("failed to insert receipt item: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			items[i].ID = id
			items[i].ReimbursementID = reimbursementID
		}
	}

	return nil
}

// GetByReimbursementID returns the reimbursement's receipt items in entry order
func (r *ReceiptRepository) GetByReimbursementID(ctx context.Context, reimbursementID int64) ([]entity.ReceiptItem, error) {
	query := `
		SELECT id, reimbursement_id, name, purpose, amount, receipt_path
		FROM reimbursement_items
		WHERE reimbursement_id = ?
		ORDER BY id ASC
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, reimbursementID)
	if err != nil {
		r.logger.Error("Failed to get receipt items", zap.Int64("reimbursement_id", reimbursementID), zap.Error(err))
		return nil, fmt.Errorf("failed to get receipt items: %w", err)
	}
	defer rows.Close()

	var items []entity.ReceiptItem
	for rows.Next() {
		var item entity.ReceiptItem
		if err := rows.Scan(&item.ID, &item.ReimbursementID, &item.Name, &item.Purpose, &item.Amount, &item.ReceiptPath); err != nil {
			return nil, fmt.Errorf("failed to scan receipt item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Verify interface compliance
var _ port.ReceiptRepository = (*ReceiptRepository)(nil)

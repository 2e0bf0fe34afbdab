package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/entity"
)

// LineItemRepository implements port.LineItemRepository
type LineItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLineItemRepository creates a new line item repository
func NewLineItemRepository(db *sql.DB, logger *zap.Logger) port.LineItemRepository {
	return &LineItemRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceForApplication swaps the application's line items for the given list
func (r *LineItemRepository) ReplaceForApplication(ctx context.Context, applicationID int64, items []entity.LineItem) error {
	exec := executor(ctx, r.db)

	if _, err := exec.ExecContext(ctx, `DELETE FROM line_items WHERE application_id = ?`, applicationID); err != nil {
		r.logger.Error("Failed to clear line items", zap.Int64("application_id", applicationID), zap.Error(err))
		return fmt.Errorf("failed to clear line items: %w", err)
	}

	query := `INSERT INTO line_items (application_id, position, name, purpose, amount) VALUES (?, ?, ?, ?, ?)`
	for i, item := range items {
		if _, err := exec.ExecContext(ctx, query, applicationID, i, item.Name, item.Purpose, item.Amount); err != nil {
			r.logger.Error("Failed to insert line item", zap.Int64("application_id", applicationID), zap.Error(err))
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}

	return nil
}

// GetByApplicationID returns the application's line items in entry order
func (r *LineItemRepository) GetByApplicationID(ctx context.Context, applicationID int64) ([]entity.LineItem, error) {
	query := `
		SELECT id, application_id, position, name, purpose, amount
		FROM line_items
		WHERE application_id = ?
		ORDER BY position ASC
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		r.logger.Error("Failed to get line items", zap.Int64("application_id", applicationID), zap.Error(err))
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	defer rows.Close()

	var items []entity.LineItem
	for rows.Next() {
		var item entity.LineItem
		if err := rows.Scan(&item.ID, &item.ApplicationID, &item.Position, &item.Name, &item.Purpose, &item.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Verify interface compliance
var _ port.LineItemRepository = (*LineItemRepository)(nil)

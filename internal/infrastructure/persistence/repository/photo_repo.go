package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/entity"
)

// PhotoRepository implements port.PhotoRepository
type PhotoRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPhotoRepository creates a new reimbursement photo repository
func NewPhotoRepository(db *sql.DB, logger *zap.Logger) port.PhotoRepository {
	return &PhotoRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a stored photo
func (r *PhotoRepository) Create(ctx context.Context, photo *entity.Photo) error {
	query := `INSERT INTO reimbursement_photos (reimbursement_id, type, path) VALUES (?, ?, ?)`

	result, err := executor(ctx, r.db).ExecContext(ctx, query, photo.ReimbursementID, photo.Type, photo.Path)
	if err != nil {
		r.logger.Error("Failed to create photo",
			zap.Int64("reimbursement_id", photo.ReimbursementID),
			zap.String("type", string(photo.Type)),
			zap.Error(err))
		return fmt.Errorf("failed to create photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	photo.ID = id
	return nil
}

// GetByID retrieves a photo by ID, or nil
func (r *PhotoRepository) GetByID(ctx context.Context, id int64) (*entity.Photo, error) {
	query := `SELECT id, reimbursement_id, type, path FROM reimbursement_photos WHERE id = ?`

	var photo entity.Photo
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&photo.ID, &photo.ReimbursementID, &photo.Type, &photo.Path)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get photo", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return &photo, nil
}

// GetByReimbursementID returns every photo of a reimbursement
func (r *PhotoRepository) GetByReimbursementID(ctx context.Context, reimbursementID int64) ([]*entity.Photo, error) {
	query := `
		SELECT id, reimbursement_id, type, path
		FROM reimbursement_photos
		WHERE reimbursement_id = ?
		ORDER BY type ASC, id ASC
	`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, reimbursementID)
	if err != nil {
		r.logger.Error("Failed to get photos", zap.Int64("reimbursement_id", reimbursementID), zap.Error(err))
		return nil, fmt.Errorf("failed to get photos: %w", err)
	}
	defer rows.Close()

	var photos []*entity.Photo
	for rows.Next() {
		var photo entity.Photo
		if err := rows.Scan(&photo.ID, &photo.ReimbursementID, &photo.Type, &photo.Path); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, &photo)
	}

	return photos, rows.Err()
}

// DeleteByType removes every photo of one type from a reimbursement
func (r *PhotoRepository) DeleteByType(ctx context.Context, reimbursementID int64, photoType entity.PhotoType) error {
	query := `DELETE FROM reimbursement_photos WHERE reimbursement_id = ? AND type = ?`

	if _, err := executor(ctx, r.db).ExecContext(ctx, query, reimbursementID, photoType); err != nil {
		r.logger.Error("Failed to delete photos",
			zap.Int64("reimbursement_id", reimbursementID),
			zap.String("type", string(photoType)),
			zap.Error(err))
		return fmt.Errorf("failed to delete photos: %w", err)
	}
	return nil
}

// CountByType counts a reimbursement's photos per type
func (r *PhotoRepository) CountByType(ctx context.Context, reimbursementID int64) (map[entity.PhotoType]int, error) {
	query := `SELECT type, COUNT(*) FROM reimbursement_photos WHERE reimbursement_id = ? GROUP BY type`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, reimbursementID)
	if err != nil {
		r.logger.Error("Failed to count photos", zap.Int64("reimbursement_id", reimbursementID), zap.Error(err))
		return nil, fmt.Errorf("failed to count photos: %w", err)
	}
	defer rows.Close()

	counts := map[entity.PhotoType]int{}
	for rows.Next() {
		var (
			photoType entity.PhotoType
			n         int
		)
		if err := rows.Scan(&photoType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan photo count: %w", err)
		}
		counts[photoType] = n
	}

	return counts, rows.Err()
}

// Verify interface compliance
var _ port.PhotoRepository = (*PhotoRepository)(nil)

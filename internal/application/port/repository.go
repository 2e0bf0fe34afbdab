package port

import (
	"context"

	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/workflow"
)

// ApplicationRepository defines persistence operations for Application
type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error
	GetByID(ctx context.Context, id int64) (*entity.Application, error)
	// Update writes the application if its stored version still matches app.Version,
	// returning entity.ErrConflict otherwise. On success app.Version is bumped.
	Update(ctx context.Context, app *entity.Application) error
	Delete(ctx context.Context, id int64) error
	ListByApplicant(ctx context.Context, applicantID int64) ([]*entity.Application, error)
	ListAtStep(ctx context.Context, step workflow.Step, limit int) ([]*entity.Application, error)
	ListForTeacher(ctx context.Context, teacherID int64, limit int) ([]*entity.Application, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.Application, error)
}

// LineItemRepository defines persistence operations for application line items
type LineItemRepository interface {
	ReplaceForApplication(ctx context.Context, applicationID int64, items []entity.LineItem) error
	GetByApplicationID(ctx context.Context, applicationID int64) ([]entity.LineItem, error)
}

// ReviewRepository is the append-only application decision ledger
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByApplicationID(ctx context.Context, applicationID int64) ([]*entity.Review, error)
	HasReviewed(ctx context.Context, applicationID, reviewerID int64) (bool, error)
	ListByReviewer(ctx context.Context, reviewerID int64, limit int) ([]*entity.ReviewSummary, error)
}

// AssignmentRepository defines persistence operations for teacher assignments
type AssignmentRepository interface {
	// Assign binds the teacher to the organization, replacing any prior teacher
	Assign(ctx context.Context, assignment *entity.TeacherAssignment) error
	GetByOrgID(ctx context.Context, orgID int64) (*entity.TeacherAssignment, error)
	IsAssigned(ctx context.Context, teacherID, orgID int64) (bool, error)
}

// ReimbursementRepository defines persistence operations for Reimbursement
type ReimbursementRepository interface {
	Create(ctx context.Context, r *entity.Reimbursement) error
	GetByID(ctx context.Context, id int64) (*entity.Reimbursement, error)
	GetByApplicationID(ctx context.Context, applicationID int64) (*entity.Reimbursement, error)
	// Update follows the same optimistic version rule as ApplicationRepository.Update
	Update(ctx context.Context, r *entity.Reimbursement) error
	Delete(ctx context.Context, id int64) error
	ListAtStep(ctx context.Context, step workflow.Step, limit int) ([]*entity.Reimbursement, error)
	ListOpen(ctx context.Context, limit int) ([]*entity.Reimbursement, error)
}

// ReceiptRepository defines persistence operations for reimbursement receipt items
type ReceiptRepository interface {
	ReplaceForReimbursement(ctx context.Context, reimbursementID int64, items []entity.ReceiptItem) error
	GetByReimbursementID(ctx context.Context, reimbursementID int64) ([]entity.ReceiptItem, error)
}

// PhotoRepository defines persistence operations for reimbursement photos
type PhotoRepository interface {
	Create(ctx context.Context, photo *entity.Photo) error
	GetByID(ctx context.Context, id int64) (*entity.Photo, error)
	GetByReimbursementID(ctx context.Context, reimbursementID int64) ([]*entity.Photo, error)
	DeleteByType(ctx context.Context, reimbursementID int64, photoType entity.PhotoType) error
	CountByType(ctx context.Context, reimbursementID int64) (map[entity.PhotoType]int, error)
}

// ReimbursementReviewRepository is the append-only reimbursement decision ledger
type ReimbursementReviewRepository interface {
	Create(ctx context.Context, review *entity.ReimbursementReview) error
	GetByReimbursementID(ctx context.Context, reimbursementID int64) ([]*entity.ReimbursementReview, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

package entity

import (
	"time"

	"github.com/garyjia/fund-review/internal/domain/workflow"
)

// PhotoType separates activity evidence from feedback evidence
type PhotoType string

const (
	PhotoActivity PhotoType = "activity"
	PhotoFeedback PhotoType = "feedback"
)

const (
	// MinActivityPhotos is the fewest activity photos a reimbursement may carry
	MinActivityPhotos = 2
	// MinFeedbackPhotos is the fewest feedback photos a reimbursement may carry
	MinFeedbackPhotos = 1
)

// Reimbursement settles the expenses of an approved application
type Reimbursement struct {
	ID             int64           `json:"id"`
	ApplicationID  int64           `json:"application_id"`
	ApplicantID    int64           `json:"applicant_id"`
	TotalAmount    float64         `json:"total_amount"`
	ApprovedAmount *float64        `json:"approved_amount,omitempty"`
	Comment        string          `json:"comment"`
	Status         workflow.Status `json:"status"`
	CurrentStep    workflow.Step   `json:"current_step"`
	Version        int64           `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// State returns the workflow position of the reimbursement
func (r *Reimbursement) State() workflow.ReimbursementState {
	return workflow.ReimbursementState{Step: r.CurrentStep, Status: r.Status}
}

// ApplyState copies a computed workflow position back onto the reimbursement
func (r *Reimbursement) ApplyState(s workflow.ReimbursementState) {
	r.CurrentStep = s.Step
	r.Status = s.Status
}

// ReceiptItem is one settled expense line
type ReceiptItem struct {
	ID              int64   `json:"id"`
	ReimbursementID int64   `json:"reimbursement_id"`
	Name            string  `json:"item_name"`
	Purpose         string  `json:"purpose"`
	Amount          float64 `json:"amount"`
	ReceiptPath     string  `json:"receipt_path,omitempty"`
}

// Photo is a stored image attached to a reimbursement
type Photo struct {
	ID              int64     `json:"id"`
	ReimbursementID int64     `json:"reimbursement_id"`
	Type            PhotoType `json:"type"`
	Path            string    `json:"path"`
}

// ReimbursementReview is an immutable ledger entry for a reimbursement decision
type ReimbursementReview struct {
	ID              int64             `json:"id"`
	ReimbursementID int64             `json:"reimbursement_id"`
	ReviewerID      int64             `json:"reviewer_id"`
	Decision        workflow.Decision `json:"decision"`
	Comment         string            `json:"comment"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Upload is an uploaded file as received at the boundary
type Upload struct {
	FileName string
	Content  []byte
}

// SumReceiptItems totals the settled amounts
func SumReceiptItems(items []ReceiptItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount
	}
	return total
}

// CheckPhotoCounts enforces the evidence minimums on effective photo counts
func CheckPhotoCounts(activity, feedback int) error {
	if activity < MinActivityPhotos || feedback < MinFeedbackPhotos {
		return Validation("insufficient_photos",
			"at least %d activity photos and %d feedback photo are required (got %d and %d)",
			MinActivityPhotos, MinFeedbackPhotos, activity, feedback)
	}
	return nil
}

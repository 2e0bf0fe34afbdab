package entity

import (
	"time"

	"github.com/garyjia/fund-review/internal/domain/workflow"
)

// ActivityDetails describes the activity a fund application pays for
type ActivityDetails struct {
	Title          string `json:"title" validate:"required,max=200"`
	LeaderClass    string `json:"leader_class" validate:"max=100"`
	LeaderName     string `json:"leader_name" validate:"max=100"`
	CoOrganizer    string `json:"co_organizer" validate:"max=200"`
	StartAt        string `json:"start_at" validate:"max=40"`
	EndAt          string `json:"end_at" validate:"max=40"`
	ExpectedPeople int    `json:"expected_people" validate:"gte=0"`
	Location       string `json:"location" validate:"max=200"`
	Target         string `json:"target" validate:"max=200"`
	Purpose        string `json:"purpose" validate:"max=2000"`
}

// Application is one funding request moving through the approval chain
type Application struct {
	ID             int64           `json:"id"`
	FormNumber     string          `json:"form_number"`
	ApplicantID    int64           `json:"applicant_id"`
	OrgID          int64           `json:"org_id"`
	Kind           workflow.Kind   `json:"type"`
	Details        ActivityDetails `json:"details"`
	TotalAmount    float64         `json:"total_amount"`
	AmountApproved *float64        `json:"amount_approved,omitempty"`
	Status         workflow.Status `json:"status"`
	CurrentStep    workflow.Step   `json:"current_step"`
	LastRejectStep workflow.Step   `json:"last_reject_step,omitempty"`
	BypassTeacher  bool            `json:"bypass_teacher"`
	Version        int64           `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// State returns the workflow position of the application
func (a *Application) State() workflow.ApplicationState {
	return workflow.ApplicationState{
		Kind:           a.Kind,
		Step:           a.CurrentStep,
		Status:         a.Status,
		LastRejectStep: a.LastRejectStep,
		BypassTeacher:  a.BypassTeacher,
	}
}

// ApplyState copies a computed workflow position back onto the application
func (a *Application) ApplyState(s workflow.ApplicationState) {
	a.CurrentStep = s.Step
	a.Status = s.Status
	a.LastRejectStep = s.LastRejectStep
	a.BypassTeacher = s.BypassTeacher
}

// LineItem is one requested budget line of an application
type LineItem struct {
	ID            int64   `json:"id"`
	ApplicationID int64   `json:"application_id"`
	Position      int     `json:"position"`
	Name          string  `json:"name"`
	Purpose       string  `json:"purpose"`
	Amount        float64 `json:"amount"`
}

// Review is an immutable ledger entry for an application decision
type Review struct {
	ID            int64             `json:"id"`
	ApplicationID int64             `json:"application_id"`
	ReviewerID    int64             `json:"reviewer_id"`
	ReviewerRole  workflow.Role     `json:"reviewer_role"`
	Step          workflow.Step     `json:"step"`
	Decision      workflow.Decision `json:"decision"`
	Amount        *float64          `json:"amount_approved,omitempty"`
	Comment       string            `json:"comment"`
	CreatedAt     time.Time         `json:"created_at"`
}

// TeacherAssignment binds a department teacher to the organization they review for
type TeacherAssignment struct {
	TeacherID int64     `json:"teacher_id"`
	OrgID     int64     `json:"org_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SumLineItems totals the requested amounts
func SumLineItems(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount
	}
	return total
}

// ReviewSummary is a ledger entry joined with the application it concerns
type ReviewSummary struct {
	Review
	FormNumber    string          `json:"form_number"`
	Title         string          `json:"title"`
	CurrentStep   workflow.Step   `json:"current_step"`
	CurrentStatus workflow.Status `json:"current_status"`
}

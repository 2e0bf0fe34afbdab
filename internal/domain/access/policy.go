package access

import (
	"context"
	"fmt"

	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/workflow"
)

// AssignmentLookup answers whether a teacher currently reviews for an organization
type AssignmentLookup interface {
	IsAssigned(ctx context.Context, teacherID, orgID int64) (bool, error)
}

// ReviewLookup answers whether an actor has recorded a decision on an application
type ReviewLookup interface {
	HasReviewed(ctx context.Context, applicationID, reviewerID int64) (bool, error)
}

// Policy decides who may act on or read a document at its current step.
// Callers evaluate it inside the transaction that performs the mutation.
type Policy struct {
	assignments AssignmentLookup
	reviews     ReviewLookup
}

// NewPolicy creates a policy backed by the given lookups
func NewPolicy(assignments AssignmentLookup, reviews ReviewLookup) *Policy {
	return &Policy{assignments: assignments, reviews: reviews}
}

// CanReviewApplication reports whether the actor may decide on the application now
func (p *Policy) CanReviewApplication(ctx context.Context, actor entity.Actor, app *entity.Application) (bool, error) {
	switch actor.Role {
	case workflow.RoleAdmin:
		return true, nil
	case workflow.RoleOrgTeacher:
		if app.CurrentStep != workflow.StepDeptTeacher {
			return false, nil
		}
		assigned, err := p.assignments.IsAssigned(ctx, actor.ID, app.OrgID)
		if err != nil {
			return false, fmt.Errorf("failed to check teacher assignment: %w", err)
		}
		return assigned, nil
	case workflow.RoleParliamentChair, workflow.RoleUnionPresident, workflow.RoleInstructor:
		return app.CurrentStep == workflow.Step(actor.Role), nil
	default:
		return false, nil
	}
}

// CanViewApplication reports whether the actor may read the application
func (p *Policy) CanViewApplication(ctx context.Context, actor entity.Actor, app *entity.Application) (bool, error) {
	if actor.IsAdmin() || app.ApplicantID == actor.ID {
		return true, nil
	}

	canReview, err := p.CanReviewApplication(ctx, actor, app)
	if err != nil || canReview {
		return canReview, err
	}

	reviewed, err := p.reviews.HasReviewed(ctx, app.ID, actor.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check review history: %w", err)
	}
	return reviewed, nil
}

// CanEditApplication reports whether the actor may change the application's content
func (p *Policy) CanEditApplication(actor entity.Actor, app *entity.Application) bool {
	if actor.IsAdmin() {
		return true
	}
	return app.ApplicantID == actor.ID && app.Status == workflow.StatusRejected
}

// reimbursementReviewers are the roles that sign off reimbursements, each at its own step
var reimbursementReviewers = map[workflow.Role]bool{
	workflow.RoleUnionFinance:    true,
	workflow.RoleUnionTreasurer:  true,
	workflow.RoleUnionPresident:  true,
	workflow.RoleParliamentChair: true,
}

// CanReviewReimbursement reports whether the actor may decide on the reimbursement now
func (p *Policy) CanReviewReimbursement(actor entity.Actor, r *entity.Reimbursement) bool {
	if actor.IsAdmin() {
		return true
	}
	return reimbursementReviewers[actor.Role] && r.CurrentStep == workflow.Step(actor.Role)
}

// CanViewReimbursement reports whether the actor may read the reimbursement
func (p *Policy) CanViewReimbursement(actor entity.Actor, r *entity.Reimbursement) bool {
	return actor.IsAdmin() || r.ApplicantID == actor.ID || reimbursementReviewers[actor.Role]
}

// CanEditReimbursement reports whether the actor may correct the reimbursement
func (p *Policy) CanEditReimbursement(actor entity.Actor, r *entity.Reimbursement) bool {
	return r.ApplicantID == actor.ID && r.Status == workflow.StatusRejected
}

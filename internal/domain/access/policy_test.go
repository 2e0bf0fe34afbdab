package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/workflow"
)

type stubAssignments map[int64]int64 // org -> teacher

func (s stubAssignments) IsAssigned(_ context.Context, teacherID, orgID int64) (bool, error) {
	return s[orgID] == teacherID, nil
}

type stubReviews map[int64]bool // reviewer -> reviewed

func (s stubReviews) HasReviewed(_ context.Context, _ int64, reviewerID int64) (bool, error) {
	return s[reviewerID], nil
}

type failingLookup struct{}

func (failingLookup) IsAssigned(context.Context, int64, int64) (bool, error) {
	return false, errors.New("db down")
}

func (failingLookup) HasReviewed(context.Context, int64, int64) (bool, error) {
	return false, errors.New("db down")
}

func TestPolicy_CanReviewApplication(t *testing.T) {
	policy := NewPolicy(stubAssignments{7: 20}, stubReviews{})
	ctx := context.Background()

	tests := []struct {
		name     string
		actor    entity.Actor
		step     workflow.Step
		expected bool
	}{
		{"assigned teacher at teacher step", entity.Actor{ID: 20, Role: workflow.RoleOrgTeacher}, workflow.StepDeptTeacher, true},
		{"unassigned teacher", entity.Actor{ID: 21, Role: workflow.RoleOrgTeacher}, workflow.StepDeptTeacher, false},
		{"assigned teacher after their turn", entity.Actor{ID: 20, Role: workflow.RoleOrgTeacher}, workflow.StepParliamentChair, false},
		{"chair at chair step", entity.Actor{ID: 2, Role: workflow.RoleParliamentChair}, workflow.StepParliamentChair, true},
		{"chair at president step", entity.Actor{ID: 2, Role: workflow.RoleParliamentChair}, workflow.StepUnionPresident, false},
		{"president at president step", entity.Actor{ID: 3, Role: workflow.RoleUnionPresident}, workflow.StepUnionPresident, true},
		{"instructor at instructor step", entity.Actor{ID: 4, Role: workflow.RoleInstructor}, workflow.StepInstructor, true},
		{"instructor on rejected document", entity.Actor{ID: 4, Role: workflow.RoleInstructor}, workflow.StepRejected, false},
		{"admin anywhere", entity.Actor{ID: 1, Role: workflow.RoleAdmin}, workflow.StepCompleted, true},
		{"finance never reviews applications", entity.Actor{ID: 5, Role: workflow.RoleUnionFinance}, workflow.StepUnionPresident, false},
		{"applicant role", entity.Actor{ID: 9, Role: workflow.RoleOrg}, workflow.StepDeptTeacher, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &entity.Application{ID: 1, OrgID: 7, ApplicantID: 9, CurrentStep: tt.step}
			got, err := policy.CanReviewApplication(ctx, tt.actor, app)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPolicy_CanReviewApplication_LookupError(t *testing.T) {
	policy := NewPolicy(failingLookup{}, failingLookup{})
	app := &entity.Application{OrgID: 7, CurrentStep: workflow.StepDeptTeacher}

	_, err := policy.CanReviewApplication(context.Background(), entity.Actor{ID: 20, Role: workflow.RoleOrgTeacher}, app)
	assert.Error(t, err)
}

func TestPolicy_CanViewApplication(t *testing.T) {
	policy := NewPolicy(stubAssignments{}, stubReviews{4: true})
	ctx := context.Background()
	app := &entity.Application{ID: 1, OrgID: 7, ApplicantID: 9, CurrentStep: workflow.StepParliamentChair}

	tests := []struct {
		name     string
		actor    entity.Actor
		expected bool
	}{
		{"applicant", entity.Actor{ID: 9, Role: workflow.RoleOrg}, true},
		{"current reviewer", entity.Actor{ID: 2, Role: workflow.RoleParliamentChair}, true},
		{"past reviewer", entity.Actor{ID: 4, Role: workflow.RoleOrgTeacher}, true},
		{"admin", entity.Actor{ID: 1, Role: workflow.RoleAdmin}, true},
		{"stranger", entity.Actor{ID: 10, Role: workflow.RoleOrg}, false},
		{"future reviewer", entity.Actor{ID: 3, Role: workflow.RoleUnionPresident}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.CanViewApplication(ctx, tt.actor, app)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPolicy_CanEditApplication(t *testing.T) {
	policy := NewPolicy(stubAssignments{}, stubReviews{})
	applicant := entity.Actor{ID: 9, Role: workflow.RoleOrg}

	rejected := &entity.Application{ApplicantID: 9, Status: workflow.StatusRejected}
	inFlight := &entity.Application{ApplicantID: 9, Status: workflow.StatusInProgress}

	assert.True(t, policy.CanEditApplication(applicant, rejected))
	assert.False(t, policy.CanEditApplication(applicant, inFlight))
	assert.False(t, policy.CanEditApplication(entity.Actor{ID: 10, Role: workflow.RoleOrg}, rejected))
	assert.True(t, policy.CanEditApplication(entity.Actor{ID: 1, Role: workflow.RoleAdmin}, inFlight))
}

func TestPolicy_Reimbursement(t *testing.T) {
	policy := NewPolicy(stubAssignments{}, stubReviews{})
	r := &entity.Reimbursement{ApplicantID: 9, CurrentStep: workflow.StepUnionTreasurer, Status: workflow.StatusInProgress}

	assert.True(t, policy.CanReviewReimbursement(entity.Actor{ID: 5, Role: workflow.RoleUnionTreasurer}, r))
	assert.False(t, policy.CanReviewReimbursement(entity.Actor{ID: 6, Role: workflow.RoleUnionFinance}, r))
	assert.False(t, policy.CanReviewReimbursement(entity.Actor{ID: 7, Role: workflow.RoleInstructor}, r))
	assert.True(t, policy.CanReviewReimbursement(entity.Actor{ID: 1, Role: workflow.RoleAdmin}, r))

	assert.True(t, policy.CanViewReimbursement(entity.Actor{ID: 9, Role: workflow.RoleOrg}, r))
	assert.True(t, policy.CanViewReimbursement(entity.Actor{ID: 6, Role: workflow.RoleUnionFinance}, r))
	assert.False(t, policy.CanViewReimbursement(entity.Actor{ID: 7, Role: workflow.RoleOrgTeacher}, r))

	assert.False(t, policy.CanEditReimbursement(entity.Actor{ID: 9, Role: workflow.RoleOrg}, r))
	r.Status = workflow.StatusRejected
	assert.True(t, policy.CanEditReimbursement(entity.Actor{ID: 9, Role: workflow.RoleOrg}, r))
}

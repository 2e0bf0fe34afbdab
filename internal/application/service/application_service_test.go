package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/event"
	"github.com/garyjia/fund-review/internal/domain/workflow"
)

func TestApplicationService_OrgRejectAtChairAndResubmit(t *testing.T) {
	env := newTestEnv(t, nil)
	env.assignTeacher(t)
	ctx := context.Background()

	app, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)
	assert.Equal(t, workflow.StepDeptTeacher, app.CurrentStep)
	assert.Equal(t, workflow.StatusSubmitted, app.Status)
	assert.Equal(t, testOrgID, app.OrgID)
	assert.Equal(t, 5500.0, app.TotalAmount)
	assert.NotEmpty(t, app.FormNumber)

	res, err := env.apps.Decide(ctx, teacher, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepParliamentChair, res.Step)
	assert.Equal(t, workflow.StatusInProgress, res.Status)

	res, err = env.apps.Decide(ctx, chair, DecideInput{ApplicationID: app.ID, Decision: "reject", Comment: "incomplete budget"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepRejected, res.Step)
	assert.Equal(t, workflow.StatusRejected, res.Status)

	stored, err := env.repos.Applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StepParliamentChair, stored.LastRejectStep)
	assert.True(t, stored.BypassTeacher)

	edit := orgSubmission()
	edited, err := env.apps.EditAndResubmit(ctx, applicant, EditInput{
		ApplicationID: app.ID,
		Details:       edit.Details,
		Items:         []LineItemInput{{Name: "Stage rental", Amount: 4000}},
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepParliamentChair, edited.CurrentStep)
	assert.Equal(t, workflow.StatusSubmitted, edited.Status)
	assert.Equal(t, 4000.0, edited.TotalAmount)

	res, err = env.apps.Decide(ctx, chair, DecideInput{ApplicationID: app.ID, Decision: "approve", Amount: floatPtr(5000)})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepUnionPresident, res.Step)
	assert.Equal(t, workflow.StatusInProgress, res.Status)
	require.NotNil(t, res.AmountApproved)
	assert.Equal(t, 5000.0, *res.AmountApproved)

	res, err = env.apps.Decide(ctx, president, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepCompleted, res.Step)
	assert.Equal(t, workflow.StatusApproved, res.Status)

	view, err := env.apps.Get(ctx, applicant, app.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Len(t, view.Reviews, 5)

	resubmit := view.Reviews[2]
	assert.Equal(t, workflow.DecisionResubmit, resubmit.Decision)
	assert.Equal(t, workflow.RoleApplicant, resubmit.ReviewerRole)
	assert.Equal(t, workflow.StepRejected, resubmit.Step)
	assert.Equal(t, editResubmitComment, resubmit.Comment)

	chairApproval := view.Reviews[3]
	assert.Equal(t, workflow.StepParliamentChair, chairApproval.Step)
	require.NotNil(t, chairApproval.Amount)
	assert.Equal(t, 5000.0, *chairApproval.Amount)

	assert.Equal(t, []event.Type{
		event.TypeApplicationSubmitted,
		event.TypeApplicationAdvanced,
		event.TypeApplicationRejected,
		event.TypeApplicationResubmitted,
		event.TypeApplicationAdvanced,
		event.TypeApplicationApproved,
	}, env.events.Types())
}

func TestApplicationService_OrgRejectAtTeacherRestartsAtTeacher(t *testing.T) {
	env := newTestEnv(t, nil)
	env.assignTeacher(t)
	ctx := context.Background()

	app, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)

	_, err = env.apps.Decide(ctx, teacher, DecideInput{ApplicationID: app.ID, Decision: "no"})
	require.NoError(t, err)

	resubmitted, err := env.apps.Resubmit(ctx, applicant, app.ID, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.StepDeptTeacher, resubmitted.CurrentStep)
	assert.False(t, resubmitted.BypassTeacher)

	reviews, err := env.repos.Reviews.GetByApplicationID(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, explicitResubmitComment, reviews[1].Comment)

	_, err = env.apps.Resubmit(ctx, applicant, app.ID, "again")
	assert.ErrorIs(t, err, entity.ErrConflict)
	assert.Equal(t, "not_rejected", entity.CodeOf(err))
}

func TestApplicationService_UnionChain(t *testing.T) {
	env := newTestEnv(t, nil, WithUnionOrgID(3))
	ctx := context.Background()

	app, err := env.apps.Submit(ctx, treasurer, SubmitInput{
		Kind:    "union",
		Details: entity.ActivityDetails{Title: "Union retreat"},
		Items:   []LineItemInput{{Name: "Bus", Amount: 800}},
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.KindUnion, app.Kind)
	assert.Equal(t, int64(3), app.OrgID)
	assert.Equal(t, workflow.StepUnionPresident, app.CurrentStep)

	res, err := env.apps.Decide(ctx, president, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepInstructor, res.Step)

	res, err = env.apps.Decide(ctx, instructor, DecideInput{ApplicationID: app.ID, Decision: "reject"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepRejected, res.Step)

	resubmitted, err := env.apps.Resubmit(ctx, treasurer, app.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, workflow.StepInstructor, resubmitted.CurrentStep)

	res, err = env.apps.Decide(ctx, instructor, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepParliamentChair, res.Step)

	res, err = env.apps.Decide(ctx, chair, DecideInput{ApplicationID: app.ID, Decision: "approve", Amount: floatPtr(750)})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepCompleted, res.Step)
	assert.Equal(t, workflow.StatusApproved, res.Status)
}

func TestApplicationService_UnionPresidentStartsAtInstructor(t *testing.T) {
	env := newTestEnv(t, nil)

	app, err := env.apps.Submit(context.Background(), president, SubmitInput{
		Details: entity.ActivityDetails{Title: "Election night"},
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepInstructor, app.CurrentStep)
	assert.Equal(t, 0.0, app.TotalAmount)
}

func TestApplicationService_ChairApprovalRequiresAmount(t *testing.T) {
	env := newTestEnv(t, nil)
	env.assignTeacher(t)
	ctx := context.Background()

	app, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)
	_, err = env.apps.Decide(ctx, teacher, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)

	_, err = env.apps.Decide(ctx, chair, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrValidation)
	assert.Equal(t, "amount_required", entity.CodeOf(err))

	stored, err := env.repos.Applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StepParliamentChair, stored.CurrentStep)
	assert.Equal(t, workflow.StatusInProgress, stored.Status)
	assert.Nil(t, stored.AmountApproved)

	reviews, err := env.repos.Reviews.GetByApplicationID(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	_, err = env.apps.Decide(ctx, chair, DecideInput{ApplicationID: app.ID, Decision: "approve", Amount: floatPtr(-1)})
	assert.Equal(t, "invalid_amount", entity.CodeOf(err))
}

func TestApplicationService_FormNumberCollisionRetries(t *testing.T) {
	numbers := []string{"2026030107100", "2026030107100", "2026030107101"}
	var calls int
	next := func(time.Time, int64) string {
		n := numbers[calls%len(numbers)]
		calls++
		return n
	}

	env := newTestEnv(t, nil, WithFormNumberFunc(next))
	ctx := context.Background()

	first, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)
	second, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)

	assert.Equal(t, "2026030107100", first.FormNumber)
	assert.Equal(t, "2026030107101", second.FormNumber)
	assert.Equal(t, 3, calls)
}

func TestApplicationService_FormNumberExhausted(t *testing.T) {
	fixed := func(time.Time, int64) string { return "2026030107555" }
	env := newTestEnv(t, nil, WithFormNumberFunc(fixed), WithFormNumberAttempts(2))
	ctx := context.Background()

	_, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)

	_, err = env.apps.Submit(ctx, applicant, orgSubmission())
	assert.ErrorIs(t, err, entity.ErrConflict)
	assert.Equal(t, "form_number_exhausted", entity.CodeOf(err))

	mine, err := env.apps.ListMine(ctx, applicant)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestApplicationService_SubmitValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		actor    entity.Actor
		input    SubmitInput
		wantKind error
		wantCode string
	}{
		{
			name:     "reviewer role cannot apply",
			actor:    instructor,
			input:    orgSubmission(),
			wantKind: entity.ErrForbidden,
			wantCode: "cannot_apply",
		},
		{
			name:     "type does not match role",
			actor:    applicant,
			input:    SubmitInput{Kind: "union", Details: entity.ActivityDetails{Title: "x"}},
			wantKind: entity.ErrValidation,
			wantCode: "type_mismatch",
		},
		{
			name:     "unknown type",
			actor:    applicant,
			input:    SubmitInput{Kind: "club", Details: entity.ActivityDetails{Title: "x"}},
			wantKind: entity.ErrValidation,
			wantCode: "invalid_type",
		},
		{
			name:     "org account without organization",
			actor:    entity.Actor{ID: 11, Role: workflow.RoleOrg},
			input:    orgSubmission(),
			wantKind: entity.ErrValidation,
			wantCode: "no_organization",
		},
		{
			name:     "blank title",
			actor:    applicant,
			input:    SubmitInput{Details: entity.ActivityDetails{Title: "   "}},
			wantKind: entity.ErrValidation,
			wantCode: "invalid_title",
		},
		{
			name:     "blank item name",
			actor:    applicant,
			input:    SubmitInput{Details: entity.ActivityDetails{Title: "x"}, Items: []LineItemInput{{Name: " ", Amount: 1}}},
			wantKind: entity.ErrValidation,
			wantCode: "empty_item_name",
		},
		{
			name:     "negative amount",
			actor:    applicant,
			input:    SubmitInput{Details: entity.ActivityDetails{Title: "x"}, Items: []LineItemInput{{Name: "a", Amount: -5}}},
			wantKind: entity.ErrValidation,
			wantCode: "invalid_amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.apps.Submit(ctx, tt.actor, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.wantCode, entity.CodeOf(err))
		})
	}

	recent, err := env.apps.ListPending(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestApplicationService_Permissions(t *testing.T) {
	env := newTestEnv(t, nil)
	env.assignTeacher(t)
	ctx := context.Background()

	app, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)

	otherTeacher := entity.Actor{ID: 21, Role: workflow.RoleOrgTeacher}
	_, err = env.apps.Decide(ctx, otherTeacher, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	assert.ErrorIs(t, err, entity.ErrForbidden)
	assert.Equal(t, "not_your_turn", entity.CodeOf(err))

	_, err = env.apps.Decide(ctx, chair, DecideInput{ApplicationID: app.ID, Decision: "approve", Amount: floatPtr(1)})
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = env.apps.Decide(ctx, applicant, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = env.apps.Decide(ctx, teacher, DecideInput{ApplicationID: 999, Decision: "approve"})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = env.apps.Get(ctx, otherTeacher, app.ID)
	assert.ErrorIs(t, err, entity.ErrForbidden)
	assert.Equal(t, "not_visible", entity.CodeOf(err))

	view, err := env.apps.Get(ctx, teacher, app.ID)
	require.NoError(t, err)
	assert.True(t, view.CanReview)
	assert.False(t, view.CanEdit)

	_, err = env.apps.EditAndResubmit(ctx, applicant, EditInput{ApplicationID: app.ID, Details: entity.ActivityDetails{Title: "y"}})
	assert.ErrorIs(t, err, entity.ErrForbidden)
	assert.Equal(t, "not_editable", entity.CodeOf(err))

	_, err = env.apps.Decide(ctx, teacher, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)

	// the teacher keeps read access through the ledger once the application moved on
	view, err = env.apps.Get(ctx, teacher, app.ID)
	require.NoError(t, err)
	assert.False(t, view.CanReview)

	err = env.apps.Delete(ctx, applicant, app.ID)
	assert.ErrorIs(t, err, entity.ErrForbidden)
	assert.Equal(t, "admin_only", entity.CodeOf(err))
}

func TestApplicationService_AdminOverride(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	app, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)

	res, err := env.apps.Decide(ctx, admin, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepParliamentChair, res.Step)

	edited, err := env.apps.EditAndResubmit(ctx, admin, EditInput{
		ApplicationID: app.ID,
		Details:       entity.ActivityDetails{Title: "Corrected by admin"},
		Items:         []LineItemInput{{Name: "Tickets", Amount: 200}},
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StepParliamentChair, edited.CurrentStep, "editing an open application does not move it")
	assert.Equal(t, 200.0, edited.TotalAmount)

	require.NoError(t, env.apps.Delete(ctx, admin, app.ID))
	_, err = env.apps.Get(ctx, admin, app.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	assert.Contains(t, env.events.Types(), event.TypeApplicationDeleted)
}

func TestApplicationService_Queues(t *testing.T) {
	env := newTestEnv(t, nil)
	env.assignTeacher(t)
	ctx := context.Background()

	first, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)
	second, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)

	pending, err := env.apps.ListPending(ctx, teacher)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = env.apps.Decide(ctx, teacher, DecideInput{ApplicationID: first.ID, Decision: "approve"})
	require.NoError(t, err)

	pending, err = env.apps.ListPending(ctx, teacher)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	pending, err = env.apps.ListPending(ctx, chair)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	pending, err = env.apps.ListPending(ctx, finance)
	require.NoError(t, err)
	assert.Empty(t, pending)

	reviewed, err := env.apps.ListReviewed(ctx, teacher)
	require.NoError(t, err)
	require.Len(t, reviewed, 1)
	assert.Equal(t, first.ID, reviewed[0].ApplicationID)
	assert.Equal(t, workflow.StepParliamentChair, reviewed[0].CurrentStep)

	mine, err := env.apps.ListMine(ctx, applicant)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestApplicationService_ConcurrentDecisions(t *testing.T) {
	env := newTestEnv(t, nil)
	env.assignTeacher(t)
	ctx := context.Background()

	app, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)
	_, err = env.apps.Decide(ctx, teacher, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)

	const deciders = 4
	var wg sync.WaitGroup
	errs := make([]error, deciders)
	for i := 0; i < deciders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.apps.Decide(ctx, chair, DecideInput{ApplicationID: app.ID, Decision: "approve", Amount: floatPtr(4000)})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, entity.ErrForbidden) || errors.Is(err, entity.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := env.repos.Applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StepUnionPresident, stored.CurrentStep)

	reviews, err := env.repos.Reviews.GetByApplicationID(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestApplicationService_GetIncludesReimbursement(t *testing.T) {
	env := newTestEnv(t, nil)
	app := env.approvedApplication(t)
	ctx := context.Background()

	view, err := env.apps.Get(ctx, applicant, app.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Reimbursement)

	reimb, err := env.reimbs.Create(ctx, applicant, reimbursementInput(app.ID))
	require.NoError(t, err)

	view, err = env.apps.Get(ctx, applicant, app.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Reimbursement)
	assert.Equal(t, reimb.ID, view.Reimbursement.ID)
}

func TestAssignmentService_AssignTeacher(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.assignments.AssignTeacher(ctx, chair, testOrgID, teacher.ID)
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = env.assignments.AssignTeacher(ctx, admin, 0, teacher.ID)
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, err = env.assignments.GetTeacher(ctx, testOrgID)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = env.assignments.AssignTeacher(ctx, admin, testOrgID, teacher.ID)
	require.NoError(t, err)
	_, err = env.assignments.AssignTeacher(ctx, admin, testOrgID, 22)
	require.NoError(t, err)

	got, err := env.assignments.GetTeacher(ctx, testOrgID)
	require.NoError(t, err)
	assert.Equal(t, int64(22), got.TeacherID)

	app, err := env.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)
	_, err = env.apps.Decide(ctx, teacher, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	assert.ErrorIs(t, err, entity.ErrForbidden, "replaced teacher loses review rights")
}

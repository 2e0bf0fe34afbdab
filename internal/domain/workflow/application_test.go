package workflow

import (
	"errors"
	"testing"
)

func TestInitialStep(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		applicant Role
		expected  Step
	}{
		{"org request", KindOrg, RoleOrg, StepDeptTeacher},
		{"org request filed by officer", KindOrg, RoleUnionFinance, StepDeptTeacher},
		{"union request by president skips self approval", KindUnion, RoleUnionPresident, StepInstructor},
		{"union request by treasurer", KindUnion, RoleUnionTreasurer, StepUnionPresident},
		{"union request by chair", KindUnion, RoleParliamentChair, StepUnionPresident},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InitialStep(tt.kind, tt.applicant); got != tt.expected {
				t.Errorf("InitialStep() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("union"); err != nil || k != KindUnion {
		t.Errorf("ParseKind(union) = %v, %v", k, err)
	}
	if _, err := ParseKind("club"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(club) error = %v, want %v", err, ErrUnknownKind)
	}
}

func walkApprovals(s ApplicationState) []Step {
	visited := []Step{s.Step}
	for i := 0; i < 10 && s.Step != StepCompleted; i++ {
		s = s.Approve()
		visited = append(visited, s.Step)
	}
	return visited
}

func equalSteps(a, b []Step) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplicationState_ApproveChains(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		applicant Role
		expected  []Step
	}{
		{
			name:      "org chain",
			kind:      KindOrg,
			applicant: RoleOrg,
			expected:  []Step{StepDeptTeacher, StepParliamentChair, StepUnionPresident, StepCompleted},
		},
		{
			name:      "union chain from officer",
			kind:      KindUnion,
			applicant: RoleUnionFinance,
			expected:  []Step{StepUnionPresident, StepInstructor, StepParliamentChair, StepCompleted},
		},
		{
			name:      "union chain from president",
			kind:      KindUnion,
			applicant: RoleUnionPresident,
			expected:  []Step{StepInstructor, StepParliamentChair, StepCompleted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := walkApprovals(NewApplicationState(tt.kind, tt.applicant))
			if !equalSteps(got, tt.expected) {
				t.Errorf("approve chain = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestApplicationState_ApproveStatus(t *testing.T) {
	s := NewApplicationState(KindOrg, RoleOrg)
	if s.Status != StatusSubmitted {
		t.Fatalf("initial status = %v, want %v", s.Status, StatusSubmitted)
	}

	s = s.Approve()
	if s.Status != StatusInProgress {
		t.Errorf("status after first approval = %v, want %v", s.Status, StatusInProgress)
	}

	s = s.Approve().Approve()
	if s.Step != StepCompleted || s.Status != StatusApproved {
		t.Errorf("final state = %v/%v, want %v/%v", s.Step, s.Status, StepCompleted, StatusApproved)
	}
}

func TestApplicationState_ApprovePermissiveDefault(t *testing.T) {
	tests := []struct {
		name string
		s    ApplicationState
	}{
		{"already completed", ApplicationState{Kind: KindOrg, Step: StepCompleted, Status: StatusApproved}},
		{"rejected", ApplicationState{Kind: KindOrg, Step: StepRejected, Status: StatusRejected}},
		{"unrecognized step", ApplicationState{Kind: KindUnion, Step: Step("archive")}},
		{"step outside the org chain", ApplicationState{Kind: KindOrg, Step: StepInstructor}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.s.Approve()
			if got.Step != StepCompleted || got.Status != StatusApproved {
				t.Errorf("Approve() = %v/%v, want %v/%v", got.Step, got.Status, StepCompleted, StatusApproved)
			}
		})
	}
}

func TestApplicationState_UnknownKindFollowsUnionChain(t *testing.T) {
	s := ApplicationState{Kind: Kind("legacy"), Step: StepUnionPresident}
	if got := s.Approve().Step; got != StepInstructor {
		t.Errorf("Approve() step = %v, want %v", got, StepInstructor)
	}
}

func TestApplicationState_Reject(t *testing.T) {
	tests := []struct {
		name       string
		s          ApplicationState
		wantLast   Step
		wantBypass bool
	}{
		{
			name:     "org rejected by teacher",
			s:        ApplicationState{Kind: KindOrg, Step: StepDeptTeacher},
			wantLast: StepDeptTeacher,
		},
		{
			name:       "org rejected by chair sets bypass",
			s:          ApplicationState{Kind: KindOrg, Step: StepParliamentChair},
			wantLast:   StepParliamentChair,
			wantBypass: true,
		},
		{
			name:     "org rejected by president keeps bypass unset",
			s:        ApplicationState{Kind: KindOrg, Step: StepUnionPresident},
			wantLast: StepUnionPresident,
		},
		{
			name:       "bypass is sticky",
			s:          ApplicationState{Kind: KindOrg, Step: StepDeptTeacher, BypassTeacher: true},
			wantLast:   StepDeptTeacher,
			wantBypass: true,
		},
		{
			name:       "union always bypasses",
			s:          ApplicationState{Kind: KindUnion, Step: StepInstructor},
			wantLast:   StepInstructor,
			wantBypass: true,
		},
		{
			name:       "rejecting a rejected application keeps the prior reject step",
			s:          ApplicationState{Kind: KindOrg, Step: StepRejected, LastRejectStep: StepParliamentChair, BypassTeacher: true},
			wantLast:   StepParliamentChair,
			wantBypass: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.s.Reject()
			if got.Step != StepRejected || got.Status != StatusRejected {
				t.Errorf("Reject() = %v/%v, want rejected/rejected", got.Step, got.Status)
			}
			if got.LastRejectStep != tt.wantLast {
				t.Errorf("LastRejectStep = %v, want %v", got.LastRejectStep, tt.wantLast)
			}
			if got.BypassTeacher != tt.wantBypass {
				t.Errorf("BypassTeacher = %v, want %v", got.BypassTeacher, tt.wantBypass)
			}
		})
	}
}

func TestResumeStep(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		last     Step
		bypass   bool
		expected Step
	}{
		{"org after teacher rejection", KindOrg, StepDeptTeacher, false, StepDeptTeacher},
		{"org after chair rejection", KindOrg, StepParliamentChair, false, StepParliamentChair},
		{"org after president rejection", KindOrg, StepUnionPresident, false, StepParliamentChair},
		{"org with bypass after teacher rejection", KindOrg, StepDeptTeacher, true, StepParliamentChair},
		{"org without history", KindOrg, "", false, StepDeptTeacher},
		{"union after president rejection", KindUnion, StepUnionPresident, true, StepUnionPresident},
		{"union after instructor rejection", KindUnion, StepInstructor, true, StepInstructor},
		{"union after chair rejection", KindUnion, StepParliamentChair, true, StepParliamentChair},
		{"union without history", KindUnion, "", false, StepUnionPresident},
		{"unknown kind", Kind("legacy"), StepParliamentChair, true, StepDeptTeacher},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResumeStep(tt.kind, tt.last, tt.bypass); got != tt.expected {
				t.Errorf("ResumeStep() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestApplicationState_ResubmitKeepsHistory(t *testing.T) {
	s := ApplicationState{Kind: KindOrg, Step: StepParliamentChair}.Reject().Resubmit()

	if s.Step != StepParliamentChair || s.Status != StatusSubmitted {
		t.Errorf("Resubmit() = %v/%v, want %v/%v", s.Step, s.Status, StepParliamentChair, StatusSubmitted)
	}
	if s.LastRejectStep != StepParliamentChair || !s.BypassTeacher {
		t.Errorf("history cleared: last=%v bypass=%v", s.LastRejectStep, s.BypassTeacher)
	}
}

func TestApplicationState_BypassSurvivesLaterCycles(t *testing.T) {
	s := NewApplicationState(KindOrg, RoleOrg).Approve()
	s = s.Reject().Resubmit()
	if s.Step != StepParliamentChair {
		t.Fatalf("first resubmit step = %v, want %v", s.Step, StepParliamentChair)
	}

	// president rejects next; chair still owns the correction
	s = s.Approve().Reject().Resubmit()
	if s.Step != StepParliamentChair {
		t.Errorf("second resubmit step = %v, want %v", s.Step, StepParliamentChair)
	}
}

func TestApplicationState_UnionInstructorRejection(t *testing.T) {
	s := NewApplicationState(KindUnion, RoleUnionTreasurer).Approve()
	if s.Step != StepInstructor {
		t.Fatalf("step = %v, want %v", s.Step, StepInstructor)
	}

	s = s.Reject().Resubmit()
	if s.Step != StepInstructor {
		t.Errorf("resubmit step = %v, want %v", s.Step, StepInstructor)
	}
}

func TestApplicationState_Scenario(t *testing.T) {
	s := NewApplicationState(KindOrg, RoleOrg)

	s = s.Decide(DecisionApprove)
	if s.Step != StepParliamentChair || s.Status != StatusInProgress {
		t.Fatalf("after teacher approval = %v/%v", s.Step, s.Status)
	}

	s = s.Decide(ParseDecision("reject"))
	if s.Step != StepRejected || s.Status != StatusRejected || s.LastRejectStep != StepParliamentChair || !s.BypassTeacher {
		t.Fatalf("after chair rejection = %+v", s)
	}

	s = s.Decide(DecisionResubmit)
	if s.Step != StepParliamentChair || s.Status != StatusSubmitted {
		t.Fatalf("after resubmission = %v/%v", s.Step, s.Status)
	}

	if !RequiresAmount(s.Step, DecisionApprove) {
		t.Fatal("chair approval must require an amount")
	}
	s = s.Decide(DecisionApprove)
	if s.Step != StepUnionPresident || s.Status != StatusInProgress {
		t.Fatalf("after chair approval = %v/%v", s.Step, s.Status)
	}

	s = s.Decide(DecisionApprove)
	if s.Step != StepCompleted || s.Status != StatusApproved {
		t.Errorf("final = %v/%v, want completed/approved", s.Step, s.Status)
	}
}

func TestRequiresAmount(t *testing.T) {
	tests := []struct {
		step     Step
		decision Decision
		expected bool
	}{
		{StepParliamentChair, DecisionApprove, true},
		{StepParliamentChair, DecisionReject, false},
		{StepUnionPresident, DecisionApprove, false},
		{StepDeptTeacher, DecisionApprove, false},
	}

	for _, tt := range tests {
		if got := RequiresAmount(tt.step, tt.decision); got != tt.expected {
			t.Errorf("RequiresAmount(%v, %v) = %v, want %v", tt.step, tt.decision, got, tt.expected)
		}
	}
}

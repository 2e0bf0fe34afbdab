package workflow

import "fmt"

// Kind classifies where an application originates
type Kind string

const (
	// KindOrg requests come from a department or club
	KindOrg Kind = "org"
	// KindUnion requests come from student union officers
	KindUnion Kind = "union"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// ParseKind validates a kind supplied by a caller
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindOrg, KindUnion:
		return Kind(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

var (
	orgChart   = newOrgChart()
	unionChart = newUnionChart()
)

func newOrgChart() ChartBuilder {
	b := NewBuilder()
	b.Configure(StepDeptTeacher).
		Permit(TriggerApprove, StepParliamentChair)
	b.Configure(StepParliamentChair).
		Permit(TriggerApprove, StepUnionPresident)
	b.Configure(StepUnionPresident).
		Permit(TriggerApprove, StepCompleted)
	b.Configure(StepRejected).
		PermitIf(TriggerResubmit, StepParliamentChair, func(h History) bool {
			return h.BypassTeacher ||
				h.LastRejectStep == StepParliamentChair ||
				h.LastRejectStep == StepUnionPresident
		}).
		Permit(TriggerResubmit, StepDeptTeacher)
	return b
}

func newUnionChart() ChartBuilder {
	b := NewBuilder()
	b.Configure(StepUnionPresident).
		Permit(TriggerApprove, StepInstructor)
	b.Configure(StepInstructor).
		Permit(TriggerApprove, StepParliamentChair)
	b.Configure(StepParliamentChair).
		Permit(TriggerApprove, StepCompleted)

	rejected := b.Configure(StepRejected)
	for _, step := range []Step{StepUnionPresident, StepInstructor, StepParliamentChair} {
		resume := step
		rejected.PermitIf(TriggerResubmit, resume, func(h History) bool {
			return h.LastRejectStep == resume
		})
	}
	rejected.Permit(TriggerResubmit, StepUnionPresident)
	return b
}

// approveChart returns the chart an approval walks. Anything that is not an
// org request follows the union chain.
func approveChart(kind Kind) ChartBuilder {
	if kind == KindOrg {
		return orgChart
	}
	return unionChart
}

// InitialStep returns the step a freshly submitted application starts at
func InitialStep(kind Kind, applicant Role) Step {
	switch {
	case kind == KindOrg:
		return StepDeptTeacher
	case applicant == RoleUnionPresident:
		return StepInstructor
	default:
		return StepUnionPresident
	}
}

// ResumeStep returns where a rejected application re-enters the chain
func ResumeStep(kind Kind, lastReject Step, bypassTeacher bool) Step {
	var chart ChartBuilder
	switch kind {
	case KindOrg:
		chart = orgChart
	case KindUnion:
		chart = unionChart
	default:
		return StepDeptTeacher
	}

	m := chart.Build(StepRejected)
	if err := m.Fire(TriggerResubmit, History{LastRejectStep: lastReject, BypassTeacher: bypassTeacher}); err != nil {
		return StepDeptTeacher
	}
	return m.Step()
}

// RequiresAmount reports whether a decision at the step must carry an approved amount
func RequiresAmount(step Step, d Decision) bool {
	return d == DecisionApprove && step == StepParliamentChair
}

// ApplicationState is the workflow position of one application
type ApplicationState struct {
	Kind           Kind
	Step           Step
	Status         Status
	LastRejectStep Step
	BypassTeacher  bool
}

// NewApplicationState returns the state of a freshly submitted application
func NewApplicationState(kind Kind, applicant Role) ApplicationState {
	return ApplicationState{
		Kind:   kind,
		Step:   InitialStep(kind, applicant),
		Status: StatusSubmitted,
	}
}

// Decide applies a reviewer decision and returns the resulting state
func (s ApplicationState) Decide(d Decision) ApplicationState {
	switch d {
	case DecisionApprove:
		return s.Approve()
	case DecisionResubmit:
		return s.Resubmit()
	default:
		return s.Reject()
	}
}

// Approve advances the application one step. Terminal or unrecognized
// steps settle on completed.
func (s ApplicationState) Approve() ApplicationState {
	next := StepCompleted
	if s.Step.IsValid() {
		m := approveChart(s.Kind).Build(s.Step)
		if err := m.Fire(TriggerApprove, s.history()); err == nil {
			next = m.Step()
		}
	}

	s.Step = next
	s.Status = statusAfterApprove(next)
	return s
}

// Reject sends the application back to its applicant, remembering where it was rejected
func (s ApplicationState) Reject() ApplicationState {
	if s.Step == StepParliamentChair || s.Kind == KindUnion {
		s.BypassTeacher = true
	}
	if s.Step != StepRejected {
		s.LastRejectStep = s.Step
	}
	s.Step = StepRejected
	s.Status = StatusRejected
	return s
}

// Resubmit re-enters the chain. Rejection memory is kept for later cycles.
func (s ApplicationState) Resubmit() ApplicationState {
	s.Step = ResumeStep(s.Kind, s.LastRejectStep, s.BypassTeacher)
	s.Status = StatusSubmitted
	return s
}

func (s ApplicationState) history() History {
	return History{LastRejectStep: s.LastRejectStep, BypassTeacher: s.BypassTeacher}
}

package workflow

var reimbursementChart = newReimbursementChart()

func newReimbursementChart() ChartBuilder {
	b := NewBuilder()
	b.Configure(StepUnionFinance).
		Permit(TriggerApprove, StepUnionTreasurer)
	b.Configure(StepUnionTreasurer).
		Permit(TriggerApprove, StepUnionPresident)
	b.Configure(StepUnionPresident).
		Permit(TriggerApprove, StepParliamentChair)
	b.Configure(StepParliamentChair).
		Permit(TriggerApprove, StepCompleted)
	b.Configure(StepRejected).
		Permit(TriggerResubmit, StepUnionFinance)
	return b
}

// ReimbursementState is the workflow position of one reimbursement.
// Unlike applications it keeps no rejection memory.
type ReimbursementState struct {
	Step   Step
	Status Status
}

// NewReimbursementState returns the state of a freshly created reimbursement
func NewReimbursementState() ReimbursementState {
	return ReimbursementState{Step: StepUnionFinance, Status: StatusSubmitted}
}

// SetsApprovedAmount reports whether approving at the step fixes the approved amount
func (s ReimbursementState) SetsApprovedAmount() bool {
	return s.Step == StepParliamentChair
}

// Decide applies a reviewer decision and returns the resulting state
func (s ReimbursementState) Decide(d Decision) ReimbursementState {
	switch d {
	case DecisionApprove:
		return s.Approve()
	case DecisionResubmit:
		return s.Resubmit()
	default:
		return s.Reject()
	}
}

// Approve advances the reimbursement one sign-off
func (s ReimbursementState) Approve() ReimbursementState {
	next := StepCompleted
	if s.Step.IsValid() {
		m := reimbursementChart.Build(s.Step)
		if err := m.Fire(TriggerApprove, History{}); err == nil {
			next = m.Step()
		}
	}

	s.Step = next
	s.Status = statusAfterApprove(next)
	return s
}

// Reject sends the reimbursement back to its applicant
func (s ReimbursementState) Reject() ReimbursementState {
	s.Step = StepRejected
	s.Status = StatusRejected
	return s
}

// Resubmit always restarts at the first sign-off
func (s ReimbursementState) Resubmit() ReimbursementState {
	m := reimbursementChart.Build(StepRejected)
	_ = m.Fire(TriggerResubmit, History{})
	s.Step = m.Step()
	s.Status = StatusSubmitted
	return s
}

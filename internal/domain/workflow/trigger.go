package workflow

import "strings"

// Trigger represents an event that can cause a step transition
type Trigger string

const (
	TriggerApprove  Trigger = "APPROVE"
	TriggerReject   Trigger = "REJECT"
	TriggerResubmit Trigger = "RESUBMIT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// Decision is the verdict recorded in a review ledger entry
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionResubmit Decision = "resubmit"
)

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}

// ParseDecision maps a reviewer verdict onto a decision.
// Anything other than approve counts as a rejection.
func ParseDecision(raw string) Decision {
	if strings.EqualFold(strings.TrimSpace(raw), string(DecisionApprove)) {
		return DecisionApprove
	}
	return DecisionReject
}

// Trigger returns the trigger a decision fires
func (d Decision) Trigger() Trigger {
	switch d {
	case DecisionApprove:
		return TriggerApprove
	case DecisionResubmit:
		return TriggerResubmit
	default:
		return TriggerReject
	}
}

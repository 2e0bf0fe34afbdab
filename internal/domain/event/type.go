package event

// Type identifies the type of domain event
type Type string

const (
	TypeApplicationSubmitted   Type = "application.submitted"
	TypeApplicationAdvanced    Type = "application.advanced"
	TypeApplicationApproved    Type = "application.approved"
	TypeApplicationRejected    Type = "application.rejected"
	TypeApplicationResubmitted Type = "application.resubmitted"
	TypeApplicationDeleted     Type = "application.deleted"

	TypeReimbursementCreated     Type = "reimbursement.created"
	TypeReimbursementAdvanced    Type = "reimbursement.advanced"
	TypeReimbursementApproved    Type = "reimbursement.approved"
	TypeReimbursementRejected    Type = "reimbursement.rejected"
	TypeReimbursementResubmitted Type = "reimbursement.resubmitted"
	TypeReimbursementDeleted     Type = "reimbursement.deleted"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApplicationSubmitted,
		TypeApplicationAdvanced,
		TypeApplicationApproved,
		TypeApplicationRejected,
		TypeApplicationResubmitted,
		TypeApplicationDeleted,
		TypeReimbursementCreated,
		TypeReimbursementAdvanced,
		TypeReimbursementApproved,
		TypeReimbursementRejected,
		TypeReimbursementResubmitted,
		TypeReimbursementDeleted:
		return true
	default:
		return false
	}
}

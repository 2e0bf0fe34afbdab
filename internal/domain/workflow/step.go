package workflow

// Step is the precise position of a document in its approval chain
type Step string

const (
	StepDeptTeacher     Step = "dept_teacher"
	StepParliamentChair Step = "parliament_chair"
	StepUnionPresident  Step = "union_president"
	StepInstructor      Step = "instructor"
	StepUnionFinance    Step = "union_finance"
	StepUnionTreasurer  Step = "union_treasurer"
	StepCompleted       Step = "completed"
	StepRejected        Step = "rejected"
)

// IsTerminal returns true once no reviewer can act on the document anymore
func (s Step) IsTerminal() bool {
	return s == StepCompleted
}

// String returns the string representation of the step
func (s Step) String() string {
	return string(s)
}

// IsValid returns true if the step is a known workflow step
func (s Step) IsValid() bool {
	switch s {
	case StepDeptTeacher, StepParliamentChair, StepUnionPresident, StepInstructor,
		StepUnionFinance, StepUnionTreasurer, StepCompleted, StepRejected:
		return true
	}
	return false
}

// Status is the coarse lifecycle phase of a document
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusInProgress Status = "in_progress"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusCompleted  Status = "completed"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsOpen reports whether the document still waits for a reviewer
func (s Status) IsOpen() bool {
	return s == StatusSubmitted || s == StatusInProgress
}

// statusAfterApprove derives the status from the step an approval landed on
func statusAfterApprove(next Step) Status {
	if next == StepCompleted {
		return StatusApproved
	}
	return StatusInProgress
}

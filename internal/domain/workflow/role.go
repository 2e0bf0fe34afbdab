package workflow

// Role identifies what an actor is allowed to do
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleOrg             Role = "org"
	RoleOrgTeacher      Role = "org_teacher"
	RoleUnionTreasurer  Role = "union_treasurer"
	RoleUnionFinance    Role = "union_finance"
	RoleUnionOther      Role = "union_other"
	RoleUnionPresident  Role = "union_president"
	RoleParliamentChair Role = "parliament_chair"
	RoleInstructor      Role = "instructor"

	// RoleApplicant labels ledger entries written on the applicant's behalf
	RoleApplicant Role = "applicant"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true for roles an actor may carry
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOrg, RoleOrgTeacher, RoleUnionTreasurer, RoleUnionFinance,
		RoleUnionOther, RoleUnionPresident, RoleParliamentChair, RoleInstructor:
		return true
	}
	return false
}

// IsUnionOfficer reports whether the role belongs to the student union itself
func (r Role) IsUnionOfficer() bool {
	switch r {
	case RoleUnionTreasurer, RoleUnionFinance, RoleUnionOther, RoleUnionPresident, RoleParliamentChair:
		return true
	}
	return false
}

// CanApply reports whether the role may submit fund applications
func (r Role) CanApply() bool {
	return r == RoleOrg || r.IsUnionOfficer()
}

// KindFor returns the application kind a role submits
func (r Role) KindFor() Kind {
	if r.IsUnionOfficer() {
		return KindUnion
	}
	return KindOrg
}

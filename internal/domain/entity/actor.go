package entity

import "github.com/garyjia/fund-review/internal/domain/workflow"

// Actor is the authenticated caller of a core operation
type Actor struct {
	ID    int64
	Role  workflow.Role
	OrgID *int64
}

// IsAdmin reports whether the actor holds the administrator role
func (a Actor) IsAdmin() bool {
	return a.Role == workflow.RoleAdmin
}

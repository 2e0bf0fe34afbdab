package service

import (
	"context"

	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/entity"
)

// AssignmentService binds department teachers to the organizations they review for
type AssignmentService interface {
	AssignTeacher(ctx context.Context, actor entity.Actor, orgID, teacherID int64) (*entity.TeacherAssignment, error)
	GetTeacher(ctx context.Context, orgID int64) (*entity.TeacherAssignment, error)
}

type assignmentServiceImpl struct {
	assignmentRepo port.AssignmentRepository
	logger         Logger
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(deps Deps) AssignmentService {
	return &assignmentServiceImpl{
		assignmentRepo: deps.Repos.Assignments,
		logger:         deps.Logger,
	}
}

// AssignTeacher makes the teacher the organization's only reviewer at the teacher step. Admin only.
func (s *assignmentServiceImpl) AssignTeacher(ctx context.Context, actor entity.Actor, orgID, teacherID int64) (*entity.TeacherAssignment, error) {
	if !actor.IsAdmin() {
		return nil, entity.Forbidden("admin_only", "only administrators may assign teachers")
	}
	if orgID <= 0 || teacherID <= 0 {
		return nil, entity.Validation("invalid_assignment", "organization and teacher ids must be positive")
	}

	assignment := &entity.TeacherAssignment{TeacherID: teacherID, OrgID: orgID}
	if err := s.assignmentRepo.Assign(ctx, assignment); err != nil {
		s.logger.Error("Failed to assign teacher", "org_id", orgID, "teacher_id", teacherID, "error", err)
		return nil, err
	}

	s.logger.Info("Teacher assigned", "org_id", orgID, "teacher_id", teacherID, "actor_id", actor.ID)
	return assignment, nil
}

// GetTeacher returns the organization's current assignment
func (s *assignmentServiceImpl) GetTeacher(ctx context.Context, orgID int64) (*entity.TeacherAssignment, error) {
	assignment, err := s.assignmentRepo.GetByOrgID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, entity.NotFound("assignment_not_found", "organization %d has no assigned teacher", orgID)
	}
	return assignment, nil
}

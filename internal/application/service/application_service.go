package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/garyjia/fund-review/internal/application/dispatcher"
	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/access"
	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/event"
	"github.com/garyjia/fund-review/internal/domain/workflow"
	"github.com/garyjia/fund-review/pkg/utils"
)

// ApplicationService runs fund applications through their approval chain
type ApplicationService interface {
	Submit(ctx context.Context, actor entity.Actor, in SubmitInput) (*entity.Application, error)
	Get(ctx context.Context, actor entity.Actor, id int64) (*ApplicationView, error)
	Decide(ctx context.Context, actor entity.Actor, in DecideInput) (*DecisionResult, error)
	EditAndResubmit(ctx context.Context, actor entity.Actor, in EditInput) (*entity.Application, error)
	Resubmit(ctx context.Context, actor entity.Actor, id int64, comment string) (*entity.Application, error)
	Delete(ctx context.Context, actor entity.Actor, id int64) error
	ListMine(ctx context.Context, actor entity.Actor) ([]*entity.Application, error)
	ListPending(ctx context.Context, actor entity.Actor) ([]*entity.Application, error)
	ListReviewed(ctx context.Context, actor entity.Actor) ([]*entity.ReviewSummary, error)
}

// LineItemInput is one requested budget line as supplied by the applicant
type LineItemInput struct {
	Name    string  `json:"name"`
	Purpose string  `json:"purpose" validate:"max=500"`
	Amount  float64 `json:"amount"`
}

// SubmitInput is a new fund application. Kind is optional and must match
// the kind the applicant's role submits.
type SubmitInput struct {
	Kind    string                 `json:"type"`
	Details entity.ActivityDetails `json:"details"`
	Items   []LineItemInput        `json:"items" validate:"max=100,dive"`
}

// EditInput replaces the content of an application
type EditInput struct {
	ApplicationID int64                  `json:"-"`
	Details       entity.ActivityDetails `json:"details"`
	Items         []LineItemInput        `json:"items" validate:"max=100,dive"`
}

// DecideInput is a reviewer decision. Amount is required when approving at the chair step.
type DecideInput struct {
	ApplicationID int64
	Decision      string
	Comment       string
	Amount        *float64
}

// DecisionResult is the workflow position after a decision
type DecisionResult struct {
	ApplicationID  int64           `json:"application_id"`
	Step           workflow.Step   `json:"current_step"`
	Status         workflow.Status `json:"status"`
	AmountApproved *float64        `json:"amount_approved,omitempty"`
}

// ApplicationView is everything an actor may read about one application
type ApplicationView struct {
	Application   *entity.Application   `json:"application"`
	Items         []entity.LineItem     `json:"items"`
	Reviews       []*entity.Review      `json:"reviews"`
	Reimbursement *entity.Reimbursement `json:"reimbursement,omitempty"`
	CanReview     bool                  `json:"can_review"`
	CanEdit       bool                  `json:"can_edit"`
}

// FormNumberFunc builds a candidate form number for an organization
type FormNumberFunc func(now time.Time, orgID int64) string

// DefaultFormNumber is the UTC date, the zero-padded organization id and a random four-digit suffix
func DefaultFormNumber(now time.Time, orgID int64) string {
	return fmt.Sprintf("%s%02d%d", now.UTC().Format("20060102"), orgID, 1000+rand.IntN(9000))
}

// ApplicationOption configures the application service
type ApplicationOption func(*applicationServiceImpl)

// WithUnionOrgID sets the organization that owns union-type applications
func WithUnionOrgID(id int64) ApplicationOption {
	return func(s *applicationServiceImpl) {
		s.unionOrgID = id
	}
}

// WithFormNumberAttempts bounds retries when a form number is already taken
func WithFormNumberAttempts(n int) ApplicationOption {
	return func(s *applicationServiceImpl) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithFormNumberFunc replaces the form number generator
func WithFormNumberFunc(fn FormNumberFunc) ApplicationOption {
	return func(s *applicationServiceImpl) {
		s.formNumber = fn
	}
}

type applicationServiceImpl struct {
	appRepo     port.ApplicationRepository
	itemRepo    port.LineItemRepository
	reviewRepo  port.ReviewRepository
	reimbRepo   port.ReimbursementRepository
	receiptRepo port.ReceiptRepository
	photoRepo   port.PhotoRepository
	txManager   port.TransactionManager
	storage     port.FileStorage
	dispatcher  dispatcher.Dispatcher
	policy      *access.Policy
	logger      Logger
	unionOrgID  int64
	attempts    int
	formNumber  FormNumberFunc
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(deps Deps, opts ...ApplicationOption) ApplicationService {
	s := &applicationServiceImpl{
		appRepo:     deps.Repos.Applications,
		itemRepo:    deps.Repos.LineItems,
		reviewRepo:  deps.Repos.Reviews,
		reimbRepo:   deps.Repos.Reimbursements,
		receiptRepo: deps.Repos.Receipts,
		photoRepo:   deps.Repos.Photos,
		txManager:   deps.TxManager,
		storage:     deps.Storage,
		dispatcher:  deps.Dispatcher,
		policy:      newPolicy(deps.Repos),
		logger:      deps.Logger,
		unionOrgID:  1,
		attempts:    5,
		formNumber:  DefaultFormNumber,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Submit files a new application at the first step of its chain
func (s *applicationServiceImpl) Submit(ctx context.Context, actor entity.Actor, in SubmitInput) (*entity.Application, error) {
	if !actor.Role.CanApply() {
		return nil, entity.Forbidden("cannot_apply", "role %s may not submit applications", actor.Role)
	}

	kind := actor.Role.KindFor()
	if in.Kind != "" {
		requested, err := workflow.ParseKind(in.Kind)
		if err != nil {
			return nil, entity.Validation("invalid_type", "%v", err)
		}
		if requested != kind {
			return nil, entity.Validation("type_mismatch", "role %s submits %s applications, not %s", actor.Role, kind, requested)
		}
	}

	orgID := s.unionOrgID
	if kind == workflow.KindOrg {
		if actor.OrgID == nil {
			return nil, entity.Validation("no_organization", "account is not bound to an organization")
		}
		orgID = *actor.OrgID
	}

	in.Details = sanitizeDetails(in.Details)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, validationError(err)
	}
	items, total, err := normalizeLineItems(in.Items)
	if err != nil {
		return nil, err
	}

	app := &entity.Application{
		ApplicantID: actor.ID,
		OrgID:       orgID,
		Kind:        kind,
		Details:     in.Details,
		TotalAmount: total,
	}
	app.ApplyState(workflow.NewApplicationState(kind, actor.Role))

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.createWithFormNumber(txCtx, app); err != nil {
			return err
		}
		if err := s.itemRepo.ReplaceForApplication(txCtx, app.ID, items); err != nil {
			return fmt.Errorf("save line items: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit application", "applicant_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Application submitted",
		"id", app.ID, "form_number", app.FormNumber, "type", app.Kind, "step", app.CurrentStep)

	publish(ctx, s.dispatcher, s.logger, event.NewEvent(event.TypeApplicationSubmitted, app.ID, actor.ID, map[string]interface{}{
		event.KeyFormNumber: app.FormNumber,
		event.KeyStep:       app.CurrentStep,
		event.KeyStatus:     app.Status,
	}))

	return app, nil
}

func (s *applicationServiceImpl) createWithFormNumber(ctx context.Context, app *entity.Application) error {
	now := time.Now()
	for attempt := 1; attempt <= s.attempts; attempt++ {
		app.FormNumber = s.formNumber(now, app.OrgID)

		err := s.appRepo.Create(ctx, app)
		if err == nil {
			return nil
		}
		if entity.CodeOf(err) != "duplicate_form_number" {
			return fmt.Errorf("create application: %w", err)
		}
		s.logger.Info("Form number taken, retrying", "form_number", app.FormNumber, "attempt", attempt)
	}
	return entity.Conflict("form_number_exhausted", "no free form number after %d attempts", s.attempts)
}

// Get returns the application with its items and ledger when the actor may read it
func (s *applicationServiceImpl) Get(ctx context.Context, actor entity.Actor, id int64) (*ApplicationView, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	canView, err := s.policy.CanViewApplication(ctx, actor, app)
	if err != nil {
		return nil, err
	}
	if !canView {
		return nil, entity.Forbidden("not_visible", "application %d is not visible to this account", id)
	}

	canReview, err := s.policy.CanReviewApplication(ctx, actor, app)
	if err != nil {
		return nil, err
	}

	items, err := s.itemRepo.GetByApplicationID(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.GetByApplicationID(ctx, id)
	if err != nil {
		return nil, err
	}
	reimb, err := s.reimbRepo.GetByApplicationID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ApplicationView{
		Application:   app,
		Items:         items,
		Reviews:       reviews,
		Reimbursement: reimb,
		CanReview:     canReview,
		CanEdit:       s.policy.CanEditApplication(actor, app),
	}, nil
}

// Decide records a reviewer decision and moves the application along its chain.
// The read, permission check, ledger write and state update share one transaction.
func (s *applicationServiceImpl) Decide(ctx context.Context, actor entity.Actor, in DecideInput) (*DecisionResult, error) {
	if in.Amount != nil {
		if err := checkAmount(*in.Amount); err != nil {
			return nil, err
		}
	}

	decision := workflow.ParseDecision(in.Decision)
	comment := utils.SanitizeString(in.Comment)

	var (
		app      *entity.Application
		fromStep workflow.Step
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		app, err = s.load(txCtx, in.ApplicationID)
		if err != nil {
			return err
		}

		allowed, err := s.policy.CanReviewApplication(txCtx, actor, app)
		if err != nil {
			return err
		}
		if !allowed {
			return entity.Forbidden("not_your_turn", "application %d is at %s and cannot be reviewed by this account", app.ID, app.CurrentStep)
		}

		fromStep = app.CurrentStep
		requiresAmount := workflow.RequiresAmount(fromStep, decision)
		if requiresAmount && in.Amount == nil {
			return entity.Validation("amount_required", "an approved amount is required at %s", fromStep)
		}

		review := &entity.Review{
			ApplicationID: app.ID,
			ReviewerID:    actor.ID,
			ReviewerRole:  actor.Role,
			Step:          fromStep,
			Decision:      decision,
			Comment:       comment,
		}
		if requiresAmount {
			review.Amount = copyAmount(in.Amount)
			app.AmountApproved = copyAmount(in.Amount)
		}
		if err := s.reviewRepo.Create(txCtx, review); err != nil {
			return fmt.Errorf("record review: %w", err)
		}

		app.ApplyState(app.State().Decide(decision))
		return s.appRepo.Update(txCtx, app)
	})
	if err != nil {
		s.logger.Error("Failed to decide application", "id", in.ApplicationID, "actor_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Application decided",
		"id", app.ID, "decision", decision, "from_step", fromStep, "step", app.CurrentStep, "status", app.Status)

	publish(ctx, s.dispatcher, s.logger, event.NewEvent(decisionEventType(decision, app.Status), app.ID, actor.ID, map[string]interface{}{
		event.KeyFormNumber: app.FormNumber,
		event.KeyStep:       app.CurrentStep,
		event.KeyStatus:     app.Status,
		event.KeyAmount:     app.AmountApproved,
		event.KeyComment:    comment,
	}))

	return &DecisionResult{
		ApplicationID:  app.ID,
		Step:           app.CurrentStep,
		Status:         app.Status,
		AmountApproved: app.AmountApproved,
	}, nil
}

func decisionEventType(d workflow.Decision, status workflow.Status) event.Type {
	switch {
	case d != workflow.DecisionApprove:
		return event.TypeApplicationRejected
	case status == workflow.StatusApproved:
		return event.TypeApplicationApproved
	default:
		return event.TypeApplicationAdvanced
	}
}

// EditAndResubmit replaces the application's content. A rejected application
// re-enters its chain at the step the resolver picks.
func (s *applicationServiceImpl) EditAndResubmit(ctx context.Context, actor entity.Actor, in EditInput) (*entity.Application, error) {
	in.Details = sanitizeDetails(in.Details)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, validationError(err)
	}
	items, total, err := normalizeLineItems(in.Items)
	if err != nil {
		return nil, err
	}

	var (
		app         *entity.Application
		resubmitted bool
	)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		app, err = s.load(txCtx, in.ApplicationID)
		if err != nil {
			return err
		}
		if !s.policy.CanEditApplication(actor, app) {
			return entity.Forbidden("not_editable", "application %d can only be edited by its applicant after rejection", app.ID)
		}

		app.Details = in.Details
		app.TotalAmount = total
		if err := s.itemRepo.ReplaceForApplication(txCtx, app.ID, items); err != nil {
			return fmt.Errorf("replace line items: %w", err)
		}

		if app.Status == workflow.StatusRejected {
			if err := s.recordResubmit(txCtx, actor, app, editResubmitComment); err != nil {
				return err
			}
			resubmitted = true
		}

		return s.appRepo.Update(txCtx, app)
	})
	if err != nil {
		s.logger.Error("Failed to edit application", "id", in.ApplicationID, "actor_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Application edited", "id", app.ID, "resubmitted", resubmitted, "step", app.CurrentStep)
	if resubmitted {
		s.publishResubmitted(ctx, actor, app, editResubmitComment)
	}
	return app, nil
}

// Resubmit sends a rejected application back into its chain without changing its content
func (s *applicationServiceImpl) Resubmit(ctx context.Context, actor entity.Actor, id int64, comment string) (*entity.Application, error) {
	comment = utils.SanitizeString(comment)
	if comment == "" {
		comment = explicitResubmitComment
	}

	var app *entity.Application
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		app, err = s.load(txCtx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && app.ApplicantID != actor.ID {
			return entity.Forbidden("not_applicant", "only the applicant may resubmit application %d", id)
		}
		if app.Status != workflow.StatusRejected {
			return entity.Conflict("not_rejected", "application %d is %s, only rejected applications can be resubmitted", id, app.Status)
		}

		if err := s.recordResubmit(txCtx, actor, app, comment); err != nil {
			return err
		}
		return s.appRepo.Update(txCtx, app)
	})
	if err != nil {
		s.logger.Error("Failed to resubmit application", "id", id, "actor_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Application resubmitted", "id", app.ID, "step", app.CurrentStep)
	s.publishResubmitted(ctx, actor, app, comment)
	return app, nil
}

// recordResubmit writes the synthetic ledger entry and moves the application
// to its re-entry step. The caller persists the application.
func (s *applicationServiceImpl) recordResubmit(ctx context.Context, actor entity.Actor, app *entity.Application, comment string) error {
	review := &entity.Review{
		ApplicationID: app.ID,
		ReviewerID:    actor.ID,
		ReviewerRole:  workflow.RoleApplicant,
		Step:          app.CurrentStep,
		Decision:      workflow.DecisionResubmit,
		Comment:       comment,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return fmt.Errorf("record resubmission: %w", err)
	}

	app.ApplyState(app.State().Resubmit())
	return nil
}

func (s *applicationServiceImpl) publishResubmitted(ctx context.Context, actor entity.Actor, app *entity.Application, comment string) {
	publish(ctx, s.dispatcher, s.logger, event.NewEvent(event.TypeApplicationResubmitted, app.ID, actor.ID, map[string]interface{}{
		event.KeyFormNumber: app.FormNumber,
		event.KeyStep:       app.CurrentStep,
		event.KeyStatus:     app.Status,
		event.KeyComment:    comment,
	}))
}

// Delete removes an application with its ledger and reimbursement. Admin only.
func (s *applicationServiceImpl) Delete(ctx context.Context, actor entity.Actor, id int64) error {
	if !actor.IsAdmin() {
		return entity.Forbidden("admin_only", "only administrators may delete applications")
	}

	batch := newAttachmentBatch(s.storage, s.logger)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.load(txCtx, id); err != nil {
			return err
		}

		reimb, err := s.reimbRepo.GetByApplicationID(txCtx, id)
		if err != nil {
			return err
		}
		if reimb != nil {
			keys, err := reimbursementFiles(txCtx, s.receiptRepo, s.photoRepo, reimb.ID)
			if err != nil {
				return err
			}
			batch.retire(keys...)
		}

		return s.appRepo.Delete(txCtx, id)
	})
	if err != nil {
		s.logger.Error("Failed to delete application", "id", id, "error", err)
		return err
	}

	batch.commit(ctx)
	s.logger.Info("Application deleted", "id", id, "actor_id", actor.ID)
	publish(ctx, s.dispatcher, s.logger, event.NewEvent(event.TypeApplicationDeleted, id, actor.ID, nil))
	return nil
}

// ListMine returns the actor's own applications
func (s *applicationServiceImpl) ListMine(ctx context.Context, actor entity.Actor) ([]*entity.Application, error) {
	return s.appRepo.ListByApplicant(ctx, actor.ID)
}

// ListPending returns the applications waiting for the actor's decision
func (s *applicationServiceImpl) ListPending(ctx context.Context, actor entity.Actor) ([]*entity.Application, error) {
	switch actor.Role {
	case workflow.RoleAdmin:
		return s.appRepo.ListRecent(ctx, adminRecentLimit)
	case workflow.RoleOrgTeacher:
		return s.appRepo.ListForTeacher(ctx, actor.ID, pendingLimit)
	case workflow.RoleParliamentChair, workflow.RoleUnionPresident, workflow.RoleInstructor:
		return s.appRepo.ListAtStep(ctx, workflow.Step(actor.Role), pendingLimit)
	default:
		return nil, nil
	}
}

// ListReviewed returns the actor's most recent ledger entries
func (s *applicationServiceImpl) ListReviewed(ctx context.Context, actor entity.Actor) ([]*entity.ReviewSummary, error) {
	return s.reviewRepo.ListByReviewer(ctx, actor.ID, reviewedLimit)
}

func (s *applicationServiceImpl) load(ctx context.Context, id int64) (*entity.Application, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, entity.NotFound("application_not_found", "application %d not found", id)
	}
	return app, nil
}

// normalizeLineItems cleans the supplied lines and totals them
func normalizeLineItems(in []LineItemInput) ([]entity.LineItem, float64, error) {
	items := make([]entity.LineItem, 0, len(in))
	for i, item := range in {
		name := utils.SanitizeString(item.Name)
		if name == "" {
			return nil, 0, entity.Validation("empty_item_name", "line item %d has no name", i+1)
		}
		if err := checkAmount(item.Amount); err != nil {
			return nil, 0, err
		}
		items = append(items, entity.LineItem{
			Position: i + 1,
			Name:     name,
			Purpose:  utils.SanitizeString(item.Purpose),
			Amount:   item.Amount,
		})
	}
	return items, entity.SumLineItems(items), nil
}

func sanitizeDetails(d entity.ActivityDetails) entity.ActivityDetails {
	d.Title = utils.SanitizeString(d.Title)
	d.LeaderClass = utils.SanitizeString(d.LeaderClass)
	d.LeaderName = utils.SanitizeString(d.LeaderName)
	d.CoOrganizer = utils.SanitizeString(d.CoOrganizer)
	d.StartAt = utils.SanitizeString(d.StartAt)
	d.EndAt = utils.SanitizeString(d.EndAt)
	d.Location = utils.SanitizeString(d.Location)
	d.Target = utils.SanitizeString(d.Target)
	d.Purpose = utils.SanitizeString(d.Purpose)
	return d
}

// reimbursementFiles lists every stored key a reimbursement references
func reimbursementFiles(ctx context.Context, receipts port.ReceiptRepository, photos port.PhotoRepository, reimbursementID int64) ([]string, error) {
	items, err := receipts.GetByReimbursementID(ctx, reimbursementID)
	if err != nil {
		return nil, err
	}
	stored, err := photos.GetByReimbursementID(ctx, reimbursementID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(items)+len(stored))
	for _, item := range items {
		keys = append(keys, item.ReceiptPath)
	}
	for _, p := range stored {
		keys = append(keys, p.Path)
	}
	return keys, nil
}

package service

import (
	"context"
	"fmt"

	"github.com/garyjia/fund-review/internal/application/dispatcher"
	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/access"
	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/event"
	"github.com/garyjia/fund-review/internal/domain/workflow"
	"github.com/garyjia/fund-review/pkg/utils"
)

// ReimbursementService settles the expenses of approved applications
type ReimbursementService interface {
	Create(ctx context.Context, actor entity.Actor, in CreateReimbursementInput) (*entity.Reimbursement, error)
	Get(ctx context.Context, actor entity.Actor, id int64) (*ReimbursementView, error)
	Decide(ctx context.Context, actor entity.Actor, in ReimbursementDecideInput) (*ReimbursementDecisionResult, error)
	EditAndResubmit(ctx context.Context, actor entity.Actor, in EditReimbursementInput) (*entity.Reimbursement, error)
	Delete(ctx context.Context, actor entity.Actor, id int64) error
	ListPending(ctx context.Context, actor entity.Actor) ([]*entity.Reimbursement, error)
	ReadPhoto(ctx context.Context, actor entity.Actor, reimbursementID, photoID int64) (*entity.Photo, []byte, error)
}

// ReceiptInput is one settled expense line with an optional receipt image
type ReceiptInput struct {
	Name    string
	Purpose string
	Amount  float64
	Receipt *entity.Upload
}

// CreateReimbursementInput opens the settlement of an approved application
type CreateReimbursementInput struct {
	ApplicationID  int64
	Items          []ReceiptInput
	ActivityPhotos []entity.Upload
	FeedbackPhotos []entity.Upload
	Comment        string
}

// EditReimbursementInput corrects a rejected reimbursement. Photo groups
// left empty keep the photos already stored for that type.
type EditReimbursementInput struct {
	ReimbursementID int64
	Items           []ReceiptInput
	ActivityPhotos  []entity.Upload
	FeedbackPhotos  []entity.Upload
	Comment         string
}

// ReimbursementDecideInput is a reviewer decision on a reimbursement.
// Amount applies at the chair step and defaults to the total.
type ReimbursementDecideInput struct {
	ReimbursementID int64
	Decision        string
	Comment         string
	Amount          *float64
}

// ReimbursementDecisionResult is the workflow position after a decision
type ReimbursementDecisionResult struct {
	ReimbursementID int64           `json:"reimbursement_id"`
	Step            workflow.Step   `json:"current_step"`
	Status          workflow.Status `json:"status"`
	ApprovedAmount  *float64        `json:"approved_amount,omitempty"`
}

// ReimbursementView is everything an actor may read about one reimbursement
type ReimbursementView struct {
	Reimbursement *entity.Reimbursement         `json:"reimbursement"`
	Application   *entity.Application           `json:"application,omitempty"`
	Items         []entity.ReceiptItem          `json:"items"`
	Photos        []*entity.Photo               `json:"photos"`
	Reviews       []*entity.ReimbursementReview `json:"reviews"`
	CanReview     bool                          `json:"can_review"`
	CanEdit       bool                          `json:"can_edit"`
}

type reimbursementServiceImpl struct {
	appRepo     port.ApplicationRepository
	reimbRepo   port.ReimbursementRepository
	receiptRepo port.ReceiptRepository
	photoRepo   port.PhotoRepository
	ledgerRepo  port.ReimbursementReviewRepository
	txManager   port.TransactionManager
	storage     port.FileStorage
	dispatcher  dispatcher.Dispatcher
	policy      *access.Policy
	logger      Logger
}

// NewReimbursementService creates a new ReimbursementService
func NewReimbursementService(deps Deps) ReimbursementService {
	return &reimbursementServiceImpl{
		appRepo:     deps.Repos.Applications,
		reimbRepo:   deps.Repos.Reimbursements,
		receiptRepo: deps.Repos.Receipts,
		photoRepo:   deps.Repos.Photos,
		ledgerRepo:  deps.Repos.ReimbursementReviews,
		txManager:   deps.TxManager,
		storage:     deps.Storage,
		dispatcher:  deps.Dispatcher,
		policy:      newPolicy(deps.Repos),
		logger:      deps.Logger,
	}
}

// Create opens the reimbursement of an approved application. Inputs are
// validated before anything is written; stored files are removed again
// when the transaction fails.
func (s *reimbursementServiceImpl) Create(ctx context.Context, actor entity.Actor, in CreateReimbursementInput) (*entity.Reimbursement, error) {
	if err := entity.CheckPhotoCounts(len(in.ActivityPhotos), len(in.FeedbackPhotos)); err != nil {
		return nil, err
	}
	if err := checkUploads(in.ActivityPhotos, in.FeedbackPhotos, receiptUploads(in.Items)); err != nil {
		return nil, err
	}
	if err := checkReceipts(in.Items); err != nil {
		return nil, err
	}

	batch := newAttachmentBatch(s.storage, s.logger)
	reimb := &entity.Reimbursement{
		ApplicationID: in.ApplicationID,
		TotalAmount:   receiptTotal(in.Items),
		Comment:       utils.SanitizeString(in.Comment),
	}
	reimb.ApplyState(workflow.NewReimbursementState())

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		app, err := s.appRepo.GetByID(txCtx, in.ApplicationID)
		if err != nil {
			return err
		}
		if app == nil {
			return entity.NotFound("application_not_found", "application %d not found", in.ApplicationID)
		}
		if !actor.IsAdmin() && app.ApplicantID != actor.ID {
			return entity.Forbidden("not_applicant", "only the applicant may settle application %d", app.ID)
		}
		if app.Status != workflow.StatusApproved {
			return entity.Validation("application_not_approved", "application %d is %s, only approved applications can be reimbursed", app.ID, app.Status)
		}

		existing, err := s.reimbRepo.GetByApplicationID(txCtx, app.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return entity.Conflict("already_reimbursed", "application %d already has reimbursement %d", app.ID, existing.ID)
		}

		reimb.ApplicantID = app.ApplicantID
		if err := s.reimbRepo.Create(txCtx, reimb); err != nil {
			return err
		}

		items, err := s.storeReceipts(txCtx, batch, reimb.ID, in.Items)
		if err != nil {
			return err
		}
		if err := s.receiptRepo.ReplaceForReimbursement(txCtx, reimb.ID, items); err != nil {
			return fmt.Errorf("save receipt items: %w", err)
		}
		if err := s.storePhotos(txCtx, batch, reimb.ID, entity.PhotoActivity, in.ActivityPhotos); err != nil {
			return err
		}
		return s.storePhotos(txCtx, batch, reimb.ID, entity.PhotoFeedback, in.FeedbackPhotos)
	})
	if err != nil {
		batch.discard(ctx)
		s.logger.Error("Failed to create reimbursement", "application_id", in.ApplicationID, "actor_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Reimbursement created", "id", reimb.ID, "application_id", reimb.ApplicationID, "total", reimb.TotalAmount)
	publish(ctx, s.dispatcher, s.logger, event.NewEvent(event.TypeReimbursementCreated, reimb.ID, actor.ID, map[string]interface{}{
		event.KeyStep:   reimb.CurrentStep,
		event.KeyStatus: reimb.Status,
		event.KeyAmount: reimb.TotalAmount,
	}))

	return reimb, nil
}

// Get returns the reimbursement with its attachments and ledger when the actor may read it
func (s *reimbursementServiceImpl) Get(ctx context.Context, actor entity.Actor, id int64) (*ReimbursementView, error) {
	reimb, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanViewReimbursement(actor, reimb) {
		return nil, entity.Forbidden("not_visible", "reimbursement %d is not visible to this account", id)
	}

	app, err := s.appRepo.GetByID(ctx, reimb.ApplicationID)
	if err != nil {
		return nil, err
	}
	items, err := s.receiptRepo.GetByReimbursementID(ctx, id)
	if err != nil {
		return nil, err
	}
	photos, err := s.photoRepo.GetByReimbursementID(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.ledgerRepo.GetByReimbursementID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ReimbursementView{
		Reimbursement: reimb,
		Application:   app,
		Items:         items,
		Photos:        photos,
		Reviews:       reviews,
		CanReview:     s.policy.CanReviewReimbursement(actor, reimb),
		CanEdit:       s.policy.CanEditReimbursement(actor, reimb),
	}, nil
}

// Decide records a sign-off and moves the reimbursement along the finance chain
func (s *reimbursementServiceImpl) Decide(ctx context.Context, actor entity.Actor, in ReimbursementDecideInput) (*ReimbursementDecisionResult, error) {
	if in.Amount != nil {
		if err := checkAmount(*in.Amount); err != nil {
			return nil, err
		}
	}

	decision := workflow.ParseDecision(in.Decision)
	comment := utils.SanitizeString(in.Comment)

	var (
		reimb    *entity.Reimbursement
		fromStep workflow.Step
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		reimb, err = s.load(txCtx, in.ReimbursementID)
		if err != nil {
			return err
		}
		if !s.policy.CanReviewReimbursement(actor, reimb) {
			return entity.Forbidden("not_your_turn", "reimbursement %d is at %s and cannot be reviewed by this account", reimb.ID, reimb.CurrentStep)
		}

		fromStep = reimb.CurrentStep
		state := reimb.State()
		if decision == workflow.DecisionApprove && state.SetsApprovedAmount() {
			amount := reimb.TotalAmount
			if in.Amount != nil {
				amount = *in.Amount
			}
			reimb.ApprovedAmount = &amount
		}

		review := &entity.ReimbursementReview{
			ReimbursementID: reimb.ID,
			ReviewerID:      actor.ID,
			Decision:        decision,
			Comment:         comment,
		}
		if err := s.ledgerRepo.Create(txCtx, review); err != nil {
			return fmt.Errorf("record reimbursement review: %w", err)
		}

		reimb.ApplyState(state.Decide(decision))
		return s.reimbRepo.Update(txCtx, reimb)
	})
	if err != nil {
		s.logger.Error("Failed to decide reimbursement", "id", in.ReimbursementID, "actor_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Reimbursement decided",
		"id", reimb.ID, "decision", decision, "from_step", fromStep, "step", reimb.CurrentStep, "status", reimb.Status)

	publish(ctx, s.dispatcher, s.logger, event.NewEvent(reimbursementEventType(decision, reimb.Status), reimb.ID, actor.ID, map[string]interface{}{
		event.KeyStep:    reimb.CurrentStep,
		event.KeyStatus:  reimb.Status,
		event.KeyAmount:  reimb.ApprovedAmount,
		event.KeyComment: comment,
	}))

	return &ReimbursementDecisionResult{
		ReimbursementID: reimb.ID,
		Step:            reimb.CurrentStep,
		Status:          reimb.Status,
		ApprovedAmount:  reimb.ApprovedAmount,
	}, nil
}

func reimbursementEventType(d workflow.Decision, status workflow.Status) event.Type {
	switch {
	case d != workflow.DecisionApprove:
		return event.TypeReimbursementRejected
	case status == workflow.StatusApproved:
		return event.TypeReimbursementApproved
	default:
		return event.TypeReimbursementAdvanced
	}
}

// EditAndResubmit replaces the receipts, optionally replaces photos per type,
// and restarts the finance chain
func (s *reimbursementServiceImpl) EditAndResubmit(ctx context.Context, actor entity.Actor, in EditReimbursementInput) (*entity.Reimbursement, error) {
	if err := checkUploads(in.ActivityPhotos, in.FeedbackPhotos, receiptUploads(in.Items)); err != nil {
		return nil, err
	}
	if err := checkReceipts(in.Items); err != nil {
		return nil, err
	}

	batch := newAttachmentBatch(s.storage, s.logger)
	comment := utils.SanitizeString(in.Comment)

	var reimb *entity.Reimbursement
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		reimb, err = s.load(txCtx, in.ReimbursementID)
		if err != nil {
			return err
		}
		if !s.policy.CanEditReimbursement(actor, reimb) {
			return entity.Forbidden("not_editable", "reimbursement %d can only be edited by its applicant after rejection", reimb.ID)
		}

		counts, err := s.photoRepo.CountByType(txCtx, reimb.ID)
		if err != nil {
			return err
		}
		activity, feedback := counts[entity.PhotoActivity], counts[entity.PhotoFeedback]
		if len(in.ActivityPhotos) > 0 {
			activity = len(in.ActivityPhotos)
		}
		if len(in.FeedbackPhotos) > 0 {
			feedback = len(in.FeedbackPhotos)
		}
		if err := entity.CheckPhotoCounts(activity, feedback); err != nil {
			return err
		}

		oldItems, err := s.receiptRepo.GetByReimbursementID(txCtx, reimb.ID)
		if err != nil {
			return err
		}
		for _, item := range oldItems {
			batch.retire(item.ReceiptPath)
		}

		items, err := s.storeReceipts(txCtx, batch, reimb.ID, in.Items)
		if err != nil {
			return err
		}
		if err := s.receiptRepo.ReplaceForReimbursement(txCtx, reimb.ID, items); err != nil {
			return fmt.Errorf("replace receipt items: %w", err)
		}

		if err := s.replacePhotos(txCtx, batch, reimb.ID, entity.PhotoActivity, in.ActivityPhotos); err != nil {
			return err
		}
		if err := s.replacePhotos(txCtx, batch, reimb.ID, entity.PhotoFeedback, in.FeedbackPhotos); err != nil {
			return err
		}

		review := &entity.ReimbursementReview{
			ReimbursementID: reimb.ID,
			ReviewerID:      actor.ID,
			Decision:        workflow.DecisionResubmit,
			Comment:         editResubmitComment,
		}
		if err := s.ledgerRepo.Create(txCtx, review); err != nil {
			return fmt.Errorf("record resubmission: %w", err)
		}

		reimb.TotalAmount = entity.SumReceiptItems(items)
		if comment != "" {
			reimb.Comment = comment
		}
		reimb.ApplyState(reimb.State().Resubmit())
		return s.reimbRepo.Update(txCtx, reimb)
	})
	if err != nil {
		batch.discard(ctx)
		s.logger.Error("Failed to edit reimbursement", "id", in.ReimbursementID, "actor_id", actor.ID, "error", err)
		return nil, err
	}

	batch.commit(ctx)
	s.logger.Info("Reimbursement resubmitted", "id", reimb.ID, "total", reimb.TotalAmount)
	publish(ctx, s.dispatcher, s.logger, event.NewEvent(event.TypeReimbursementResubmitted, reimb.ID, actor.ID, map[string]interface{}{
		event.KeyStep:   reimb.CurrentStep,
		event.KeyStatus: reimb.Status,
		event.KeyAmount: reimb.TotalAmount,
	}))

	return reimb, nil
}

// Delete removes a reimbursement and its attachments. Admin only.
func (s *reimbursementServiceImpl) Delete(ctx context.Context, actor entity.Actor, id int64) error {
	if !actor.IsAdmin() {
		return entity.Forbidden("admin_only", "only administrators may delete reimbursements")
	}

	batch := newAttachmentBatch(s.storage, s.logger)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.load(txCtx, id); err != nil {
			return err
		}
		keys, err := reimbursementFiles(txCtx, s.receiptRepo, s.photoRepo, id)
		if err != nil {
			return err
		}
		batch.retire(keys...)
		return s.reimbRepo.Delete(txCtx, id)
	})
	if err != nil {
		s.logger.Error("Failed to delete reimbursement", "id", id, "error", err)
		return err
	}

	batch.commit(ctx)
	s.logger.Info("Reimbursement deleted", "id", id, "actor_id", actor.ID)
	publish(ctx, s.dispatcher, s.logger, event.NewEvent(event.TypeReimbursementDeleted, id, actor.ID, nil))
	return nil
}

// ListPending returns the reimbursements waiting for the actor's sign-off
func (s *reimbursementServiceImpl) ListPending(ctx context.Context, actor entity.Actor) ([]*entity.Reimbursement, error) {
	switch actor.Role {
	case workflow.RoleAdmin:
		return s.reimbRepo.ListOpen(ctx, pendingLimit)
	case workflow.RoleUnionFinance, workflow.RoleUnionTreasurer, workflow.RoleUnionPresident, workflow.RoleParliamentChair:
		return s.reimbRepo.ListAtStep(ctx, workflow.Step(actor.Role), pendingLimit)
	default:
		return nil, nil
	}
}

// ReadPhoto returns a stored photo's content when the actor may read its reimbursement
func (s *reimbursementServiceImpl) ReadPhoto(ctx context.Context, actor entity.Actor, reimbursementID, photoID int64) (*entity.Photo, []byte, error) {
	reimb, err := s.load(ctx, reimbursementID)
	if err != nil {
		return nil, nil, err
	}
	if !s.policy.CanViewReimbursement(actor, reimb) {
		return nil, nil, entity.Forbidden("not_visible", "reimbursement %d is not visible to this account", reimbursementID)
	}

	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return nil, nil, err
	}
	if photo == nil || photo.ReimbursementID != reimbursementID {
		return nil, nil, entity.NotFound("photo_not_found", "photo %d not found on reimbursement %d", photoID, reimbursementID)
	}

	content, err := s.storage.Read(ctx, photo.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("read photo %d: %w", photoID, err)
	}
	return photo, content, nil
}

func (s *reimbursementServiceImpl) load(ctx context.Context, id int64) (*entity.Reimbursement, error) {
	reimb, err := s.reimbRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reimb == nil {
		return nil, entity.NotFound("reimbursement_not_found", "reimbursement %d not found", id)
	}
	return reimb, nil
}

// storeReceipts saves receipt images and builds the item rows
func (s *reimbursementServiceImpl) storeReceipts(ctx context.Context, batch *attachmentBatch, reimbursementID int64, in []ReceiptInput) ([]entity.ReceiptItem, error) {
	items := make([]entity.ReceiptItem, 0, len(in))
	for i, r := range in {
		item := entity.ReceiptItem{
			ReimbursementID: reimbursementID,
			Name:            utils.SanitizeString(r.Name),
			Purpose:         utils.SanitizeString(r.Purpose),
			Amount:          r.Amount,
		}
		if r.Receipt != nil {
			key, err := batch.save(ctx, reimbursementID, fmt.Sprintf("receipt%d", i), *r.Receipt)
			if err != nil {
				return nil, err
			}
			item.ReceiptPath = key
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *reimbursementServiceImpl) storePhotos(ctx context.Context, batch *attachmentBatch, reimbursementID int64, photoType entity.PhotoType, uploads []entity.Upload) error {
	for i, upload := range uploads {
		key, err := batch.save(ctx, reimbursementID, fmt.Sprintf("%s%d", photoType, i), upload)
		if err != nil {
			return err
		}
		photo := &entity.Photo{ReimbursementID: reimbursementID, Type: photoType, Path: key}
		if err := s.photoRepo.Create(ctx, photo); err != nil {
			return fmt.Errorf("save %s photo: %w", photoType, err)
		}
	}
	return nil
}

// replacePhotos swaps every photo of one type when new uploads are supplied
func (s *reimbursementServiceImpl) replacePhotos(ctx context.Context, batch *attachmentBatch, reimbursementID int64, photoType entity.PhotoType, uploads []entity.Upload) error {
	if len(uploads) == 0 {
		return nil
	}

	existing, err := s.photoRepo.GetByReimbursementID(ctx, reimbursementID)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p.Type == photoType {
			batch.retire(p.Path)
		}
	}

	if err := s.photoRepo.DeleteByType(ctx, reimbursementID, photoType); err != nil {
		return err
	}
	return s.storePhotos(ctx, batch, reimbursementID, photoType, uploads)
}

func checkReceipts(items []ReceiptInput) error {
	for i, item := range items {
		if utils.SanitizeString(item.Name) == "" {
			return entity.Validation("empty_item_name", "receipt item %d has no name", i+1)
		}
		if err := checkAmount(item.Amount); err != nil {
			return err
		}
	}
	return nil
}

func receiptUploads(items []ReceiptInput) []entity.Upload {
	var uploads []entity.Upload
	for _, item := range items {
		if item.Receipt != nil {
			uploads = append(uploads, *item.Receipt)
		}
	}
	return uploads
}

func receiptTotal(items []ReceiptInput) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount
	}
	return total
}

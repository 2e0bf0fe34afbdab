package notification

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/fund-review/internal/application/dispatcher"
	"github.com/garyjia/fund-review/internal/domain/event"
	"github.com/garyjia/fund-review/internal/domain/workflow"
)

// HandlerName is the name the notifier subscribes under
const HandlerName = "review-notifier"

// ReviewNotifier tells whoever acts next on a document that it is waiting for them.
// Delivery is a structured log line; a mail or chat channel can subscribe the same way.
type ReviewNotifier struct {
	logger *zap.Logger
}

// NewReviewNotifier creates a new review notifier
func NewReviewNotifier(logger *zap.Logger) *ReviewNotifier {
	return &ReviewNotifier{logger: logger.Named("notifier")}
}

// Register subscribes the notifier to every workflow event
func (n *ReviewNotifier) Register(d dispatcher.Dispatcher) {
	for _, typ := range []event.Type{
		event.TypeApplicationSubmitted,
		event.TypeApplicationAdvanced,
		event.TypeApplicationApproved,
		event.TypeApplicationRejected,
		event.TypeApplicationResubmitted,
		event.TypeApplicationDeleted,
		event.TypeReimbursementCreated,
		event.TypeReimbursementAdvanced,
		event.TypeReimbursementApproved,
		event.TypeReimbursementRejected,
		event.TypeReimbursementResubmitted,
		event.TypeReimbursementDeleted,
	} {
		d.SubscribeNamed(typ, HandlerName, n.Handle,
			dispatcher.Describe("tells the next reviewer or the applicant that a document needs them"))
	}
}

// Handle logs who has to act after the event
func (n *ReviewNotifier) Handle(ctx context.Context, evt *event.Event) error {
	fields := []zap.Field{
		zap.String("event_type", evt.Type.String()),
		zap.String("document", documentKind(evt.Type)),
		zap.Int64("document_id", evt.DocumentID),
		zap.Int64("actor_id", evt.ActorID),
		zap.String("correlation_id", evt.CorrelationID),
	}
	if formNumber := evt.GetPayloadString(event.KeyFormNumber); formNumber != "" {
		fields = append(fields, zap.String("form_number", formNumber))
	}

	step := workflow.Step(evt.GetPayloadString(event.KeyStep))
	switch {
	case strings.HasSuffix(evt.Type.String(), ".deleted"):
		n.logger.Info("Document removed", fields...)
	case step == workflow.StepRejected:
		fields = append(fields, zap.String("comment", evt.GetPayloadString(event.KeyComment)))
		n.logger.Info("Applicant must revise and resubmit", fields...)
	case step == workflow.StepCompleted:
		if amount, ok := evt.GetPayloadFloat(event.KeyAmount); ok {
			fields = append(fields, zap.Float64("amount", amount))
		}
		n.logger.Info("Applicant notified of final approval", fields...)
	case step.IsValid():
		fields = append(fields, zap.String("step", step.String()), zap.String("next_role", NextRole(step).String()))
		n.logger.Info("Review requested", fields...)
	default:
		n.logger.Warn("Event carries no workflow step", fields...)
	}
	return nil
}

// NextRole returns the role that decides at a step
func NextRole(step workflow.Step) workflow.Role {
	if step == workflow.StepDeptTeacher {
		return workflow.RoleOrgTeacher
	}
	return workflow.Role(step)
}

func documentKind(t event.Type) string {
	if i := strings.IndexByte(t.String(), '.'); i > 0 {
		return t.String()[:i]
	}
	return t.String()
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/garyjia/fund-review/internal/application/dispatcher"
	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/access"
	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/event"
	"github.com/garyjia/fund-review/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Repositories groups the persistence ports the workflow services use
type Repositories struct {
	Applications         port.ApplicationRepository
	LineItems            port.LineItemRepository
	Reviews              port.ReviewRepository
	Assignments          port.AssignmentRepository
	Reimbursements       port.ReimbursementRepository
	Receipts             port.ReceiptRepository
	Photos               port.PhotoRepository
	ReimbursementReviews port.ReimbursementReviewRepository
}

// Deps carries the collaborators shared by the workflow services
type Deps struct {
	Repos      Repositories
	TxManager  port.TransactionManager
	Storage    port.FileStorage
	Dispatcher dispatcher.Dispatcher
	Logger     Logger
}

// Queue sizes
const (
	pendingLimit     = 200
	adminRecentLimit = 20
	reviewedLimit    = 50
)

const (
	editResubmitComment     = "edited and resubmitted"
	explicitResubmitComment = "resubmitted"
)

func newPolicy(repos Repositories) *access.Policy {
	return access.NewPolicy(repos.Assignments, repos.Reviews)
}

// publish hands a committed event to the dispatcher. Handler failures are
// logged and never reach the caller.
func publish(ctx context.Context, d dispatcher.Dispatcher, logger Logger, evt *event.Event) {
	if d == nil {
		return
	}
	if err := d.Dispatch(ctx, evt); err != nil && !errors.Is(err, dispatcher.ErrClosed) {
		logger.Error("Event handlers failed", "event_type", evt.Type, "document_id", evt.DocumentID, "error", err)
	}
}

// validationError converts struct tag failures into a domain validation error
func validationError(err error) error {
	fields := utils.FieldErrors(err)
	if len(fields) == 0 {
		return entity.Validation("invalid_input", "%v", err)
	}

	var names []string
	for field, rule := range fields {
		names = append(names, field+" ("+rule+")")
	}
	code := "invalid_" + fieldCode(firstKey(fields))
	return entity.Validation(code, "invalid fields: %s", strings.Join(names, ", "))
}

func firstKey(m map[string]string) string {
	first := ""
	for k := range m {
		if first == "" || k < first {
			first = k
		}
	}
	return first
}

// fieldCode reduces a validator namespace such as "SubmitInput.details.title" to "title"
func fieldCode(namespace string) string {
	if i := strings.LastIndex(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func checkAmount(amount float64) error {
	if err := utils.ValidateAmount(amount); err != nil {
		return entity.Validation("invalid_amount", "%v", err)
	}
	return nil
}

func copyAmount(amount *float64) *float64 {
	if amount == nil {
		return nil
	}
	v := *amount
	return &v
}

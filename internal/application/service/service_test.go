package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/fund-review/internal/application/dispatcher"
	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/entity"
	"github.com/garyjia/fund-review/internal/domain/event"
	"github.com/garyjia/fund-review/internal/domain/workflow"
	"github.com/garyjia/fund-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/fund-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/fund-review/internal/infrastructure/storage"
	"github.com/garyjia/fund-review/pkg/database"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

var allEventTypes = []event.Type{
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
}

// eventRecorder collects every dispatched event type in order
type eventRecorder struct {
	mu    sync.Mutex
	types []event.Type
}

func (r *eventRecorder) handle(ctx context.Context, evt *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, evt.Type)
	return nil
}

func (r *eventRecorder) Types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Type(nil), r.types...)
}

type testEnv struct {
	db          *sql.DB
	repos       Repositories
	storage     port.FileStorage
	events      *eventRecorder
	apps        ApplicationService
	reimbs      ReimbursementService
	assignments AssignmentService
}

const testOrgID int64 = 7

var (
	admin      = entity.Actor{ID: 1, Role: workflow.RoleAdmin}
	applicant  = entity.Actor{ID: 10, Role: workflow.RoleOrg, OrgID: int64Ptr(testOrgID)}
	teacher    = entity.Actor{ID: 20, Role: workflow.RoleOrgTeacher}
	chair      = entity.Actor{ID: 30, Role: workflow.RoleParliamentChair}
	president  = entity.Actor{ID: 40, Role: workflow.RoleUnionPresident}
	instructor = entity.Actor{ID: 50, Role: workflow.RoleInstructor}
	finance    = entity.Actor{ID: 60, Role: workflow.RoleUnionFinance}
	treasurer  = entity.Actor{ID: 70, Role: workflow.RoleUnionTreasurer}
)

func int64Ptr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

// newTestEnv wires the services against a migrated sqlite database in a temp dir.
// A nil fs uses local storage under the same temp dir.
func newTestEnv(t *testing.T, fs port.FileStorage, opts ...ApplicationOption) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	dir := t.TempDir()

	db, err := database.New(database.Config{Path: filepath.Join(dir, "fund.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(database.EmbeddedMigrations()))

	if fs == nil {
		fs = storage.NewLocalFileStorage(filepath.Join(dir, "uploads"), logger)
	}

	repos := Repositories{
		Applications:         repository.NewApplicationRepository(db.DB, logger),
		LineItems:            repository.NewLineItemRepository(db.DB, logger),
		Reviews:              repository.NewReviewRepository(db.DB, logger),
		Assignments:          repository.NewAssignmentRepository(db.DB, logger),
		Reimbursements:       repository.NewReimbursementRepository(db.DB, logger),
		Receipts:             repository.NewReceiptRepository(db.DB, logger),
		Photos:               repository.NewPhotoRepository(db.DB, logger),
		ReimbursementReviews: repository.NewReimbursementReviewRepository(db.DB, logger),
	}

	recorder := &eventRecorder{}
	d := dispatcher.NewDispatcher()
	for _, typ := range allEventTypes {
		d.Subscribe(typ, recorder.handle)
	}

	deps := Deps{
		Repos:      repos,
		TxManager:  sqlite.NewDB(db.DB, logger),
		Storage:    fs,
		Dispatcher: d,
		Logger:     &mockLogger{},
	}

	return &testEnv{
		db:          db.DB,
		repos:       repos,
		storage:     fs,
		events:      recorder,
		apps:        NewApplicationService(deps, opts...),
		reimbs:      NewReimbursementService(deps),
		assignments: NewAssignmentService(deps),
	}
}

func orgSubmission() SubmitInput {
	return SubmitInput{
		Details: entity.ActivityDetails{Title: "Spring concert", ExpectedPeople: 80, Location: "Main hall"},
		Items: []LineItemInput{
			{Name: "Stage rental", Purpose: "two evenings", Amount: 3000},
			{Name: "Sound system", Amount: 2500},
		},
	}
}

// assignTeacher binds the test teacher to the test organization
func (e *testEnv) assignTeacher(t *testing.T) {
	t.Helper()
	_, err := e.assignments.AssignTeacher(context.Background(), admin, testOrgID, teacher.ID)
	require.NoError(t, err)
}

// approvedApplication walks an org application through its whole chain
func (e *testEnv) approvedApplication(t *testing.T) *entity.Application {
	t.Helper()
	ctx := context.Background()
	e.assignTeacher(t)

	app, err := e.apps.Submit(ctx, applicant, orgSubmission())
	require.NoError(t, err)

	_, err = e.apps.Decide(ctx, teacher, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)
	_, err = e.apps.Decide(ctx, chair, DecideInput{ApplicationID: app.ID, Decision: "approve", Amount: floatPtr(5000)})
	require.NoError(t, err)
	res, err := e.apps.Decide(ctx, president, DecideInput{ApplicationID: app.ID, Decision: "approve"})
	require.NoError(t, err)
	require.Equal(t, workflow.StatusApproved, res.Status)

	got, err := e.repos.Applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	return got
}

package container

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/fund-review/internal/application/dispatcher"
	"github.com/garyjia/fund-review/internal/application/notification"
	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/application/service"
	"github.com/garyjia/fund-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/fund-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/fund-review/internal/infrastructure/storage"
	httpapi "github.com/garyjia/fund-review/internal/interfaces/http"
	"github.com/garyjia/fund-review/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *service.Repositories
	TxManager  port.TransactionManager
	Storage    port.FileStorage
	Dispatcher dispatcher.Dispatcher
	Workflow   *WorkflowConfig
	Logger     *zap.Logger
}

// ProvideDatabase opens the database and applies pending migrations, from
// MigrationsDir when set and from the embedded schema otherwise.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(conn, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrationsFromDir(cfg.MigrationsDir)
	} else {
		err = migrator.RunMigrations(database.EmbeddedMigrations())
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*service.Repositories, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &service.Repositories{
		Applications:         repository.NewApplicationRepository(sqlDB, logger),
		LineItems:            repository.NewLineItemRepository(sqlDB, logger),
		Reviews:              repository.NewReviewRepository(sqlDB, logger),
		Assignments:          repository.NewAssignmentRepository(sqlDB, logger),
		Reimbursements:       repository.NewReimbursementRepository(sqlDB, logger),
		Receipts:             repository.NewReceiptRepository(sqlDB, logger),
		Photos:               repository.NewPhotoRepository(sqlDB, logger),
		ReimbursementReviews: repository.NewReimbursementReviewRepository(sqlDB, logger),
	}, nil
}

// ProvideStorage creates the attachment storage for the configured driver.
func ProvideStorage(ctx context.Context, cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case "local":
		if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir: %w", err)
		}
		return storage.NewLocalFileStorage(cfg.LocalDir, logger), nil
	case "minio":
		return storage.NewMinioFileStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	), nil
}

// ProvideNotifier creates the review notifier and subscribes it to d.
func ProvideNotifier(d dispatcher.Dispatcher, logger *zap.Logger) *notification.ReviewNotifier {
	n := notification.NewReviewNotifier(logger)
	n.Register(d)
	return n
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service deps are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("file storage is required")
	}
	if deps.Workflow == nil {
		return nil, fmt.Errorf("workflow config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	shared := service.Deps{
		Repos:      *deps.Repos,
		TxManager:  deps.TxManager,
		Storage:    deps.Storage,
		Dispatcher: deps.Dispatcher,
		Logger:     &zapLoggerAdapter{logger: deps.Logger.Named("service")},
	}

	return &ServiceBundle{
		Applications: service.NewApplicationService(shared,
			service.WithUnionOrgID(deps.Workflow.UnionOrgID),
			service.WithFormNumberAttempts(deps.Workflow.FormNumberAttempts),
		),
		Reimbursements: service.NewReimbursementService(shared),
		Assignments:    service.NewAssignmentService(shared),
	}, nil
}

// ProvideServer creates the HTTP server over the application services.
func ProvideServer(cfg *ServerConfig, services *ServiceBundle, health httpapi.HealthFunc, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(
		httpapi.ServerConfig{
			Host:           cfg.Host,
			Port:           cfg.Port,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			Mode:           cfg.Mode,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		httpapi.Services{
			Applications:   services.Applications,
			Reimbursements: services.Reimbursements,
			Assignments:    services.Assignments,
		},
		health,
		&zapLoggerAdapter{logger: logger.Named("http")},
	)
}

// Package container provides dependency injection and lifecycle management
// for the fund review service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Workflow WorkflowConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// StorageConfig holds attachment storage settings.
type StorageConfig struct {
	// Driver is "local" or "minio"
	Driver   string
	LocalDir string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// WorkflowConfig holds approval workflow settings.
type WorkflowConfig struct {
	// UnionOrgID owns every union-type application
	UnionOrgID int64

	// FormNumberAttempts bounds retries on form number collisions
	FormNumberAttempts int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Mode         string

	// MaxUploadBytes caps multipart request bodies
	MaxUploadBytes int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/fund_review.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Driver:   "local",
			LocalDir: "uploads",
		},
		Workflow: WorkflowConfig{
			UnionOrgID:         1,
			FormNumberAttempts: 5,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			Mode:           "release",
			MaxUploadBytes: 32 << 20,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage local dir is required")
		}
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return fmt.Errorf("minio endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Workflow.UnionOrgID <= 0 {
		return fmt.Errorf("union org id must be positive")
	}
	if c.Workflow.FormNumberAttempts <= 0 {
		return fmt.Errorf("form number attempts must be positive")
	}

	return nil
}

package config

import (
	"github.com/garyjia/fund-review/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Storage: container.StorageConfig{
			Driver:         c.Storage.Driver,
			LocalDir:       c.Storage.LocalDir,
			MinioEndpoint:  c.Storage.Minio.Endpoint,
			MinioAccessKey: c.Storage.Minio.AccessKey,
			MinioSecretKey: c.Storage.Minio.SecretKey,
			MinioBucket:    c.Storage.Minio.Bucket,
			MinioUseSSL:    c.Storage.Minio.UseSSL,
		},
		Workflow: container.WorkflowConfig{
			UnionOrgID:         c.Workflow.UnionOrgID,
			FormNumberAttempts: c.Workflow.FormNumberAttempts,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			Mode:           c.Server.Mode,
			MaxUploadBytes: c.Storage.MaxUploadMB << 20,
		},
	}
}

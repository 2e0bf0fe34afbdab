// Package http provides the HTTP adapter for the application layer.
// It translates requests into service calls and domain errors into status codes.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/garyjia/fund-review/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Mode         string

	// MaxUploadBytes caps multipart request bodies
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		Mode:           gin.ReleaseMode,
		MaxUploadBytes: 32 << 20,
	}
}

// Services are the application services exposed over HTTP
type Services struct {
	Applications   service.ApplicationService
	Reimbursements service.ReimbursementService
	Assignments    service.AssignmentService
}

// HealthFunc reports overall health and a component breakdown
type HealthFunc func() (bool, interface{})

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	health     HealthFunc
	logger     Logger
	mu         sync.Mutex
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, health HealthFunc, logger Logger) *Server {
	gin.SetMode(ginMode(config.Mode))
	binding.Validator = structValidator{}

	router := gin.New()
	if config.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = config.MaxUploadBytes
	}

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		health:   health,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		kv := []interface{}{
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if actor, ok := actorFrom(c); ok {
			kv = append(kv, "actor_id", actor.ID, "actor_role", actor.Role)
		}
		if code, ok := c.Get(errorCodeKey); ok {
			kv = append(kv, "error_code", code)
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error("HTTP request", kv...)
			return
		}
		s.logger.Info("HTTP request", kv...)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.health, s.logger)
	upload := uploadLimit(s.config.MaxUploadBytes)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api", actorMiddleware())
	{
		api.POST("/applications", h.SubmitApplication)
		api.GET("/applications/:id", h.GetApplication)
		api.PUT("/applications/:id", h.EditApplication)
		api.DELETE("/applications/:id", h.DeleteApplication)
		api.POST("/applications/:id/decisions", h.DecideApplication)
		api.POST("/applications/:id/resubmit", h.ResubmitApplication)
		api.POST("/applications/:id/reimbursement", upload, h.CreateReimbursement)

		api.GET("/me/applications", h.ListMyApplications)
		api.GET("/me/reviews", h.ListMyReviews)
		api.GET("/queue/applications", h.ListPendingApplications)
		api.GET("/queue/reimbursements", h.ListPendingReimbursements)

		api.GET("/reimbursements/:id", h.GetReimbursement)
		api.GET("/reimbursements/:id/photos/:photoId", h.GetReimbursementPhoto)
		api.PUT("/reimbursements/:id", upload, h.EditReimbursement)
		api.DELETE("/reimbursements/:id", h.DeleteReimbursement)
		api.POST("/reimbursements/:id/decisions", h.DecideReimbursement)

		api.PUT("/organizations/:id/teacher", h.AssignTeacher)
	}
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server. Calling it again is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/fraudlens/fraudlens/internal/config"
	"github.com/fraudlens/fraudlens/internal/dataset"
	"github.com/fraudlens/fraudlens/internal/health"
	"github.com/fraudlens/fraudlens/internal/logging"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/newsfeed"
	"github.com/fraudlens/fraudlens/internal/ratelimit"
	"github.com/fraudlens/fraudlens/internal/realtime"
	"github.com/fraudlens/fraudlens/internal/review"
	"github.com/fraudlens/fraudlens/internal/security"
	"github.com/fraudlens/fraudlens/internal/traces"
	"github.com/fraudlens/fraudlens/internal/validation"
	"github.com/fraudlens/fraudlens/internal/worklist"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg         *config.Config
	snap        *dataset.Snapshot
	session     *review.Session
	worklist    *worklist.Service
	newsfeed    *newsfeed.Service
	realtimeHub *realtime.Hub
	healthReg   *health.Registry
	rateLimiter *ratelimit.Limiter
	db          *sql.DB // nil if using in-memory
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger

	shutdownTracing func(context.Context) error
	cancelRunCtx    context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSnapshot injects a pre-built dataset, skipping the CSV load (for testing)
func WithSnapshot(snap *dataset.Snapshot) Option {
	return func(s *Server) {
		s.snap = snap
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logging.New(cfg.LogLevel, "json"),
		healthReg: health.NewRegistry(),
	}

	// Apply options first (may set snapshot/logger)
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Load the scored dataset unless one was injected
	if s.snap == nil {
		snap, err := dataset.Load(cfg.DatasetPath, cfg.AttributionsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset: %w", err)
		}
		s.snap = snap
		s.logger.Info("dataset loaded",
			"path", cfg.DatasetPath,
			"transactions", snap.Len(),
			"explanations", snap.HasExplanations(),
		)
	}

	// Evaluate the snapshot at the configured threshold
	session, err := review.NewSession(s.snap, cfg.DefaultThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate initial threshold: %w", err)
	}
	s.session = session

	// Tracing (no-op when no endpoint is configured)
	shutdownTracing, err := traces.Init(ctx, cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.shutdownTracing = shutdownTracing
	}

	// Realtime hub, created before services so the broadcast hook can be wired
	s.realtimeHub = realtime.NewHub(s.logger)

	// Reviewer state (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		worklistStore := worklist.NewPostgresStore(db)
		if err := worklistStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate worklist store", "error", err)
		}
		s.worklist = worklist.NewService(worklistStore, s.snap)

		newsfeedStore := newsfeed.NewPostgresStore(db)
		if err := newsfeedStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate newsfeed store", "error", err)
		}
		s.newsfeed = newsfeed.NewService(newsfeedStore, s.snap, s.worklist,
			newsfeed.WithBroadcast(s.pushNotification))

		s.healthReg.Register("database", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		})
	} else {
		s.logger.Info("using in-memory storage (reviewer state will not persist)")
		s.worklist = worklist.NewService(worklist.NewMemoryStore(), s.snap)
		s.newsfeed = newsfeed.NewService(newsfeed.NewMemoryStore(), s.snap, s.worklist,
			newsfeed.WithBroadcast(s.pushNotification))
	}

	s.healthReg.Register("dataset", func(ctx context.Context) error {
		if s.snap.Len() == 0 {
			return errors.New("empty snapshot")
		}
		return nil
	})

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// pushNotification forwards a newly shared notification to the receiver's
// open WebSocket connections. Fire-and-forget.
func (s *Server) pushNotification(n newsfeed.Notification) {
	if s.realtimeHub != nil {
		s.realtimeHub.NotifyReviewer(n.Receiver, n)
	}
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for now - restrict per deployment)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	limiterCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		limiterCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(limiterCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID + reviewer tagging
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		if reviewer := c.Param("reviewer"); reviewer != "" {
			ctx = logging.WithReviewer(ctx, reviewer)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Service info
	s.router.GET("/api", s.infoHandler)

	// WebSocket for real-time notification pushes
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// V1 API group
	v1 := s.router.Group("/api/v1")
	// Validate :reviewer URL params on all v1 routes (no-op when param absent)
	v1.Use(validation.ReviewerParamMiddleware())

	reviewHandler := review.NewHandler(s.session, s.cfg.ExplanationTopK)
	reviewHandler.OnThresholdChange(s.realtimeHub.AnnounceThreshold)
	reviewHandler.RegisterRoutes(v1)

	worklist.NewHandler(s.worklist).RegisterRoutes(v1)
	newsfeed.NewHandler(s.newsfeed).RegisterRoutes(v1)
}

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.healthReg.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":         "FraudLens",
		"description":  "Fraud review dashboard backend",
		"version":      "0.1.0",
		"transactions": s.snap.Len(),
		"threshold":    s.session.Threshold(),
	})
}

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"transactions", s.snap.Len(),
			"threshold", s.session.Threshold(),
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Periodic DB stats collection
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for background goroutines (hub, stats collector)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	// Flush traces
	if s.shutdownTracing != nil {
		if err := s.shutdownTracing(ctx); err != nil {
			s.logger.Error("tracing shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

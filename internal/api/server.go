package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ashare/internal/config"
	"ashare/internal/database"
	"ashare/internal/logger"
	"ashare/internal/market/store"
	"ashare/internal/monitoring"
	"ashare/internal/sector/workflow"
)

// Server represents the API server
type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	log        logger.Logger

	db         *database.DB
	store      *store.Store
	jwtManager *JWTManager
	metrics    *monitoring.Metrics
	handlers   *Handlers
}

// Handlers contains all API handlers
type Handlers struct {
	Index  *IndexHandler
	Update *UpdateHandler
	Auth   *AuthHandler
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, db *database.DB, st *store.Store, wf *workflow.Workflow, metrics *monitoring.Metrics, log logger.Logger) *Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.Global()
	}

	jwtManager := NewJWTManager(cfg.Auth.SecretKey, cfg.Auth.Duration)

	server := &Server{
		config:     cfg,
		router:     gin.New(),
		log:        log,
		db:         db,
		store:      st,
		jwtManager: jwtManager,
		metrics:    metrics,
		handlers: &Handlers{
			Index:  NewIndexHandler(st),
			Update: NewUpdateHandler(wf),
			Auth:   NewAuthHandler(jwtManager, cfg.Auth.Username, cfg.Auth.Password),
		},
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(rateLimitMiddleware(s.config.RateLimit))
	s.router.Use(metricsMiddleware(s.metrics))

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", s.handlers.Auth.Login)
		}

		// 只读指数目录无需认证
		indexes := v1.Group("/indexes")
		{
			indexes.GET("", s.handlers.Index.ListIndexes)
			indexes.GET("/:code/bars", s.handlers.Index.GetIndexBars)
			indexes.GET("/:code/indicators", s.handlers.Index.GetIndexIndicators)
		}

		// 触发重算的入口需要认证
		protected := v1.Group("")
		protected.Use(s.jwtManager.AuthMiddleware())
		{
			protected.POST("/maintenance/update", s.handlers.Update.TriggerUpdate)
			protected.POST("/maintenance/rebuild", s.handlers.Update.RebuildCatalog)
		}
	}

	s.router.GET("/health", func(c *gin.Context) {
		dbHealth := "ok"
		if err := s.db.HealthCheck(c.Request.Context()); err != nil {
			dbHealth = "error"
		}

		status := http.StatusOK
		if dbHealth != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":    dbHealth,
			"app":       s.config.App.Name,
			"version":   s.config.App.Version,
			"timestamp": time.Now().UTC(),
		})
	})
}

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

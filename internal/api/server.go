// Package api exposes the scanner's structural analysis over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"flowai-ict-bot/config"
	"flowai-ict-bot/internal/logging"
	"flowai-ict-bot/internal/scanner"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// PriceSource provides the latest traded price for a symbol. Implemented
// by the exchange client.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	scanner    *scanner.Scanner
	prices     PriceSource
	config     config.ServerConfig
	logger     *logging.Logger
	startedAt  time.Time
}

// NewServer creates a new API server. prices may be nil, which disables
// the price endpoint.
func NewServer(cfg config.ServerConfig, sc *scanner.Scanner, prices PriceSource, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	if logger == nil {
		logger = logging.Default().WithComponent("api")
	}

	server := &Server{
		router:    router,
		scanner:   sc,
		prices:    prices,
		config:    cfg,
		logger:    logger,
		startedAt: time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/analysis/:symbol", s.handleAnalysis)
		v1.GET("/bias/:symbol", s.handleBias)
		v1.GET("/price/:symbol", s.handlePrice)
		v1.GET("/scan", s.handleLastScan)
		v1.POST("/scan", s.handleTriggerScan)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

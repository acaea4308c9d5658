// Package server exposes the spreadsheet assistant over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"sheetgenie/internal/app"
	"sheetgenie/internal/chat"
	"sheetgenie/internal/config"
	"sheetgenie/internal/logging"
	"sheetgenie/internal/observability"
	"sheetgenie/internal/server/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "SheetGenie API"

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Shell    *app.Shell
	Sessions *chat.Store
	Chat     *chat.Handler
	Metrics  *observability.MetricsCollector
	Tracer   *observability.TracerProvider
	Logger   logging.Logger
	Version  string
}

// Server is the HTTP API.
type Server struct {
	shell    *app.Shell
	sessions *chat.Store
	chat     *chat.Handler
	metrics  *observability.MetricsCollector
	tracer   *observability.TracerProvider
	logger   logging.Logger
	version  string

	cfg        config.ServerConfig
	engine     *gin.Engine
	httpServer *http.Server
	startTime  time.Time

	upgrader  websocket.Upgrader
	clientsMu sync.Mutex
	clients   map[string]*wsClient
	wg        sync.WaitGroup
}

// New builds the router. Shell and Sessions default to fresh instances; a
// missing chat handler makes /api/chat answer with an upstream error.
func New(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Shell == nil {
		deps.Shell = app.NewShell()
	}
	if deps.Sessions == nil {
		deps.Sessions = chat.NewStore(0, deps.Metrics)
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewComponentLogger("server")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = config.Default().Server.MaxUploadMB
	}

	s := &Server{
		shell:     deps.Shell,
		sessions:  deps.Sessions,
		chat:      deps.Chat,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		logger:    deps.Logger,
		version:   deps.Version,
		cfg:       cfg,
		startTime: time.Now(),
		clients:   map[string]*wsClient{},
	}

	engine := gin.New()
	engine.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20
	engine.Use(gin.Recovery())
	engine.Use(middleware.LogID())
	engine.Use(middleware.Observability(s.metrics, s.tracer, s.logger))
	engine.Use(cors.New(corsConfig(cfg.CORS)))
	s.engine = engine

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.CORS),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	s.setupRoutes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", middleware.HeaderLogID}
	cfg.ExposeHeaders = []string{middleware.HeaderLogID, "Content-Disposition"}
	cfg.AllowWebSockets = true
	if len(origins) == 0 || containsWildcard(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || containsWildcard(origins) {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func (s *Server) setupRoutes() {
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.engine.Group("/api")
	api.GET("/", s.handleRoot)
	api.GET("/health", s.handleHealth)

	api.GET("/sample-data", s.handleSampleData)
	api.POST("/upload-excel", s.handleUpload)
	api.POST("/set-spreadsheet-data", middleware.RequireJSON(), s.handleSetData)
	api.GET("/spreadsheet-data", s.handleGetData)
	api.GET("/export-excel", s.handleExport)
	api.POST("/new", s.handleNew)
	api.GET("/insights", s.handleInsights)
	api.GET("/diff", s.handleDiff)

	chatGroup := api.Group("/chat")
	{
		chatGroup.POST("", middleware.RequireJSON(), s.handleChat)
		chatGroup.GET("/:session_id/messages", s.handleMessages)
		chatGroup.DELETE("/:session_id", s.handleResetSession)
	}

	shell := api.Group("/shell")
	{
		shell.GET("", s.handleShell)
		shell.PUT("/chat", middleware.RequireJSON(), s.handleChatVisibility)
	}

	sheets := api.Group("/google-sheets")
	{
		sheets.POST("/load", middleware.RequireJSON(), s.handleGoogleLoad)
		sheets.POST("/validate", middleware.RequireJSON(), s.handleGoogleValidate)
		sheets.GET("/samples", s.handleGoogleSamples)
		sheets.GET("/instructions", s.handleGoogleInstructions)
	}

	grid := api.Group("/grid")
	{
		grid.GET("", s.handleGrid)
		grid.POST("/edits", middleware.RequireJSON(), s.handleGridEdits)
		grid.GET("/ws", s.handleGridSocket)
	}

	api.POST("/chart/render", middleware.RequireJSON(), s.handleChartRender)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting %s %s on %s", ServiceName, s.version, s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown closes grid sockets, drains in-flight requests and waits for
// socket writers to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping %s...", ServiceName)
	s.closeAllClients()
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}
	s.logger.Info("%s stopped", ServiceName)
	return nil
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "SheetGenie API is running!"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Version:   s.version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

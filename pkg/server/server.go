// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/graphmind-ai/graphmind"
	"github.com/graphmind-ai/graphmind/pkg/config"
	"github.com/graphmind-ai/graphmind/pkg/server/handlers"
)

// Server wraps the gin router and its HTTP listener.
type Server struct {
	cfg     *config.Config
	service *graphmind.Service
	router  *gin.Engine
	httpSrv *http.Server
}

// New creates a server for the given service.
func New(cfg *config.Config, service *graphmind.Service) *Server {
	return &Server{cfg: cfg, service: service}
}

// Setup configures the router and registers all routes.
func (s *Server) Setup() {
	gin.SetMode(s.cfg.Server.Mode)
	s.router = gin.New()
	s.router.Use(gin.Logger(), gin.Recovery())

	health := handlers.NewHealthHandler()
	s.router.GET("/health", health.HealthCheck)
	s.router.GET("/ready", health.ReadinessCheck)

	api := s.router.Group("/api/v1")

	graphs := handlers.NewGraphsHandler(s.service)
	gg := api.Group("/graphs")
	gg.POST("/create", graphs.Create)
	gg.GET("", graphs.List)
	gg.GET("/:graph_id", graphs.Get)
	gg.DELETE("/:graph_id", graphs.Delete)
	gg.GET("/:graph_id/stats", graphs.Stats)

	documents := handlers.NewDocumentsHandler(s.service)
	dg := api.Group("/documents")
	dg.POST("/upload", documents.Upload)
	dg.GET("", documents.List)
	dg.GET("/status/:document_id", documents.Status)
	dg.DELETE("/:document_id", documents.Delete)
	dg.POST("/extract-entities", documents.ExtractFacts)

	chat := handlers.NewChatHandler(s.service)
	cg := api.Group("/chat")
	cg.POST("/message", chat.Message)
	cg.POST("/search", chat.Search)
	cg.GET("/sessions", chat.Sessions)
	cg.GET("/sessions/:session_id", chat.Session)
	cg.POST("/sessions/:session_id/clear", chat.ClearSession)
	cg.DELETE("/sessions/:session_id", chat.DeleteSession)
	cg.GET("/sessions/:session_id/export", chat.ExportSession)

	viz := handlers.NewVisualizationsHandler(s.service)
	vg := api.Group("/visualizations")
	vg.GET("/:graph_id/graph-data", viz.GraphData)
	vg.GET("/:graph_id/timeline", viz.Timeline)
	vg.GET("/:graph_id/subgraph/:node_id", viz.Subgraph)
}

// Start begins serving. It blocks until the listener stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router exposes the underlying router, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

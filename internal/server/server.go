// Package server implements the HTTP surface of the paisley service:
// starting catalog processes, listing and resuming suspended runs, feeding
// approval decisions back into paused runs, and streaming live trace
// events over websocket
package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/paisley/internal/config"
	"github.com/kode4food/paisley/internal/util"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/feed"
	"github.com/kode4food/paisley/pkg/process"
	"github.com/kode4food/paisley/pkg/script"
)

type (
	// Server implements the HTTP API for the orchestration service
	Server struct {
		runner   *process.Runner
		store    process.Store
		registry api.Registry
		scripts  *script.Registry
		oracle   api.Oracle
		catalog  *config.Catalog
		feed     *feed.Feed
		sockets  util.Set[*wsClient]
		mu       sync.Mutex
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}
)

// New creates the HTTP API server
func New(
	runner *process.Runner, store process.Store, reg api.Registry,
	scripts *script.Registry, oracle api.Oracle, catalog *config.Catalog,
	events *feed.Feed,
) *Server {
	return &Server{
		runner:   runner,
		store:    store,
		registry: reg,
		scripts:  scripts,
		oracle:   oracle,
		catalog:  catalog,
		feed:     events,
		sockets:  util.Set[*wsClient]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API
// endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)

	runs := router.Group("/runs")
	{
		runs.GET("", s.listRuns)
		runs.POST("", s.startRun)
		runs.GET("/:runID", s.getRun)
		runs.POST("/:runID/approval", s.recordApproval)
		runs.POST("/:runID/resume", s.resumeRun)
	}

	router.GET("/ws", s.handleWebSocket)

	return router
}

func (s *Server) registerWebSocket(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*wsClient, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

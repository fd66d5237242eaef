package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/stepflow/internal/archive"
	"github.com/kode4food/stepflow/internal/events"
	"github.com/kode4food/stepflow/internal/graphs/coaching"
	"github.com/kode4food/stepflow/internal/graphs/shopping"
	"github.com/kode4food/stepflow/pkg/util"
)

type (
	// Server implements the HTTP API of the workflow host
	Server struct {
		planner *shopping.Planner
		coach   *coaching.Coach
		archive archive.Store
		hub     *events.Hub
		metrics http.Handler
		sockets util.Set[*Client]
		mu      sync.Mutex
	}

	// Dependencies are the collaborators served by the API. Archive and
	// Metrics may be nil, which disables run lookup and /metrics
	Dependencies struct {
		Planner *shopping.Planner
		Coach   *coaching.Coach
		Archive archive.Store
		Hub     *events.Hub
		Metrics http.Handler
	}
)

// NewServer creates a new HTTP API server
func NewServer(deps Dependencies) *Server {
	hub := deps.Hub
	if hub == nil {
		hub = events.NewHub()
	}
	return &Server{
		planner: deps.Planner,
		coach:   deps.Coach,
		archive: deps.Archive,
		hub:     hub,
		metrics: deps.Metrics,
		sockets: util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics))
	}

	eng := router.Group("/engine")
	{
		eng.POST("/shopping", s.planShopping)
		eng.POST("/coaching", s.coachAthlete)
		eng.GET("/run/:runID", s.getRun)
		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Package api exposes a small read-only HTTP surface over the live
// execution state.
package api

import (
	"net/http"
	"strconv"
	"time"

	"execution-core/internal/order"
	"execution-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires HTTP endpoints around the order manager and the audit store.
type Server struct {
	Router  *gin.Engine
	Orders  *order.Manager
	Queries *db.Queries
	Meta    SystemMeta
}

// SystemMeta describes runtime status exposed to operators.
type SystemMeta struct {
	Mode        string
	Venue       string
	Symbols     []string
	UseMockFeed bool
	StartedAt   time.Time
}

// NewServer builds the router. queries may be nil when no database is wired.
func NewServer(orders *order.Manager, queries *db.Queries, meta SystemMeta) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		Router:  r,
		Orders:  orders,
		Queries: queries,
		Meta:    meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/orders/active", s.getActiveOrders)
		api.GET("/orders/history", s.getOrderHistory)
		api.GET("/orders/:id", s.getOrder)
		api.GET("/positions", s.getPositions)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode":          s.Meta.Mode,
		"venue":         s.Meta.Venue,
		"symbols":       s.Meta.Symbols,
		"use_mock_feed": s.Meta.UseMockFeed,
		"uptime_sec":    int(time.Since(s.Meta.StartedAt).Seconds()),
		"active_orders": len(s.Orders.ActiveOrders()),
	})
}

func (s *Server) getActiveOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": s.Orders.ActiveOrders()})
}

// getOrderHistory prefers the database audit trail and falls back to the
// in-memory ledger when no database is wired.
func (s *Server) getOrderHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	if s.Queries != nil {
		rows, err := s.Queries.ListOrders(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": rows})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": s.Orders.History()})
}

func (s *Server) getOrder(c *gin.Context) {
	o, ok := s.Orders.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) getPositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.Orders.Positions()})
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}

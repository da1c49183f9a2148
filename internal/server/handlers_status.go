package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kaikteck/Mult-Function/pkg/models"
)

// getConfig returns the current configuration
func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.config)
}

// getStatus returns the current server status
func (s *Server) getStatus(c *gin.Context) {
	state := s.controller.Tasks()
	c.JSON(http.StatusOK, models.Status{
		Testing:   s.controller.Busy(),
		TaskCount: state.Count,
		MaxTasks:  state.MaxTasks,
		Timestamp: time.Now(),
	})
}

// getMetrics returns counters, performance stats and recent runs
func (s *Server) getMetrics(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "20"))
	if err != nil || count <= 0 {
		count = 20
	}

	m := s.controller.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"metrics":     m.GetAllMetrics(),
		"performance": m.GetPerformanceStats(),
		"samples":     m.GetRecentSamples(count),
		"timestamp":   time.Now(),
	})
}

// getMetric returns a single counter or timer
func (s *Server) getMetric(c *gin.Context) {
	name := c.Param("name")
	metric := s.controller.Metrics().GetMetric(name)
	if metric == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "unknown metric " + name})
		return
	}
	c.JSON(http.StatusOK, metric)
}

// getErrorStats returns failure statistics per kind
func (s *Server) getErrorStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"error_stats": s.controller.ErrorHandler().GetErrorStats(),
	})
}

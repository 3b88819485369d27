package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	cacheStatus := "ok"
	if err := s.cache.Ping(ctx); err != nil {
		cacheStatus = "unavailable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "finance-coach",
		"cache":   cacheStatus,
	})
}

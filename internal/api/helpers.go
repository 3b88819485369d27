package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"finance-coach-backend/internal/store"
)

const maxListLimit = 500

// idParam parses the :id route parameter, writing a 400 on failure.
func idParam(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return uuid.Nil, false
	}
	return id, true
}

// limitQuery reads ?limit=, returning def when absent.
func limitQuery(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return 0, false
	}
	return n, true
}

// storeError maps a repository error onto a response.
func storeError(c *gin.Context, err error, notFoundMsg, failMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	log := requestLog(c)
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(failMsg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": failMsg})
}

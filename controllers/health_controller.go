package controllers

import (
	"context"
	"net/http"
	"time"

	"Gin_postgres_redis_lend_tool/app"

	"github.com/gin-gonic/gin"
)

func Health(c *gin.Context) { c.JSON(http.StatusOK, app.H{"status": "ok"}) }

// Healthz 检查存储是否可达
func (s *Srv) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, app.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"status": "ok"})
}

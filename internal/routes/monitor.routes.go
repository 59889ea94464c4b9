package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridwatch/internal/controllers"
	"gridwatch/internal/middleware"
)

// RegisterMonitorRoutes mounts the live stream, host health and the
// Prometheus scrape endpoint.
func RegisterMonitorRoutes(r *gin.Engine, wc *controllers.WebSocketController, sc *controllers.SystemController, authMW *middleware.AuthMiddleware) {
	r.GET("/ws", authMW.RequireAuth(), wc.Stream)
	r.GET("/system/health", authMW.RequireAuth(), sc.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

package routes

import (
	"github.com/gin-gonic/gin"

	"gridwatch/internal/controllers"
	"gridwatch/internal/middleware"
)

// RegisterAlertRoutes mounts the alert log endpoints
func RegisterAlertRoutes(r *gin.Engine, ac *controllers.AlertController, authMW *middleware.AuthMiddleware) {
	alerts := r.Group("/alerts", authMW.RequireAuth())
	{
		alerts.GET("", ac.List)
		alerts.POST("", ac.Create)
		alerts.DELETE("", ac.Clear)
	}
}

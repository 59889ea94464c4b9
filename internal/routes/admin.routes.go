package routes

import (
	"github.com/gin-gonic/gin"

	"gridwatch/internal/controllers"
	"gridwatch/internal/middleware"
)

// RegisterAdminRoutes mounts the operator-only management surface
func RegisterAdminRoutes(r *gin.Engine, ac *controllers.AdminController, authMW *middleware.AuthMiddleware) {
	admin := r.Group("/admin", authMW.RequireAuth(), authMW.RequireAdmin())
	{
		admin.GET("/users", ac.ListUsers)
		admin.GET("/users/:id/activity", ac.LoginActivity)
		admin.POST("/assignments", ac.AssignDevice)
		admin.DELETE("/assignments", ac.UnassignDevice)
	}
}

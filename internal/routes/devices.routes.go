package routes

import (
	"github.com/gin-gonic/gin"

	"gridwatch/internal/controllers"
	"gridwatch/internal/middleware"
)

// RegisterDeviceRoutes mounts the device registry. Reads are role-scoped
// inside the controller; mutations are admin only.
func RegisterDeviceRoutes(r *gin.Engine, dc *controllers.DeviceController, authMW *middleware.AuthMiddleware) {
	devices := r.Group("/devices", authMW.RequireAuth())
	{
		devices.GET("", dc.List)
		devices.POST("", authMW.RequireAdmin(), dc.Create)
		devices.PUT("/:serial", authMW.RequireAdmin(), dc.Update)
		devices.DELETE("/:serial", authMW.RequireAdmin(), dc.Delete)
	}
}

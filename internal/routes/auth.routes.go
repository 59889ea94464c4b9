package routes

import (
	"github.com/gin-gonic/gin"

	"gridwatch/internal/controllers"
	"gridwatch/internal/middleware"
)

// RegisterAuthRoutes mounts signup, login and session endpoints
func RegisterAuthRoutes(r *gin.Engine, ac *controllers.AuthController, authMW *middleware.AuthMiddleware) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", ac.Signup)
		auth.POST("/login", ac.Login)
		auth.POST("/logout", authMW.RequireAuth(), ac.Logout)
		auth.GET("/me", authMW.RequireAuth(), ac.Me)
	}
}

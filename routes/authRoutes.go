package routes

import (
	"civicbridge-be/controllers"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, ac *controllers.AuthController, requireAuth gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", ac.RegisterUser)
		auth.POST("/login", ac.LoginUser)
		auth.POST("/logout", ac.LogoutUser)
		auth.GET("/me", requireAuth, ac.GetMe)
	}
}

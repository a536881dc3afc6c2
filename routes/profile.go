package routes

import (
	"taskmgr-backend/handlers/profile"
	"taskmgr-backend/middleware"

	"github.com/gin-gonic/gin"
)

func ProfileRoutes(r *gin.Engine, h *profile.Handler) {
	profileRoutes := r.Group("/profile")
	profileRoutes.Use(middleware.JWTAuth())
	{
		profileRoutes.GET("/", h.GetProfile)
		profileRoutes.PUT("/", h.UpsertProfile)
		profileRoutes.DELETE("/", h.DeleteProfile)
	}
}

package routes

import (
	"taskmgr-backend/handlers/tasks"
	"taskmgr-backend/middleware"

	"github.com/gin-gonic/gin"
)

func TasksRoutes(r *gin.Engine, h *tasks.Handler) {
	taskRoutes := r.Group("/tasks")
	taskRoutes.Use(middleware.JWTAuth())
	{
		taskRoutes.GET("/", h.ListTasks)
		taskRoutes.POST("/", h.CreateTask)
		taskRoutes.GET("/:taskId", h.GetTask)
		taskRoutes.PUT("/:taskId", h.UpdateTask)
		taskRoutes.DELETE("/:taskId", h.DeleteTask)
	}
}

package routes

import (
	"taskmgr-backend/handlers/tickets"
	"taskmgr-backend/middleware"

	"github.com/gin-gonic/gin"
)

func TicketsRoutes(r *gin.Engine, h *tickets.Handler) {
	ticketRoutes := r.Group("/tickets")
	ticketRoutes.Use(middleware.JWTAuth())
	{
		ticketRoutes.GET("/", h.ListTransactions)
		ticketRoutes.POST("/checkout", h.CreateCheckout)
	}
}

package routes

import (
	"taskmgr-backend/handlers/subscriptions"
	"taskmgr-backend/middleware"

	"github.com/gin-gonic/gin"
)

func SubscriptionsRoutes(r *gin.Engine, h *subscriptions.Handler) {
	billingRoutes := r.Group("/billing")
	billingRoutes.Use(middleware.JWTAuth())
	{
		billingRoutes.POST("/checkout", h.CreateCheckout)
		billingRoutes.POST("/portal", h.CreatePortal)
		billingRoutes.DELETE("/subscription", h.CancelSubscription)
		billingRoutes.GET("/entitlement", h.GetEntitlement)
	}
}

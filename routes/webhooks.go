package routes

import (
	"taskmgr-backend/handlers/webhooks"

	"github.com/gin-gonic/gin"
)

// Webhook endpoints carry their own signature verification and skip JWTAuth.
func WebhooksRoutes(r *gin.Engine, stripeH *webhooks.StripeHandler, identityH *webhooks.IdentityHandler) {
	r.POST("/webhooks/stripe", stripeH.Handle)
	r.POST("/webhooks/identity", identityH.Handle)
}

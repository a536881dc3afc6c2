package routes

import (
	"time"

	"taskmgr-backend/handlers/ping"
	"taskmgr-backend/handlers/profile"
	"taskmgr-backend/handlers/subscriptions"
	"taskmgr-backend/handlers/tasks"
	"taskmgr-backend/handlers/tickets"
	"taskmgr-backend/handlers/webhooks"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers groups the constructed handler instances the router wires up.
type Handlers struct {
	Ping            *ping.Handler
	Tasks           *tasks.Handler
	Profile         *profile.Handler
	Tickets         *tickets.Handler
	Subscriptions   *subscriptions.Handler
	StripeWebhook   *webhooks.StripeHandler
	IdentityWebhook *webhooks.IdentityHandler
}

func SetupRouter(h Handlers) *gin.Engine {

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // allow every origin in dev
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	PingRoutes(r, h.Ping)
	TasksRoutes(r, h.Tasks)
	ProfileRoutes(r, h.Profile)
	TicketsRoutes(r, h.Tickets)
	SubscriptionsRoutes(r, h.Subscriptions)
	WebhooksRoutes(r, h.StripeWebhook, h.IdentityWebhook)

	return r
}

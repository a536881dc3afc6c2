package main

import (
	"log"
	"os"

	"taskmgr-backend/billing"
	"taskmgr-backend/config"
	"taskmgr-backend/db"
	"taskmgr-backend/handlers/ping"
	"taskmgr-backend/handlers/profile"
	"taskmgr-backend/handlers/subscriptions"
	"taskmgr-backend/handlers/tasks"
	"taskmgr-backend/handlers/tickets"
	"taskmgr-backend/handlers/webhooks"
	"taskmgr-backend/payments"
	"taskmgr-backend/repository"
	"taskmgr-backend/routes"
	"taskmgr-backend/utils"

	"github.com/gin-gonic/gin"
)

// @title Task Manager Backend API
// @version 1.0
// @description Task management API with subscription billing and event ticketing
// @host localhost:8080
// @BasePath /
// @SecurityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the JWT with the Bearer prefix: Bearer <JWT>
func main() {

	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load()
	if err != nil {
		utils.LogError(err, "Invalid configuration")
		log.Fatal("Invalid configuration:", err)
	}

	// JWT_SECRET is read from the environment by the auth middleware.
	os.Setenv("JWT_SECRET", cfg.JWTSecret)

	gormDB, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		utils.LogError(err, "Error initializing the database")
		log.Fatal("Error initializing the database:", err)
	}

	profileRepo := repository.NewUserProfileRepository(gormDB)
	subRepo := repository.NewSubscriptionRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)
	ticketRepo := repository.NewTicketTransactionRepository(gormDB)
	ledgerRepo := repository.NewProcessedEventRepository(gormDB)

	stripeClient := payments.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	reconciler := billing.NewReconciler(profileRepo, subRepo, ticketRepo, ledgerRepo, stripeClient)
	entitlement := billing.NewEntitlementChecker(subRepo)

	identityVerifier, err := webhooks.NewIdentityVerifier(cfg.Identity.WebhookSecret)
	if err != nil {
		utils.LogError(err, "Invalid identity webhook secret")
		log.Fatal("Invalid identity webhook secret:", err)
	}

	r := routes.SetupRouter(routes.Handlers{
		Ping:            ping.New(),
		Tasks:           tasks.New(taskRepo),
		Profile:         profile.New(profileRepo, subRepo, taskRepo),
		Tickets:         tickets.New(ticketRepo, stripeClient, cfg.AppBaseURL),
		Subscriptions:   subscriptions.New(profileRepo, subRepo, stripeClient, entitlement, cfg.AppBaseURL),
		StripeWebhook:   webhooks.NewStripeHandler(stripeClient, reconciler),
		IdentityWebhook: webhooks.NewIdentityHandler(identityVerifier, profileRepo, subRepo, taskRepo),
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Error starting the server:", err)
	}
}

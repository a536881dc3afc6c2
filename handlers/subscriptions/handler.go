// Package subscriptions exposes the billing flows over HTTP: subscription
// checkout, billing portal, cancel, and the subscription gate.
package subscriptions

import (
	"errors"
	"net/http"

	"taskmgr-backend/billing"
	"taskmgr-backend/middleware"
	"taskmgr-backend/models"
	"taskmgr-backend/payments"
	"taskmgr-backend/repository"
	"taskmgr-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	profiles    repository.UserProfileRepository
	subs        repository.SubscriptionRepository
	provider    payments.Provider
	entitlement *billing.EntitlementChecker
	appBaseURL  string
}

func New(
	profiles repository.UserProfileRepository,
	subs repository.SubscriptionRepository,
	provider payments.Provider,
	entitlement *billing.EntitlementChecker,
	appBaseURL string,
) *Handler {
	return &Handler{
		profiles:    profiles,
		subs:        subs,
		provider:    provider,
		entitlement: entitlement,
		appBaseURL:  appBaseURL,
	}
}

type checkoutRequest struct {
	PriceID string `json:"priceId" binding:"required"`
}

// CreateCheckout starts a subscription checkout for the caller. The local
// Subscription row is created lazily here (status pending) on the first
// billing interaction.
// @Summary Create a subscription checkout session
// @Description Start a Stripe Checkout for the given price. Returns the Checkout URL to redirect the browser to.
// @Tags billing
// @Accept json
// @Produce json
// @Param body body checkoutRequest true "Price to subscribe to"
// @Security BearerAuth
// @Success 200 {object} map[string]string "sessionId, url"
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 409 {object} map[string]string "error: Already subscribed"
// @Failure 500 {object} map[string]string "error: Stripe error or server error"
// @Router /billing/checkout [post]
func (h *Handler) CreateCheckout(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input checkoutRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	ctx := c.Request.Context()

	sub, err := h.subs.GetByExternalUserID(ctx, caller.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.LogErrorWithUser(caller.UserID, err, "Error loading subscription in CreateCheckout")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching subscription"})
		return
	}
	if sub.Entitled() {
		c.JSON(http.StatusConflict, gin.H{"error": "You already have an active subscription."})
		return
	}

	// Customer identity comes from the profile when one exists.
	email, name := "", ""
	if profile, err := h.profiles.GetByExternalUserID(ctx, caller.UserID); err == nil {
		email, name = profile.Email, profile.Name
	}
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A profile with an email address is required before subscribing"})
		return
	}

	customerID := ""
	if sub != nil {
		customerID = sub.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = h.provider.EnsureCustomer(ctx, email, name)
		if err != nil {
			utils.LogErrorWithUser(caller.UserID, err, "Error ensuring Stripe customer in CreateCheckout")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating Stripe customer"})
			return
		}
	}

	if sub == nil {
		sub = &models.Subscription{
			ExternalUserID:   caller.UserID,
			StripeCustomerID: customerID,
			Status:           models.SubscriptionPending,
		}
		if err := h.subs.Create(ctx, sub); err != nil {
			utils.LogErrorWithUser(caller.UserID, err, "Error creating pending subscription in CreateCheckout")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating subscription record"})
			return
		}
	} else if sub.StripeCustomerID == "" {
		sub.StripeCustomerID = customerID
		if err := h.subs.Upsert(ctx, sub); err != nil {
			utils.LogErrorWithUser(caller.UserID, err, "Error saving customer id in CreateCheckout")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating subscription record"})
			return
		}
	}

	sess, err := h.provider.CreateSubscriptionCheckout(ctx, payments.SubscriptionCheckoutParams{
		CustomerID:     customerID,
		PriceID:        input.PriceID,
		ExternalUserID: caller.UserID,
		SuccessURL:     h.appBaseURL + "/dashboard?success=true&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      h.appBaseURL + "/pricing",
	})
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error creating checkout session in CreateCheckout")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating checkout session"})
		return
	}

	utils.LogSuccessWithUser(caller.UserID, "Subscription checkout session created in CreateCheckout")
	c.JSON(http.StatusOK, gin.H{"sessionId": sess.ID, "url": sess.URL})
}

// CreatePortal opens a billing-portal session for the caller.
// @Summary Create a billing portal session
// @Description Return the Stripe billing portal URL for the authenticated user
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "url"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: No billing account"
// @Router /billing/portal [post]
func (h *Handler) CreatePortal(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sub, err := h.subs.GetByExternalUserID(c.Request.Context(), caller.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && sub.StripeCustomerID == "") {
		c.JSON(http.StatusNotFound, gin.H{"error": "No billing account for this user"})
		return
	}
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error loading subscription in CreatePortal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching subscription"})
		return
	}

	url, err := h.provider.CreatePortalSession(c.Request.Context(), sub.StripeCustomerID, h.appBaseURL+"/dashboard")
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error creating portal session in CreatePortal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating billing portal session"})
		return
	}

	utils.LogSuccessWithUser(caller.UserID, "Billing portal session created in CreatePortal")
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CancelSubscription cancels the caller's Stripe subscription and updates the
// local status.
// @Summary Cancel own subscription
// @Description Cancel the Stripe subscription and mark the local record canceled
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Subscription canceled successfully"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Subscription not found"
// @Failure 500 {object} map[string]string "error: Error when canceling the Stripe subscription"
// @Router /billing/subscription [delete]
func (h *Handler) CancelSubscription(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sub, err := h.subs.GetByExternalUserID(c.Request.Context(), caller.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && sub.StripeSubscriptionID == "") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error loading subscription in CancelSubscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching subscription"})
		return
	}

	if _, err := h.provider.CancelSubscription(c.Request.Context(), sub.StripeSubscriptionID); err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Stripe cancel failed in CancelSubscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error when canceling the Stripe subscription"})
		return
	}

	if err := h.subs.UpdateStatus(c.Request.Context(), caller.UserID, models.SubscriptionCanceled); err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error updating status in CancelSubscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error when updating the subscription status"})
		return
	}

	utils.LogSuccessWithUser(caller.UserID, "Subscription canceled successfully in CancelSubscription")
	c.JSON(http.StatusOK, gin.H{"message": "Subscription canceled successfully"})
}

// GetEntitlement is the subscription gate. With success/session_id query
// parameters present the check polls briefly to absorb webhook latency.
// @Summary Check gated-content entitlement
// @Description Classify the authenticated user as granted, pending or none. Pass success=true or session_id after a checkout redirect.
// @Tags billing
// @Produce json
// @Param success query string false "Set by the checkout success redirect"
// @Param session_id query string false "Checkout session id from the redirect"
// @Security BearerAuth
// @Success 200 {object} billing.EntitlementResult
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /billing/entitlement [get]
func (h *Handler) GetEntitlement(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	fromCheckout := c.Query("success") == "true" || c.Query("session_id") != ""

	result, err := h.entitlement.Check(c.Request.Context(), caller.UserID, fromCheckout)
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error checking entitlement in GetEntitlement")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking entitlement"})
		return
	}

	c.JSON(http.StatusOK, result)
}

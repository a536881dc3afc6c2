package tickets

import (
	"net/http"

	"taskmgr-backend/middleware"
	"taskmgr-backend/models"
	"taskmgr-backend/payments"
	"taskmgr-backend/repository"
	"taskmgr-backend/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	tickets    repository.TicketTransactionRepository
	provider   payments.Provider
	appBaseURL string
}

func New(tickets repository.TicketTransactionRepository, provider payments.Provider, appBaseURL string) *Handler {
	return &Handler{tickets: tickets, provider: provider, appBaseURL: appBaseURL}
}

type checkoutRequest struct {
	Email   string              `json:"email" binding:"required,email"`
	EventID string              `json:"eventId" binding:"required"`
	Tickets []models.TicketLine `json:"tickets" binding:"required,min=1,dive"`
}

// CreateCheckout starts a payment-mode checkout for event tickets. The
// purchased lines travel in the session metadata; the webhook records the
// transactions once payment completes.
// @Summary Create a ticket checkout session
// @Description Start a Stripe payment for event tickets. Returns the Checkout URL to redirect the browser to.
// @Tags tickets
// @Accept json
// @Produce json
// @Param order body checkoutRequest true "Ticket order"
// @Security BearerAuth
// @Success 200 {object} map[string]string "sessionId, url"
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 500 {object} map[string]string "error: Stripe error"
// @Router /tickets/checkout [post]
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

	sess, err := h.provider.CreateTicketCheckout(c.Request.Context(), payments.TicketCheckoutParams{
		Email:          input.Email,
		ExternalUserID: caller.UserID,
		TicketEventID:  input.EventID,
		Lines:          input.Tickets,
		SuccessURL:     h.appBaseURL + "/tickets/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      h.appBaseURL + "/tickets",
	})
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error creating ticket checkout session in CreateCheckout")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating checkout session"})
		return
	}

	utils.LogSuccessWithUser(caller.UserID, "Ticket checkout session created in CreateCheckout")
	c.JSON(http.StatusOK, gin.H{"sessionId": sess.ID, "url": sess.URL})
}

// ListTransactions returns the caller's ticket purchases.
// @Summary List own ticket transactions
// @Description Return the ticket transactions recorded for the authenticated user
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.TicketTransaction
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /tickets [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	txs, err := h.tickets.ListByExternalUserID(c.Request.Context(), caller.UserID)
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error listing transactions in ListTransactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}

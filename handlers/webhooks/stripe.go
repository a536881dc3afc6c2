// Package webhooks terminates inbound webhooks from the payment provider and
// the identity provider. Both endpoints verify signatures before touching any
// state.
package webhooks

import (
	"context"
	"io"
	"net/http"

	"taskmgr-backend/utils"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
)

// EventVerifier turns a raw delivery into a trusted event; satisfied by
// payments.StripeClient.
type EventVerifier interface {
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// EventProcessor applies one verified event; satisfied by billing.Reconciler.
type EventProcessor interface {
	Process(ctx context.Context, event stripe.Event) error
}

type StripeHandler struct {
	provider   EventVerifier
	reconciler EventProcessor
}

func NewStripeHandler(provider EventVerifier, reconciler EventProcessor) *StripeHandler {
	return &StripeHandler{provider: provider, reconciler: reconciler}
}

// Handle verifies and reconciles one Stripe webhook delivery. A 5xx answer
// makes Stripe redeliver later, which is the retry of last resort for
// downstream failures.
// @Summary Stripe webhook endpoint
// @Description Verify the Stripe signature and reconcile local billing state
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool "received: true"
// @Failure 400 {object} map[string]string "error: Signature verification failed"
// @Failure 500 {object} map[string]string "error: Event processing failed"
// @Router /webhooks/stripe [post]
func (h *StripeHandler) Handle(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not read request body"})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	event, err := h.provider.ConstructWebhookEvent(payload, sig)
	if err != nil {
		utils.LogError(err, "Stripe signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Stripe signature verification failed"})
		return
	}

	if err := h.reconciler.Process(c.Request.Context(), event); err != nil {
		utils.LogError(err, "Error processing Stripe event "+event.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Package billing holds the webhook-driven reconciliation flow and the
// subscription gate. Both bring local rows into agreement with the payment
// provider's authoritative state.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskmgr-backend/models"
	"taskmgr-backend/payments"
	"taskmgr-backend/repository"
	"taskmgr-backend/utils"

	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

const reconcileAttempts = 3

// Reconciler applies one verified payment-provider event to the local
// database, exactly once. Redelivery of an already-processed event id is a
// no-op; a failure leaves the event unmarked so the provider redelivers.
type Reconciler struct {
	profiles repository.UserProfileRepository
	subs     repository.SubscriptionRepository
	tickets  repository.TicketTransactionRepository
	ledger   repository.ProcessedEventRepository
	provider payments.Provider

	// LookupDelay is the fixed wait between profile/subscription lookup
	// attempts; UpdateBackoff is the base of the exponential wait between
	// write attempts. Overridable so tests do not sleep.
	LookupDelay   time.Duration
	UpdateBackoff time.Duration
}

func NewReconciler(
	profiles repository.UserProfileRepository,
	subs repository.SubscriptionRepository,
	tickets repository.TicketTransactionRepository,
	ledger repository.ProcessedEventRepository,
	provider payments.Provider,
) *Reconciler {
	return &Reconciler{
		profiles:      profiles,
		subs:          subs,
		tickets:       tickets,
		ledger:        ledger,
		provider:      provider,
		LookupDelay:   time.Second,
		UpdateBackoff: time.Second,
	}
}

// Process handles one verified event. Errors propagate to the webhook
// endpoint, which answers 5xx so the provider's redelivery becomes the retry
// of last resort.
func (r *Reconciler) Process(ctx context.Context, event stripe.Event) error {
	var processed bool
	err := utils.Retry(ctx, reconcileAttempts, utils.FixedDelay(r.LookupDelay), func() error {
		var err error
		processed, err = r.ledger.Exists(ctx, event.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("checking idempotency ledger for %s: %w", event.ID, err)
	}
	if processed {
		utils.LogInfo("Event " + event.ID + " already processed, skipping")
		return nil
	}

	switch event.Type {
	case "checkout.session.completed":
		err = r.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		err = r.handleSubscriptionEvent(ctx, event)
	case "payment_intent.succeeded":
		utils.LogInfo("payment_intent.succeeded " + event.ID + " acknowledged, no action")
	default:
		utils.LogInfo("Ignoring event type " + string(event.Type))
	}
	if err != nil {
		return err
	}

	// The ledger insert is deliberately the last step and not in one
	// transaction with the mutations above: a crash in between causes one
	// re-application on redelivery, and every write above is an overwrite
	// or keyed create, so that re-application is safe.
	err = utils.Retry(ctx, reconcileAttempts, utils.ExponentialDelay(r.UpdateBackoff), func() error {
		return r.ledger.MarkProcessed(ctx, event.ID, string(event.Type))
	})
	if err != nil {
		return fmt.Errorf("marking event %s processed: %w", event.ID, err)
	}
	return nil
}

func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("parsing checkout session from event %s: %w", event.ID, err)
	}

	switch {
	case session.Mode == stripe.CheckoutSessionModePayment && session.Metadata["tickets"] != "":
		return r.recordTicketPurchase(ctx, event.ID, &session)
	case session.Mode == stripe.CheckoutSessionModeSubscription:
		return r.activateSubscriptionFromCheckout(ctx, &session)
	default:
		utils.LogInfo("checkout.session.completed " + event.ID + " carries no work, skipping")
		return nil
	}
}

// recordTicketPurchase creates one TicketTransaction per purchased line. Each
// line is keyed by event id + line index, so a redelivered event after a
// partial failure re-creates only the lines that are missing.
func (r *Reconciler) recordTicketPurchase(ctx context.Context, eventID string, session *stripe.CheckoutSession) error {
	var lines []models.TicketLine
	if err := json.Unmarshal([]byte(session.Metadata["tickets"]), &lines); err != nil {
		return fmt.Errorf("parsing ticket metadata on event %s: %w", eventID, err)
	}

	email := session.Metadata["email"]
	if email == "" && session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}

	now := time.Now()
	for i, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		tx := &models.TicketTransaction{
			Email:          email,
			TicketType:     line.Type,
			Quantity:       line.Quantity,
			PricePerUnit:   line.Price,
			TotalAmount:    line.Price * int64(line.Quantity),
			Status:         models.TicketTransactionCompleted,
			PurchaseDate:   now,
			EventID:        session.Metadata["eventId"],
			ExternalUserID: session.Metadata["userId"],
			StripeEventID:  eventID,
			LineIndex:      i,
		}

		err := utils.Retry(ctx, reconcileAttempts, utils.ExponentialDelay(r.UpdateBackoff), func() error {
			_, err := r.tickets.CreateIfAbsent(ctx, tx)
			return err
		})
		if err != nil {
			// The event stays unmarked; the provider redelivers and the
			// per-line key skips the lines already created.
			return fmt.Errorf("creating ticket transaction %d for event %s: %w", i, eventID, err)
		}
	}
	return nil
}

func (r *Reconciler) activateSubscriptionFromCheckout(ctx context.Context, session *stripe.CheckoutSession) error {
	userID := session.Metadata["userId"]
	if userID == "" {
		userID = session.ClientReferenceID
	}
	if userID == "" {
		return ErrMissingUserContext
	}
	if session.Subscription == nil || session.Subscription.ID == "" {
		return fmt.Errorf("checkout session %s completed without a subscription", session.ID)
	}

	var ext *stripe.Subscription
	err := utils.Retry(ctx, reconcileAttempts, utils.ExponentialDelay(r.UpdateBackoff), func() error {
		var err error
		ext, err = r.provider.GetSubscription(ctx, session.Subscription.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetching subscription %s: %w", session.Subscription.ID, err)
	}

	periodEnd, err := periodEndOf(ext)
	if err != nil {
		return err
	}

	// The profile row is created by the identity-provider webhook, which can
	// land after the browser finishes checkout. Give it a moment.
	err = utils.Retry(ctx, reconcileAttempts, utils.FixedDelay(r.LookupDelay), func() error {
		_, err := r.profiles.GetByExternalUserID(ctx, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("user profile for %s not found: %w", userID, err)
	}

	// The existing row is optional; the retry only smooths over a
	// concurrently-landing create before the upsert decides update vs
	// create.
	err = utils.Retry(ctx, reconcileAttempts, utils.FixedDelay(r.LookupDelay), func() error {
		_, err := r.subs.GetByExternalUserID(ctx, userID)
		return err
	})
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("loading subscription for %s: %w", userID, err)
	}

	sub := &models.Subscription{
		ExternalUserID:         userID,
		StripeCustomerID:       customerIDOf(ext, session),
		StripeSubscriptionID:   ext.ID,
		StripePriceID:          priceIDOf(ext),
		StripeCurrentPeriodEnd: &periodEnd,
		Status:                 models.SubscriptionStatus(ext.Status),
	}

	err = utils.Retry(ctx, reconcileAttempts, utils.ExponentialDelay(r.UpdateBackoff), func() error {
		return r.subs.Upsert(ctx, sub)
	})
	if err != nil {
		return fmt.Errorf("upserting subscription for %s: %w", userID, err)
	}

	utils.LogSuccessWithUser(userID, "Subscription reconciled from checkout completion")
	return nil
}

func (r *Reconciler) handleSubscriptionEvent(ctx context.Context, event stripe.Event) error {
	var ext stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &ext); err != nil {
		return fmt.Errorf("parsing subscription from event %s: %w", event.ID, err)
	}

	userID := ext.Metadata["userId"]
	if userID == "" {
		utils.LogWarning("Subscription event " + event.ID + " has no userId metadata, skipping")
		return nil
	}

	local, err := r.subs.GetByExternalUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.LogErrorWithUser(userID, err, "No local subscription for event "+event.ID+", skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading subscription for %s: %w", userID, err)
	}

	status := models.SubscriptionStatus(ext.Status)
	if event.Type == "customer.subscription.deleted" {
		status = models.SubscriptionCanceled
	}

	periodEnd := local.StripeCurrentPeriodEnd
	if pe, err := periodEndOf(&ext); err == nil {
		periodEnd = &pe
	}

	sub := &models.Subscription{
		ExternalUserID:         userID,
		StripeCustomerID:       customerIDOf(&ext, nil),
		StripeSubscriptionID:   ext.ID,
		StripePriceID:          priceIDOf(&ext),
		StripeCurrentPeriodEnd: periodEnd,
		Status:                 status,
	}

	err = utils.Retry(ctx, reconcileAttempts, utils.ExponentialDelay(r.UpdateBackoff), func() error {
		return r.subs.Upsert(ctx, sub)
	})
	if err != nil {
		return fmt.Errorf("updating subscription for %s: %w", userID, err)
	}

	utils.LogSuccessWithUser(userID, "Subscription reconciled from "+string(event.Type))
	return nil
}

// periodEndOf extracts the current-period-end carried on the subscription's
// first item.
func periodEndOf(sub *stripe.Subscription) (time.Time, error) {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return time.Time{}, ErrInvalidPeriodEnd
	}
	end := sub.Items.Data[0].CurrentPeriodEnd
	if end <= 0 {
		return time.Time{}, ErrInvalidPeriodEnd
	}
	return time.Unix(end, 0).UTC(), nil
}

func customerIDOf(sub *stripe.Subscription, session *stripe.CheckoutSession) string {
	if sub != nil && sub.Customer != nil {
		return sub.Customer.ID
	}
	if session != nil && session.Customer != nil {
		return session.Customer.ID
	}
	return ""
}

func priceIDOf(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	if sub.Items.Data[0].Price == nil {
		return ""
	}
	return sub.Items.Data[0].Price.ID
}

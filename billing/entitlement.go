package billing

import (
	"context"
	"errors"
	"time"

	"taskmgr-backend/models"
	"taskmgr-backend/repository"
	"taskmgr-backend/utils"

	"gorm.io/gorm"
)

type EntitlementState string

const (
	// EntitlementGranted: render gated content.
	EntitlementGranted EntitlementState = "granted"
	// EntitlementPending: the user likely just paid but the webhook has not
	// landed; render an interstitial and let the client poll.
	EntitlementPending EntitlementState = "pending"
	// EntitlementNone: no usable subscription; send to the paywall.
	EntitlementNone EntitlementState = "none"
)

type EntitlementResult struct {
	State        EntitlementState     `json:"state"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

const gateRetryAttempts = 5

// EntitlementChecker decides whether a user may see gated content, masking
// the window where the checkout redirect beats the activation webhook.
type EntitlementChecker struct {
	subs repository.SubscriptionRepository

	// RetryBase scales the 1s..5s post-checkout polling delays; GraceDelay
	// is the final wait before settling on "pending". Overridable so tests
	// do not sleep.
	RetryBase  time.Duration
	GraceDelay time.Duration
}

func NewEntitlementChecker(subs repository.SubscriptionRepository) *EntitlementChecker {
	return &EntitlementChecker{
		subs:       subs,
		RetryBase:  time.Second,
		GraceDelay: 2 * time.Second,
	}
}

// Check reads the local subscription and classifies the user. fromCheckout
// is true when the request carries evidence of a just-finished checkout
// redirect; only then does the read poll to absorb webhook latency. The read
// path never creates rows.
func (e *EntitlementChecker) Check(ctx context.Context, externalUserID string, fromCheckout bool) (EntitlementResult, error) {
	sub, err := e.read(ctx, externalUserID)
	if err != nil {
		return EntitlementResult{}, err
	}
	if sub.Entitled() {
		return EntitlementResult{State: EntitlementGranted, Subscription: sub}, nil
	}
	if !fromCheckout {
		return EntitlementResult{State: EntitlementNone, Subscription: sub}, nil
	}

	// Returning from checkout: re-read with increasing delay, stopping as
	// soon as the webhook lands the subscription in an activated state.
	for attempt := 1; attempt <= gateRetryAttempts; attempt++ {
		if err := utils.SleepCtx(ctx, time.Duration(attempt)*e.RetryBase); err != nil {
			return EntitlementResult{}, err
		}
		sub, err = e.read(ctx, externalUserID)
		if err != nil {
			return EntitlementResult{}, err
		}
		if sub != nil && (sub.Status == models.SubscriptionActive || sub.Status == models.SubscriptionTrialing) {
			return EntitlementResult{State: EntitlementGranted, Subscription: sub}, nil
		}
	}

	// One last look after a grace period, then fall back to "pending"
	// rather than a hard paywall: the user should not be punished for
	// webhook delivery latency.
	if err := utils.SleepCtx(ctx, e.GraceDelay); err != nil {
		return EntitlementResult{}, err
	}
	sub, err = e.read(ctx, externalUserID)
	if err != nil {
		return EntitlementResult{}, err
	}
	if sub.Entitled() {
		return EntitlementResult{State: EntitlementGranted, Subscription: sub}, nil
	}
	return EntitlementResult{State: EntitlementPending, Subscription: sub}, nil
}

func (e *EntitlementChecker) read(ctx context.Context, externalUserID string) (*models.Subscription, error) {
	sub, err := e.subs.GetByExternalUserID(ctx, externalUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

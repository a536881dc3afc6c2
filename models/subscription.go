package models

import (
	"time"
)

type SubscriptionStatus string

// Statuses mirror the payment provider's subscription states, plus PENDING
// for rows created before the first checkout completes.
const (
	SubscriptionPending           SubscriptionStatus = "pending"
	SubscriptionActive            SubscriptionStatus = "active"
	SubscriptionTrialing          SubscriptionStatus = "trialing"
	SubscriptionPastDue           SubscriptionStatus = "past_due"
	SubscriptionCanceled          SubscriptionStatus = "canceled"
	SubscriptionIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionPaused            SubscriptionStatus = "paused"
	SubscriptionUnpaid            SubscriptionStatus = "unpaid"
)

// Subscription is the local billing state for one user. At most one row per
// external user id; mutated only by the reconciliation flow and by
// user-initiated cancel.
type Subscription struct {
	ID                     string             `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ExternalUserID         string             `json:"externalUserId" gorm:"uniqueIndex;not null"`
	StripeCustomerID       string             `json:"stripeCustomerId"`
	StripeSubscriptionID   string             `json:"stripeSubscriptionId"`
	StripePriceID          string             `json:"stripePriceId"`
	StripeCurrentPeriodEnd *time.Time         `json:"stripeCurrentPeriodEnd"`
	Status                 SubscriptionStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// Entitled reports whether this row grants access to gated functionality.
// "incomplete" counts: the first payment attempt is still in flight and
// locking the user out would punish webhook latency.
func (s *Subscription) Entitled() bool {
	if s == nil || s.StripeSubscriptionID == "" {
		return false
	}
	switch s.Status {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionIncomplete:
		return true
	}
	return false
}

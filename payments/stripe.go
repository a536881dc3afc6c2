// Package payments wraps the Stripe API behind an injectable interface so the
// billing flows and their tests do not touch process-wide SDK state.
package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"taskmgr-backend/models"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// RedirectSession is a checkout or portal session the browser gets sent to.
type RedirectSession struct {
	ID  string
	URL string
}

type SubscriptionCheckoutParams struct {
	CustomerID string
	PriceID    string
	// ExternalUserID travels in the session metadata so the webhook can
	// resolve the user on completion.
	ExternalUserID string
	SuccessURL     string
	CancelURL      string
}

type TicketCheckoutParams struct {
	Email          string
	ExternalUserID string
	TicketEventID  string
	Lines          []models.TicketLine
	SuccessURL     string
	CancelURL      string
}

// Provider is the surface of the payment processor the rest of the service
// consumes.
type Provider interface {
	EnsureCustomer(ctx context.Context, email, name string) (string, error)
	CreateSubscriptionCheckout(ctx context.Context, p SubscriptionCheckoutParams) (*RedirectSession, error)
	CreateTicketCheckout(ctx context.Context, p TicketCheckoutParams) (*RedirectSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// StripeClient implements Provider on a dedicated client.API instance.
type StripeClient struct {
	api           *client.API
	webhookSecret string
}

func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeClient{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// EnsureCustomer returns the id of an existing customer with the given email,
// creating one when none exists.
func (s *StripeClient) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	listParams := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := s.api.Customers.List(listParams)
	for iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("listing customers: %w", err)
	}

	custParams := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	custParams.Context = ctx
	if name != "" {
		custParams.Name = stripe.String(name)
	}
	cust, err := s.api.Customers.New(custParams)
	if err != nil {
		return "", fmt.Errorf("creating customer: %w", err)
	}
	return cust.ID, nil
}

func (s *StripeClient) CreateSubscriptionCheckout(ctx context.Context, p SubscriptionCheckoutParams) (*RedirectSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(p.CustomerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.ExternalUserID),
	}
	params.Context = ctx
	params.AddMetadata("userId", p.ExternalUserID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating subscription checkout session: %w", err)
	}
	return &RedirectSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeClient) CreateTicketCheckout(ctx context.Context, p TicketCheckoutParams) (*RedirectSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(p.Lines))
	for _, line := range p.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(line.Price * 100),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Type + " ticket"),
				},
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		CustomerEmail:      stripe.String(p.Email),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
	}
	params.Context = ctx

	// The webhook handler rebuilds the purchased lines from metadata, so the
	// whole order travels with the session.
	ticketsJSON, err := json.Marshal(p.Lines)
	if err != nil {
		return nil, fmt.Errorf("encoding ticket lines: %w", err)
	}
	params.AddMetadata("tickets", string(ticketsJSON))
	params.AddMetadata("email", p.Email)
	params.AddMetadata("eventId", p.TicketEventID)
	if p.ExternalUserID != "" {
		params.AddMetadata("userId", p.ExternalUserID)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating ticket checkout session: %w", err)
	}
	return &RedirectSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("creating billing portal session: %w", err)
	}
	return sess.URL, nil
}

func (s *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return s.api.Subscriptions.Get(subscriptionID, params)
}

func (s *StripeClient) CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionCancelParams{
		Prorate: stripe.Bool(false),
	}
	params.Context = ctx
	return s.api.Subscriptions.Cancel(subscriptionID, params)
}

// ConstructWebhookEvent verifies the signature header against the webhook
// secret and decodes the payload. Verification is done by the Stripe library
// (constant-time HMAC comparison); this is the trust boundary for everything
// the reconciliation flow does.
func (s *StripeClient) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
}

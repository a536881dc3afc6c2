package billing

import (
	"context"
	"errors"
	"fmt"

	"taskmgr-backend/models"
	"taskmgr-backend/payments"

	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

type fakeProfileRepo struct {
	profiles map[string]*models.UserProfile
}

func newFakeProfileRepo(ids ...string) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: map[string]*models.UserProfile{}}
	for _, id := range ids {
		r.profiles[id] = &models.UserProfile{ID: "prof-" + id, ExternalUserID: id}
	}
	return r
}

func (r *fakeProfileRepo) GetByExternalUserID(_ context.Context, id string) (*models.UserProfile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakeProfileRepo) Create(_ context.Context, p *models.UserProfile) error {
	r.profiles[p.ExternalUserID] = p
	return nil
}

func (r *fakeProfileRepo) Update(_ context.Context, p *models.UserProfile) error {
	r.profiles[p.ExternalUserID] = p
	return nil
}

func (r *fakeProfileRepo) DeleteByExternalUserID(_ context.Context, id string) error {
	delete(r.profiles, id)
	return nil
}

type fakeSubRepo struct {
	subs        map[string]*models.Subscription
	upsertCalls int
	// reads counts GetByExternalUserID calls; entitlement tests use it to
	// check how often the gate polled.
	reads int
	// onRead, when set, runs before each read and may mutate the stored
	// rows (simulates a webhook landing mid-poll).
	onRead func(reads int, subs map[string]*models.Subscription)
}

func newFakeSubRepo(existing ...*models.Subscription) *fakeSubRepo {
	r := &fakeSubRepo{subs: map[string]*models.Subscription{}}
	for _, s := range existing {
		r.subs[s.ExternalUserID] = s
	}
	return r
}

func (r *fakeSubRepo) GetByExternalUserID(_ context.Context, id string) (*models.Subscription, error) {
	r.reads++
	if r.onRead != nil {
		r.onRead(r.reads, r.subs)
	}
	s, ok := r.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubRepo) Create(_ context.Context, s *models.Subscription) error {
	if _, ok := r.subs[s.ExternalUserID]; ok {
		return errors.New("duplicate subscription")
	}
	r.subs[s.ExternalUserID] = s
	return nil
}

func (r *fakeSubRepo) Upsert(_ context.Context, s *models.Subscription) error {
	r.upsertCalls++
	cp := *s
	r.subs[s.ExternalUserID] = &cp
	return nil
}

func (r *fakeSubRepo) UpdateStatus(_ context.Context, id string, status models.SubscriptionStatus) error {
	s, ok := r.subs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = status
	return nil
}

func (r *fakeSubRepo) DeleteByExternalUserID(_ context.Context, id string) error {
	delete(r.subs, id)
	return nil
}

type fakeTicketRepo struct {
	rows []*models.TicketTransaction
	// failsLeft makes the next N creates fail, to exercise partial-batch
	// redelivery.
	failsLeft int
}

func (r *fakeTicketRepo) CreateIfAbsent(_ context.Context, tx *models.TicketTransaction) (bool, error) {
	for _, row := range r.rows {
		if row.StripeEventID == tx.StripeEventID && row.LineIndex == tx.LineIndex {
			return false, nil
		}
	}
	if r.failsLeft > 0 {
		r.failsLeft--
		return false, errors.New("database unavailable")
	}
	cp := *tx
	r.rows = append(r.rows, &cp)
	return true, nil
}

func (r *fakeTicketRepo) ListByExternalUserID(_ context.Context, id string) ([]models.TicketTransaction, error) {
	var out []models.TicketTransaction
	for _, row := range r.rows {
		if row.ExternalUserID == id {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) ListByEmail(_ context.Context, email string) ([]models.TicketTransaction, error) {
	var out []models.TicketTransaction
	for _, row := range r.rows {
		if row.Email == email {
			out = append(out, *row)
		}
	}
	return out, nil
}

type fakeLedger struct {
	processed map[string]string
	markErr   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{processed: map[string]string{}}
}

func (r *fakeLedger) Exists(_ context.Context, eventID string) (bool, error) {
	_, ok := r.processed[eventID]
	return ok, nil
}

func (r *fakeLedger) MarkProcessed(_ context.Context, eventID, eventType string) error {
	if r.markErr != nil {
		return r.markErr
	}
	if _, ok := r.processed[eventID]; ok {
		return fmt.Errorf("duplicate processed event %s", eventID)
	}
	r.processed[eventID] = eventType
	return nil
}

type fakeProvider struct {
	subscriptions map[string]*stripe.Subscription
	getErr        error
}

func (p *fakeProvider) EnsureCustomer(context.Context, string, string) (string, error) {
	return "cus_fake", nil
}

func (p *fakeProvider) CreateSubscriptionCheckout(context.Context, payments.SubscriptionCheckoutParams) (*payments.RedirectSession, error) {
	return &payments.RedirectSession{ID: "cs_fake", URL: "https://checkout.example/cs_fake"}, nil
}

func (p *fakeProvider) CreateTicketCheckout(context.Context, payments.TicketCheckoutParams) (*payments.RedirectSession, error) {
	return &payments.RedirectSession{ID: "cs_fake", URL: "https://checkout.example/cs_fake"}, nil
}

func (p *fakeProvider) CreatePortalSession(context.Context, string, string) (string, error) {
	return "https://portal.example", nil
}

func (p *fakeProvider) GetSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	if p.getErr != nil {
		return nil, p.getErr
	}
	s, ok := p.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription %s", id)
	}
	return s, nil
}

func (p *fakeProvider) CancelSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	return p.GetSubscription(nil, id)
}

func (p *fakeProvider) ConstructWebhookEvent([]byte, string) (stripe.Event, error) {
	return stripe.Event{}, errors.New("not implemented in fake")
}

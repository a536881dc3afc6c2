package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"taskmgr-backend/billing"
	"taskmgr-backend/middleware"
	"taskmgr-backend/models"
	"taskmgr-backend/payments"
	"taskmgr-backend/testutils"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

type memProfileRepo struct {
	profiles map[string]*models.UserProfile
}

func (r *memProfileRepo) GetByExternalUserID(_ context.Context, id string) (*models.UserProfile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *memProfileRepo) Create(_ context.Context, p *models.UserProfile) error {
	r.profiles[p.ExternalUserID] = p
	return nil
}

func (r *memProfileRepo) Update(_ context.Context, p *models.UserProfile) error {
	r.profiles[p.ExternalUserID] = p
	return nil
}

func (r *memProfileRepo) DeleteByExternalUserID(_ context.Context, id string) error {
	delete(r.profiles, id)
	return nil
}

type memSubRepo struct {
	subs map[string]*models.Subscription
}

func (r *memSubRepo) GetByExternalUserID(_ context.Context, id string) (*models.Subscription, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memSubRepo) Create(_ context.Context, s *models.Subscription) error {
	r.subs[s.ExternalUserID] = s
	return nil
}

func (r *memSubRepo) Upsert(_ context.Context, s *models.Subscription) error {
	r.subs[s.ExternalUserID] = s
	return nil
}

func (r *memSubRepo) UpdateStatus(_ context.Context, id string, status models.SubscriptionStatus) error {
	s, ok := r.subs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = status
	return nil
}

func (r *memSubRepo) DeleteByExternalUserID(_ context.Context, id string) error {
	delete(r.subs, id)
	return nil
}

type fakeProvider struct {
	customerID     string
	checkoutCalls  []payments.SubscriptionCheckoutParams
	canceled       []string
	cancelErr      error
	portalURL      string
	ensureErr      error
	checkoutErr    error
	portalCustomer string
}

func (p *fakeProvider) EnsureCustomer(_ context.Context, email, name string) (string, error) {
	if p.ensureErr != nil {
		return "", p.ensureErr
	}
	return p.customerID, nil
}

func (p *fakeProvider) CreateSubscriptionCheckout(_ context.Context, params payments.SubscriptionCheckoutParams) (*payments.RedirectSession, error) {
	if p.checkoutErr != nil {
		return nil, p.checkoutErr
	}
	p.checkoutCalls = append(p.checkoutCalls, params)
	return &payments.RedirectSession{ID: "cs_1", URL: "https://checkout.example.com/cs_1"}, nil
}

func (p *fakeProvider) CreateTicketCheckout(_ context.Context, _ payments.TicketCheckoutParams) (*payments.RedirectSession, error) {
	return nil, errors.New("not used here")
}

func (p *fakeProvider) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	p.portalCustomer = customerID
	return p.portalURL, nil
}

func (p *fakeProvider) GetSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	return &stripe.Subscription{ID: id}, nil
}

func (p *fakeProvider) CancelSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	if p.cancelErr != nil {
		return nil, p.cancelErr
	}
	p.canceled = append(p.canceled, id)
	return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusCanceled}, nil
}

func (p *fakeProvider) ConstructWebhookEvent(_ []byte, _ string) (stripe.Event, error) {
	return stripe.Event{}, errors.New("not used here")
}

type fixture struct {
	router   *gin.Engine
	profiles *memProfileRepo
	subs     *memSubRepo
	provider *fakeProvider
}

func newFixture(userID string) *fixture {
	profiles := &memProfileRepo{profiles: map[string]*models.UserProfile{}}
	subs := &memSubRepo{subs: map[string]*models.Subscription{}}
	provider := &fakeProvider{customerID: "cus_1", portalURL: "https://portal.example.com/s_1"}

	entitlement := billing.NewEntitlementChecker(subs)
	entitlement.RetryBase = time.Millisecond
	entitlement.GraceDelay = time.Millisecond

	h := New(profiles, subs, provider, entitlement, "https://app.example.com")

	r := testutils.SetupTestRouter()
	auth := func(c *gin.Context) {
		if userID != "" {
			middleware.SetCaller(c, middleware.Caller{UserID: userID})
		}
		c.Next()
	}
	r.POST("/billing/checkout", auth, h.CreateCheckout)
	r.POST("/billing/portal", auth, h.CreatePortal)
	r.DELETE("/billing/subscription", auth, h.CancelSubscription)
	r.GET("/billing/entitlement", auth, h.GetEntitlement)

	return &fixture{router: r, profiles: profiles, subs: subs, provider: provider}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func TestCreateCheckout_FirstInteraction_CreatesPendingRowAndSession(t *testing.T) {
	f := newFixture("user_1")
	f.profiles.profiles["user_1"] = &models.UserProfile{
		ExternalUserID: "user_1",
		Name:           "Ada Lovelace",
		Email:          "ada@example.com",
	}

	resp := f.do(http.MethodPost, "/billing/checkout", `{"priceId":"price_1"}`)

	assert.Equal(t, http.StatusOK, resp.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "cs_1", body["sessionId"])
	assert.NotEmpty(t, body["url"])

	sub := f.subs.subs["user_1"]
	require.NotNil(t, sub, "the first billing interaction creates the local row")
	assert.Equal(t, models.SubscriptionPending, sub.Status)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)

	require.Len(t, f.provider.checkoutCalls, 1)
	call := f.provider.checkoutCalls[0]
	assert.Equal(t, "price_1", call.PriceID)
	assert.Equal(t, "user_1", call.ExternalUserID)
	assert.Contains(t, call.SuccessURL, "session_id={CHECKOUT_SESSION_ID}")
}

func TestCreateCheckout_AlreadySubscribed_Conflict(t *testing.T) {
	f := newFixture("user_1")
	f.subs.subs["user_1"] = &models.Subscription{
		ExternalUserID:       "user_1",
		StripeSubscriptionID: "sub_1",
		Status:               models.SubscriptionActive,
	}

	resp := f.do(http.MethodPost, "/billing/checkout", `{"priceId":"price_1"}`)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Empty(t, f.provider.checkoutCalls)
}

func TestCreateCheckout_NoProfileEmail_Rejected(t *testing.T) {
	f := newFixture("user_1")

	resp := f.do(http.MethodPost, "/billing/checkout", `{"priceId":"price_1"}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, f.subs.subs)
}

func TestCreateCheckout_MissingPriceID_Rejected(t *testing.T) {
	f := newFixture("user_1")

	resp := f.do(http.MethodPost, "/billing/checkout", `{}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateCheckout_Unauthenticated(t *testing.T) {
	f := newFixture("")

	resp := f.do(http.MethodPost, "/billing/checkout", `{"priceId":"price_1"}`)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreatePortal_ReturnsURL(t *testing.T) {
	f := newFixture("user_1")
	f.subs.subs["user_1"] = &models.Subscription{
		ExternalUserID:   "user_1",
		StripeCustomerID: "cus_1",
		Status:           models.SubscriptionActive,
	}

	resp := f.do(http.MethodPost, "/billing/portal", "")

	assert.Equal(t, http.StatusOK, resp.Code)

	var body map[string]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	assert.Equal(t, "https://portal.example.com/s_1", body["url"])
	assert.Equal(t, "cus_1", f.provider.portalCustomer)
}

func TestCreatePortal_NoBillingAccount(t *testing.T) {
	f := newFixture("user_1")

	resp := f.do(http.MethodPost, "/billing/portal", "")

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCancelSubscription_CancelsRemoteThenLocal(t *testing.T) {
	f := newFixture("user_1")
	f.subs.subs["user_1"] = &models.Subscription{
		ExternalUserID:       "user_1",
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		Status:               models.SubscriptionActive,
	}

	resp := f.do(http.MethodDelete, "/billing/subscription", "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"sub_1"}, f.provider.canceled)
	assert.Equal(t, models.SubscriptionCanceled, f.subs.subs["user_1"].Status)
}

func TestCancelSubscription_RemoteFailure_KeepsLocalState(t *testing.T) {
	f := newFixture("user_1")
	f.provider.cancelErr = errors.New("stripe unavailable")
	f.subs.subs["user_1"] = &models.Subscription{
		ExternalUserID:       "user_1",
		StripeSubscriptionID: "sub_1",
		Status:               models.SubscriptionActive,
	}

	resp := f.do(http.MethodDelete, "/billing/subscription", "")

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, models.SubscriptionActive, f.subs.subs["user_1"].Status,
		"the local row must not flip to canceled when the provider call fails")
}

func TestCancelSubscription_NoSubscription(t *testing.T) {
	f := newFixture("user_1")

	resp := f.do(http.MethodDelete, "/billing/subscription", "")

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetEntitlement_Granted(t *testing.T) {
	f := newFixture("user_1")
	f.subs.subs["user_1"] = &models.Subscription{
		ExternalUserID:       "user_1",
		StripeSubscriptionID: "sub_1",
		Status:               models.SubscriptionActive,
	}

	resp := f.do(http.MethodGet, "/billing/entitlement", "")

	assert.Equal(t, http.StatusOK, resp.Code)

	var result billing.EntitlementResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, billing.EntitlementGranted, result.State)
}

func TestGetEntitlement_NoSubscription_None(t *testing.T) {
	f := newFixture("user_1")

	resp := f.do(http.MethodGet, "/billing/entitlement", "")

	assert.Equal(t, http.StatusOK, resp.Code)

	var result billing.EntitlementResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, billing.EntitlementNone, result.State)
}

func TestGetEntitlement_AfterCheckout_PendingFallback(t *testing.T) {
	f := newFixture("user_1")
	f.subs.subs["user_1"] = &models.Subscription{
		ExternalUserID: "user_1",
		Status:         models.SubscriptionPending,
	}

	resp := f.do(http.MethodGet, "/billing/entitlement?success=true", "")

	assert.Equal(t, http.StatusOK, resp.Code)

	var result billing.EntitlementResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, billing.EntitlementPending, result.State,
		"webhook latency after checkout must surface as pending, not as no access")
}

package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/app/repository"
)

func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.BillingWebhookEvent{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

type fakeGateway struct {
	customerID   string
	checkoutURL  string
	portalURL    string
	subscription *SubscriptionInfo

	checkoutInput CheckoutInput
	getSubCalls   []string
}

func (g *fakeGateway) FindOrCreateCustomer(ctx context.Context, email, name string) (string, error) {
	return g.customerID, nil
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	g.checkoutInput = in
	return g.checkoutURL, nil
}

func (g *fakeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return g.portalURL, nil
}

func (g *fakeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionInfo, error) {
	g.getSubCalls = append(g.getSubCalls, subscriptionID)
	if g.subscription != nil {
		return g.subscription, nil
	}
	return nil, fmt.Errorf("no subscription %s", subscriptionID)
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test User", Email: email, Status: models.STATUS_ACTIVE, Role: models.ROLE_USER}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func subscriptionEvent(t *testing.T, eventType, subID, customerID, priceID, status string, periodEnd int64) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":       subID,
		"customer": map[string]any{"id": customerID},
		"status":   status,
		"items": map[string]any{
			"data": []map[string]any{
				{"price": map[string]any{"id": priceID}},
			},
		},
		"current_period_end": periodEnd,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return stripe.Event{
		ID:   "evt_" + subID,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestRecordWebhookEvent_Dedupe(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})
	ctx := context.Background()

	in := WebhookEventInput{
		Provider:        ProviderStripe,
		ProviderEventID: "evt_123",
		EventType:       "checkout.session.completed",
		PayloadJSON:     `{"id":"evt_123"}`,
		SignatureValid:  true,
	}

	created, event, err := svc.RecordWebhookEvent(ctx, in)
	if err != nil {
		t.Fatalf("record event: %v", err)
	}
	if !created || event == nil || event.ID == 0 {
		t.Fatalf("expected first delivery to create a record, created=%v event=%+v", created, event)
	}

	createdAgain, again, err := svc.RecordWebhookEvent(ctx, in)
	if err != nil {
		t.Fatalf("record duplicate: %v", err)
	}
	if createdAgain {
		t.Fatalf("expected duplicate delivery to be detected")
	}
	if again.ID != event.ID {
		t.Fatalf("expected duplicate to return existing record %d, got %d", event.ID, again.ID)
	}
}

func TestRecordWebhookEvent_MissingIDUsesPayloadHash(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})

	created, event, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    ProviderStripe,
		EventType:   "customer.subscription.updated",
		PayloadJSON: `{"object":"event"}`,
	})
	if err != nil {
		t.Fatalf("record event: %v", err)
	}
	if !created {
		t.Fatalf("expected event to be created")
	}
	if event.ProviderEventID == "" || event.ProviderEventID[:5] != "hash:" {
		t.Fatalf("expected hash-derived event ID, got %q", event.ProviderEventID)
	}
}

func TestMarkWebhookProcessed(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})
	ctx := context.Background()

	_, event, err := svc.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        ProviderStripe,
		ProviderEventID: "evt_done",
		EventType:       "invoice.paid",
		PayloadJSON:     `{}`,
	})
	if err != nil {
		t.Fatalf("record event: %v", err)
	}

	if err := svc.MarkWebhookProcessed(ctx, event.ID, nil); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	var stored models.BillingWebhookEvent
	if err := db.First(&stored, event.ID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if stored.ProcessedAt == nil {
		t.Fatalf("expected processed_at to be set")
	}
	if stored.ProcessingError != "" {
		t.Fatalf("expected empty processing error, got %q", stored.ProcessingError)
	}
}

func TestHandleEvent_SubscriptionUpdated_SetsAllFieldsTogether(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})
	user := createTestUser(t, db, "owner@example.com")
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("stripe_customer_id", "cus_42").Error; err != nil {
		t.Fatalf("seed customer id: %v", err)
	}

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := subscriptionEvent(t, "customer.subscription.updated", "sub_1", "cus_42", "price_biz_m", "active", periodEnd)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.StripeSubscriptionID == nil || *stored.StripeSubscriptionID != "sub_1" {
		t.Fatalf("expected subscription id sub_1, got %v", stored.StripeSubscriptionID)
	}
	if stored.StripePriceID == nil || *stored.StripePriceID != "price_biz_m" {
		t.Fatalf("expected price id price_biz_m, got %v", stored.StripePriceID)
	}
	if stored.StripeCurrentPeriodEnd == nil || stored.StripeCurrentPeriodEnd.Unix() != periodEnd {
		t.Fatalf("expected period end %d, got %v", periodEnd, stored.StripeCurrentPeriodEnd)
	}
	if !stored.HasActiveSubscription() {
		t.Fatalf("expected active subscription after update")
	}
}

func TestHandleEvent_SubscriptionDeleted_ClearsAllFieldsTogether(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})
	user := createTestUser(t, db, "owner@example.com")

	users := repository.NewUserRepository(db)
	if err := users.SetSubscription(user.ID, "cus_42", "sub_1", "price_biz_m", time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	event := subscriptionEvent(t, "customer.subscription.deleted", "sub_1", "cus_42", "price_biz_m", "canceled", time.Now().Unix())
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.StripeSubscriptionID != nil || stored.StripePriceID != nil || stored.StripeCurrentPeriodEnd != nil {
		t.Fatalf("expected all subscription fields cleared, got %+v", stored)
	}
	if stored.StripeCustomerID != "cus_42" {
		t.Fatalf("expected customer id to survive cancellation, got %q", stored.StripeCustomerID)
	}
}

func TestHandleEvent_NonEntitlingStatusClearsSubscription(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})
	user := createTestUser(t, db, "owner@example.com")

	users := repository.NewUserRepository(db)
	if err := users.SetSubscription(user.ID, "cus_42", "sub_1", "price_biz_m", time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	event := subscriptionEvent(t, "customer.subscription.updated", "sub_1", "cus_42", "price_biz_m", "unpaid", time.Now().Unix())
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.StripeSubscriptionID != nil {
		t.Fatalf("expected unpaid subscription to clear entitlement")
	}
}

func TestHandleEvent_UnknownAccountIsAcknowledged(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})

	event := subscriptionEvent(t, "customer.subscription.updated", "sub_x", "cus_unknown", "price_biz_m", "active", time.Now().Unix())
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected unknown account to be acknowledged, got %v", err)
	}
}

func TestHandleEvent_MissingDataPayloadIsAcknowledged(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})
	user := createTestUser(t, db, "owner@example.com")

	// Unverified parsing accepts any JSON, so Data can arrive nil.
	event := stripe.Event{
		ID:   "evt_no_data",
		Type: stripe.EventType("customer.subscription.updated"),
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected payload-less event to be acknowledged, got %v", err)
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.StripeSubscriptionID != nil || stored.StripePriceID != nil {
		t.Fatalf("expected no writes for payload-less event, got %+v", stored)
	}
}

func TestHandleEvent_UnhandledTypeIsIgnored(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})

	event := stripe.Event{
		ID:   "evt_other",
		Type: stripe.EventType("charge.refunded"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected unhandled type to be ignored, got %v", err)
	}
}

func TestHandleEvent_CheckoutCompleted_LinksCustomerAndSubscription(t *testing.T) {
	db := setupBillingTestDB(t)
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	gw := &fakeGateway{
		subscription: &SubscriptionInfo{
			ID:               "sub_new",
			CustomerID:       "cus_new",
			PriceID:          "price_pro_m",
			Status:           "active",
			CurrentPeriodEnd: periodEnd,
		},
	}
	svc := NewServiceFromDB(db, gw)
	user := createTestUser(t, db, "owner@example.com")

	raw, _ := json.Marshal(map[string]any{
		"id":           "cs_1",
		"mode":         "subscription",
		"customer":     map[string]any{"id": "cus_new"},
		"subscription": map[string]any{"id": "sub_new"},
		"metadata":     map[string]string{"user_id": fmt.Sprintf("%d", user.ID)},
	})
	event := stripe.Event{
		ID:   "evt_cs_1",
		Type: stripe.EventType("checkout.session.completed"),
		Data: &stripe.EventData{Raw: raw},
	}

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(gw.getSubCalls) != 1 || gw.getSubCalls[0] != "sub_new" {
		t.Fatalf("expected subscription fetch for sub_new, got %v", gw.getSubCalls)
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.StripeCustomerID != "cus_new" {
		t.Fatalf("expected customer id cus_new, got %q", stored.StripeCustomerID)
	}
	if stored.StripeSubscriptionID == nil || *stored.StripeSubscriptionID != "sub_new" {
		t.Fatalf("expected subscription sub_new, got %v", stored.StripeSubscriptionID)
	}
}

func TestHandleEvent_CheckoutCompleted_EmailFallbackCreatesAccount(t *testing.T) {
	db := setupBillingTestDB(t)
	gw := &fakeGateway{
		subscription: &SubscriptionInfo{
			ID:               "sub_guest",
			CustomerID:       "cus_guest",
			PriceID:          "price_biz_m",
			Status:           "active",
			CurrentPeriodEnd: time.Now().Add(24 * time.Hour),
		},
	}
	svc := NewServiceFromDB(db, gw)

	raw, _ := json.Marshal(map[string]any{
		"id":               "cs_guest",
		"mode":             "subscription",
		"customer":         map[string]any{"id": "cus_guest"},
		"subscription":     map[string]any{"id": "sub_guest"},
		"customer_details": map[string]any{"email": "Guest@Example.com"},
	})
	event := stripe.Event{
		ID:   "evt_cs_guest",
		Type: stripe.EventType("checkout.session.completed"),
		Data: &stripe.EventData{Raw: raw},
	}

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	var stored models.User
	if err := db.Where("email = ?", "guest@example.com").First(&stored).Error; err != nil {
		t.Fatalf("expected account created for checkout email: %v", err)
	}
	if stored.StripeSubscriptionID == nil || *stored.StripeSubscriptionID != "sub_guest" {
		t.Fatalf("expected subscription linked to new account, got %v", stored.StripeSubscriptionID)
	}
}

func TestStartCheckout(t *testing.T) {
	t.Setenv("STRIPE_PRICE_BUSINESS_MONTHLY", "price_biz_m")
	db := setupBillingTestDB(t)
	gw := &fakeGateway{customerID: "cus_77", checkoutURL: "https://checkout.example/session"}
	svc := NewServiceFromDB(db, gw)
	user := createTestUser(t, db, "owner@example.com")

	url, err := svc.StartCheckout(context.Background(), user.ID, PlanBusiness, IntervalMonth, "https://app/billing?ok=1", "https://app/pricing")
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if url != gw.checkoutURL {
		t.Fatalf("expected checkout URL %q, got %q", gw.checkoutURL, url)
	}
	if gw.checkoutInput.PriceID != "price_biz_m" {
		t.Fatalf("expected price_biz_m, got %q", gw.checkoutInput.PriceID)
	}
	if gw.checkoutInput.Metadata["email"] != user.Email {
		t.Fatalf("expected identity metadata on checkout, got %v", gw.checkoutInput.Metadata)
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.StripeCustomerID != "cus_77" {
		t.Fatalf("expected customer id persisted before checkout, got %q", stored.StripeCustomerID)
	}
}

func TestStartCheckout_StarterPlanRejected(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := NewServiceFromDB(db, &fakeGateway{})
	user := createTestUser(t, db, "owner@example.com")

	if _, err := svc.StartCheckout(context.Background(), user.ID, PlanStarter, IntervalMonth, "s", "c"); err != ErrPlanFree {
		t.Fatalf("expected ErrPlanFree, got %v", err)
	}
}

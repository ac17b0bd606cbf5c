package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/app/repository"
)

const ProviderStripe = "stripe"

// Service synchronizes external billing state into the local users table and
// drives checkout and portal flows through the gateway.
type Service struct {
	users    repository.UserRepository
	events   repository.WebhookEventRepository
	gateway  Gateway
	resolver *AccountResolver
}

// NewService creates a billing service from injected repositories and a gateway.
func NewService(users repository.UserRepository, events repository.WebhookEventRepository, gateway Gateway) *Service {
	return &Service{
		users:    users,
		events:   events,
		gateway:  gateway,
		resolver: NewAccountResolver(users),
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway) *Service {
	return NewService(repository.NewUserRepository(db), repository.NewWebhookEventRepository(db), gateway)
}

// StartCheckout opens a hosted checkout for the given user and tier. The
// user's provider customer is found or created first so repeat checkouts
// never fork a second customer record for the same email.
func (s *Service) StartCheckout(ctx context.Context, userID uint, plan PlanID, interval Interval, successURL, cancelURL string) (string, error) {
	priceID, err := PriceIDFor(plan, interval)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return "", err
	}

	customerID := strings.TrimSpace(user.StripeCustomerID)
	if customerID == "" {
		customerID, err = s.gateway.FindOrCreateCustomer(ctx, user.Email, user.Name)
		if err != nil {
			return "", err
		}
		if err := s.users.SetStripeCustomerID(user.ID, customerID); err != nil {
			return "", err
		}
	}

	return s.gateway.CreateCheckoutSession(ctx, CheckoutInput{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Metadata: map[string]string{
			"user_id":  fmt.Sprintf("%d", user.ID),
			"email":    user.Email,
			"plan":     string(plan),
			"interval": string(interval),
		},
	})
}

// OpenPortal opens the provider's self-service billing portal for a user.
func (s *Service) OpenPortal(ctx context.Context, userID uint, returnURL string) (string, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	customerID := strings.TrimSpace(user.StripeCustomerID)
	if customerID == "" {
		customerID, err = s.gateway.FindOrCreateCustomer(ctx, user.Email, user.Name)
		if err != nil {
			return "", err
		}
		if err := s.users.SetStripeCustomerID(user.ID, customerID); err != nil {
			return "", err
		}
	}
	return s.gateway.CreatePortalSession(ctx, customerID, returnURL)
}

// RecordWebhookEvent persists webhook payloads idempotently. The first return
// value reports whether the event is new; a false means a duplicate delivery
// that must be acknowledged without reprocessing.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.events.CreateIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.events.MarkProcessed(webhookEventID, errMsg)
}

// HandleEvent dispatches a verified webhook event to its reconciler. Event
// types without a handler are acknowledged untouched. An event that cannot be
// matched to any local account is logged and acknowledged so the provider
// stops retrying it.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	// Events without a data payload can reach this point when verification
	// is disabled, since any parsable JSON is accepted then.
	if event.Data == nil {
		log.Printf("[Billing] event %s (%s) carries no data payload, acknowledging", event.ID, event.Type)
		return nil
	}

	var err error
	switch string(event.Type) {
	case "checkout.session.completed":
		err = s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.handleSubscriptionChanged(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.paid", "invoice.payment_failed":
		err = s.handleInvoiceEvent(ctx, event)
	default:
		return nil
	}
	if errors.Is(err, ErrAccountNotFound) {
		log.Printf("[Billing] no account for event %s (%s), acknowledging", event.ID, event.Type)
		return nil
	}
	return err
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}

	ref := AccountRef{
		UserID: sess.Metadata["user_id"],
		Email:  sess.Metadata["email"],
	}
	if sess.Customer != nil {
		ref.CustomerID = sess.Customer.ID
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		ref.CustomerEmail = sess.CustomerDetails.Email
	} else {
		ref.CustomerEmail = sess.CustomerEmail
	}

	user, err := s.resolver.Resolve(ref)
	if err != nil {
		return err
	}

	if ref.CustomerID != "" && user.StripeCustomerID != ref.CustomerID {
		if err := s.users.SetStripeCustomerID(user.ID, ref.CustomerID); err != nil {
			return err
		}
	}

	if sess.Subscription == nil || sess.Subscription.ID == "" {
		return nil
	}

	// The checkout payload carries the subscription only as a reference,
	// so fetch the full object for the price and period end.
	info, err := s.gateway.GetSubscription(ctx, sess.Subscription.ID)
	if err != nil {
		return err
	}
	return s.applySubscription(user, ref.CustomerID, info)
}

func (s *Service) handleSubscriptionChanged(ctx context.Context, event stripe.Event) error {
	_ = ctx
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}

	ref := AccountRef{
		UserID: sub.Metadata["user_id"],
		Email:  sub.Metadata["email"],
	}
	if sub.Customer != nil {
		ref.CustomerID = sub.Customer.ID
	}
	user, err := s.resolver.Resolve(ref)
	if err != nil {
		return err
	}
	return s.applySubscription(user, ref.CustomerID, subscriptionInfoFromStripe(&sub))
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	_ = ctx
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}

	ref := AccountRef{
		UserID: sub.Metadata["user_id"],
		Email:  sub.Metadata["email"],
	}
	if sub.Customer != nil {
		ref.CustomerID = sub.Customer.ID
	}
	user, err := s.resolver.Resolve(ref)
	if err != nil {
		return err
	}
	return s.users.ClearSubscription(user.ID)
}

// handleInvoiceEvent refreshes subscription state after a payment outcome so
// a lapsed card clears entitlement without waiting for the subscription event.
func (s *Service) handleInvoiceEvent(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("failed to decode invoice: %w", err)
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		return nil
	}

	ref := AccountRef{}
	if inv.Customer != nil {
		ref.CustomerID = inv.Customer.ID
	}
	ref.CustomerEmail = inv.CustomerEmail
	user, err := s.resolver.Resolve(ref)
	if err != nil {
		return err
	}

	info, err := s.gateway.GetSubscription(ctx, inv.Subscription.ID)
	if err != nil {
		return err
	}
	return s.applySubscription(user, ref.CustomerID, info)
}

// applySubscription writes the provider subscription state onto the user as
// one atomic update. Statuses without entitlement clear all subscription
// fields together so they are always all set or all empty.
func (s *Service) applySubscription(user *models.User, customerID string, info *SubscriptionInfo) error {
	if customerID == "" {
		customerID = info.CustomerID
	}
	if customerID == "" {
		customerID = user.StripeCustomerID
	}
	if !isEntitlingStatus(info.Status) {
		return s.users.ClearSubscription(user.ID)
	}
	return s.users.SetSubscription(user.ID, customerID, info.ID, info.PriceID, info.CurrentPeriodEnd)
}

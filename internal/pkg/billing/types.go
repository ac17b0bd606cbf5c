package billing

import "time"

// SubscriptionInfo is the provider-agnostic shape of a subscription used by
// the billing service when syncing external state into the users table.
type SubscriptionInfo struct {
	ID                string
	CustomerID        string
	PriceID           string
	Status            string
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// AccountRef carries every identity hint a webhook event can supply, in
// resolution order: explicit user metadata first, then the provider customer
// ID, then the customer email as a last resort.
type AccountRef struct {
	UserID        string
	Email         string
	CustomerID    string
	CustomerEmail string
}

package repository

import (
	"time"

	"github.com/bizguard/bizguard/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	EnsureByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	UpdateProfile(id uint, companyName, industry, language, complianceFocus string) error
	SetStripeCustomerID(id uint, customerID string) error
	SetSubscription(id uint, customerID, subscriptionID, priceID string, periodEnd time.Time) error
	ClearSubscription(id uint) error
	Delete(id uint) error
	Count() (int64, error)
}

// RecordRepository defines the interface for dashboard record operations
type RecordRepository interface {
	Create(record *models.Record) error
	GetByID(id uint) (*models.Record, error)
	ListByUser(userID uint) ([]models.Record, error)
	Update(id uint, title, notes string) error
	Delete(id uint) error
}

// WebhookEventRepository defines the interface for webhook event dedupe records
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

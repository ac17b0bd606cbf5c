package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_DISABLED = "disabled"
)

// User is the single account table: identity, business profile and the
// Stripe billing columns live side by side, keyed by email or generated id.
// The three subscription fields (StripeSubscriptionID, StripePriceID,
// StripeCurrentPeriodEnd) are either all null or all set; the webhook
// reconciliation always writes them as one set.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email    string `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password string `gorm:"type:text" json:"-"`
	Role     string `gorm:"type:varchar(50);default:'user'" json:"role" validate:"omitempty,oneof=user admin"`
	Status   string `gorm:"type:varchar(50);default:'active'" json:"status" validate:"omitempty,oneof=active disabled"`

	// Business profile
	CompanyName     string `gorm:"type:varchar(200);default:''" json:"company_name" validate:"max=200"`
	Industry        string `gorm:"type:varchar(100);default:''" json:"industry" validate:"max=100"`
	Language        string `gorm:"type:varchar(50);default:''" json:"language" validate:"max=50"`
	ComplianceFocus string `gorm:"type:varchar(200);default:''" json:"compliance_focus" validate:"max=200"`

	// Billing state, mutated only by the webhook receiver (and the
	// checkout flow, which records the customer id).
	StripeCustomerID       string     `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id"`
	StripeSubscriptionID   *string    `gorm:"type:varchar(191);default:null" json:"stripe_subscription_id,omitempty"`
	StripePriceID          *string    `gorm:"type:varchar(191);default:null" json:"stripe_price_id,omitempty"`
	StripeCurrentPeriodEnd *time.Time `gorm:"type:timestamp;default:null" json:"stripe_current_period_end,omitempty"`

	// Rolled-up AI request usage, flushed from Redis in batches.
	AIRequestCount int64 `gorm:"default:0" json:"ai_request_count"`

	LastLoginAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(name string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    email,
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_ACTIVE,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// HasActiveSubscription reports whether the subscription field set is populated.
func (u *User) HasActiveSubscription() bool {
	return u.StripeSubscriptionID != nil && u.StripePriceID != nil && u.StripeCurrentPeriodEnd != nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

package repository

import (
	"strings"
	"time"

	"github.com/bizguard/bizguard/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByStripeCustomerID retrieves a user by their linked Stripe customer
func (r *userRepository) GetByStripeCustomerID(customerID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("stripe_customer_id = ?", strings.TrimSpace(customerID)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureByEmail returns the user for the given email, creating a bare
// account row on first sight (profile-ensure semantics: first sign-in or
// first checkout may race, the conflict clause keeps a single row).
func (r *userRepository) EnsureByEmail(email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	user := models.User{
		Email:  normalized,
		Status: models.STATUS_ACTIVE,
		Role:   models.ROLE_USER,
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&user).Error; err != nil {
		return nil, err
	}

	var stored models.User
	if err := r.db.Where("email = ?", normalized).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateProfile writes only the business-profile columns, leaving billing
// state untouched.
func (r *userRepository) UpdateProfile(id uint, companyName, industry, language, complianceFocus string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"company_name":     companyName,
		"industry":         industry,
		"language":         language,
		"compliance_focus": complianceFocus,
	}).Error
}

// SetStripeCustomerID links a provider customer to the account.
func (r *userRepository) SetStripeCustomerID(id uint, customerID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).
		Update("stripe_customer_id", strings.TrimSpace(customerID)).Error
}

// SetSubscription writes the customer id and all three subscription fields
// as one UPDATE so the all-or-nothing invariant holds under redelivery and
// racing deliveries (last write wins).
func (r *userRepository) SetSubscription(id uint, customerID, subscriptionID, priceID string, periodEnd time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stripe_customer_id":        strings.TrimSpace(customerID),
		"stripe_subscription_id":    strings.TrimSpace(subscriptionID),
		"stripe_price_id":           strings.TrimSpace(priceID),
		"stripe_current_period_end": periodEnd,
	}).Error
}

// ClearSubscription nulls the three subscription fields as one UPDATE.
// The customer id and profile columns stay.
func (r *userRepository) ClearSubscription(id uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stripe_subscription_id":    nil,
		"stripe_price_id":           nil,
		"stripe_current_period_end": nil,
	}).Error
}

// Delete soft deletes a user by their ID
func (r *userRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

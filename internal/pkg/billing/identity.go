package billing

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/app/repository"
)

// ErrAccountNotFound signals that no local account matched any identity hint.
var ErrAccountNotFound = errors.New("no account matched billing identity")

// AccountResolver maps webhook identity hints to a local user record.
type AccountResolver struct {
	users repository.UserRepository
}

func NewAccountResolver(users repository.UserRepository) *AccountResolver {
	return &AccountResolver{users: users}
}

// Resolve walks the identity chain: explicit user ID from event metadata,
// then metadata email, then the stored provider customer ID, then the
// customer email. The email fallbacks upsert the account so a checkout
// completed by a visitor who never registered still gets linked.
func (r *AccountResolver) Resolve(ref AccountRef) (*models.User, error) {
	if id := strings.TrimSpace(ref.UserID); id != "" {
		if userID, err := strconv.ParseUint(id, 10, 64); err == nil && userID > 0 {
			user, err := r.users.GetByID(uint(userID))
			if err == nil {
				return user, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}

	if email := normalizeEmail(ref.Email); email != "" {
		user, err := r.users.EnsureByEmail(email)
		if err != nil {
			return nil, err
		}
		return user, nil
	}

	if customerID := strings.TrimSpace(ref.CustomerID); customerID != "" {
		user, err := r.users.GetByStripeCustomerID(customerID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if email := normalizeEmail(ref.CustomerEmail); email != "" {
		user, err := r.users.EnsureByEmail(email)
		if err != nil {
			return nil, err
		}
		return user, nil
	}

	return nil, ErrAccountNotFound
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

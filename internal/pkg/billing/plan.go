package billing

import (
	"errors"
	"strings"

	"github.com/bizguard/bizguard/internal/pkg/env"
)

// PlanID identifies a subscription tier.
type PlanID string

const (
	PlanStarter     PlanID = "starter"
	PlanBusiness    PlanID = "business"
	PlanBusinessPro PlanID = "business_pro"
)

// Interval is a billing cycle length.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

var (
	// ErrPlanFree signals that the requested plan has no paid price.
	ErrPlanFree = errors.New("plan has no paid price")
	// ErrPriceNotConfigured signals a missing price ID for a paid plan/interval combination.
	ErrPriceNotConfigured = errors.New("price not configured for plan and interval")
)

func NormalizePlan(plan string) PlanID {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanBusiness):
		return PlanBusiness
	case string(PlanBusinessPro):
		return PlanBusinessPro
	default:
		return PlanStarter
	}
}

func NormalizeInterval(interval string) Interval {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case string(IntervalYear), "yearly", "annual":
		return IntervalYear
	default:
		return IntervalMonth
	}
}

func planRank(plan PlanID) int {
	switch plan {
	case PlanBusinessPro:
		return 2
	case PlanBusiness:
		return 1
	default:
		return 0
	}
}

// PlanLabel returns the human-readable tier name used on the pricing page.
func PlanLabel(plan PlanID) string {
	switch plan {
	case PlanBusinessPro:
		return "Business Pro"
	case PlanBusiness:
		return "Business"
	default:
		return "Starter"
	}
}

func priceEnvKey(plan PlanID, interval Interval) string {
	switch {
	case plan == PlanBusiness && interval == IntervalMonth:
		return "STRIPE_PRICE_BUSINESS_MONTHLY"
	case plan == PlanBusiness && interval == IntervalYear:
		return "STRIPE_PRICE_BUSINESS_YEARLY"
	case plan == PlanBusinessPro && interval == IntervalMonth:
		return "STRIPE_PRICE_BUSINESS_PRO_MONTHLY"
	case plan == PlanBusinessPro && interval == IntervalYear:
		return "STRIPE_PRICE_BUSINESS_PRO_YEARLY"
	default:
		return ""
	}
}

// PriceIDFor maps a tier and billing interval to the configured provider price ID.
// The starter tier is free and never maps to a price.
func PriceIDFor(plan PlanID, interval Interval) (string, error) {
	if plan == PlanStarter {
		return "", ErrPlanFree
	}
	key := priceEnvKey(plan, interval)
	if key == "" {
		return "", ErrPriceNotConfigured
	}
	priceID := strings.TrimSpace(env.GetEnv(key, ""))
	if priceID == "" {
		return "", ErrPriceNotConfigured
	}
	return priceID, nil
}

// PlanFromPriceID resolves a provider price ID back to an internal tier.
// A nil or empty price means no subscription, hence starter. An unknown
// non-empty price maps to the lowest paid tier so a paying customer is
// never downgraded to free by a configuration gap.
func PlanFromPriceID(priceID *string) PlanID {
	plan, _ := PlanIntervalFromPriceID(priceID)
	return plan
}

// PlanIntervalFromPriceID resolves a provider price ID to tier and interval.
// Same fallback rules as PlanFromPriceID; an unknown price reads as monthly.
func PlanIntervalFromPriceID(priceID *string) (PlanID, Interval) {
	if priceID == nil || strings.TrimSpace(*priceID) == "" {
		return PlanStarter, IntervalMonth
	}
	p := strings.TrimSpace(*priceID)
	for _, plan := range []PlanID{PlanBusiness, PlanBusinessPro} {
		for _, interval := range []Interval{IntervalMonth, IntervalYear} {
			if configured := strings.TrimSpace(env.GetEnv(priceEnvKey(plan, interval), "")); configured != "" && configured == p {
				return plan, interval
			}
		}
	}
	return PlanBusiness, IntervalMonth
}

func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}

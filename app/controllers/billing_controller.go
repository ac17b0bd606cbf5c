package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/app/repository"
	"github.com/bizguard/bizguard/internal/pkg/billing"
	"github.com/bizguard/bizguard/internal/pkg/database"
	"github.com/bizguard/bizguard/internal/pkg/env"
	"github.com/bizguard/bizguard/internal/pkg/usercontext"
)

func billingService() *billing.Service {
	return billing.NewServiceFromDB(database.GetDB(), billing.NewStripeGateway())
}

func publicBaseURL(c *fiber.Ctx) string {
	if base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/"); base != "" {
		return base
	}
	return c.Protocol() + "://" + c.Hostname()
}

type checkoutRequest struct {
	Email           string `json:"email"`
	Plan            string `json:"plan"`
	PlanID          string `json:"planId"`
	Interval        string `json:"interval"`
	BillingInterval string `json:"billingInterval"`
}

// HandleBillingCheckout opens a subscription checkout for the requested tier.
func HandleBillingCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Missing plan or interval.")
	}

	planRaw := firstNonEmpty(strings.TrimSpace(req.Plan), strings.TrimSpace(req.PlanID))
	intervalRaw := firstNonEmpty(strings.TrimSpace(req.Interval), strings.TrimSpace(req.BillingInterval))
	if planRaw == "" || intervalRaw == "" {
		return jsonError(c, fiber.StatusBadRequest, "Missing plan or interval.")
	}

	plan := billing.NormalizePlan(planRaw)
	interval := billing.NormalizeInterval(intervalRaw)

	// The session identity wins over the body email.
	var user *models.User
	var err error
	if userCtx := usercontext.GetUserContext(c); userCtx.IsLoggedIn {
		user, err = repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	} else if email := strings.TrimSpace(req.Email); email != "" {
		user, err = ensureUserByEmail(email)
	} else {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login or email required"})
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to resolve account.")
	}

	base := publicBaseURL(c)
	ctx, cancel := context.WithTimeout(c.Context(), 20*time.Second)
	defer cancel()

	url, err := billingService().StartCheckout(ctx, user.ID, plan, interval,
		base+"/dashboard?checkout=success", base+"/pricing?checkout=cancel")
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrPlanFree):
			return jsonError(c, fiber.StatusBadRequest, "Starter plan is free and does not require Stripe checkout. Just sign in.")
		case errors.Is(err, billing.ErrPriceNotConfigured):
			return jsonError(c, fiber.StatusInternalServerError, "Stripe price ID is not configured for this plan/interval. Check your environment variables.")
		default:
			return jsonError(c, fiber.StatusInternalServerError, fmt.Sprintf("Failed to create checkout session: %v", err))
		}
	}
	return c.JSON(fiber.Map{"url": url})
}

type portalRequest struct {
	CustomerID string `json:"customerId"`
	ReturnURL  string `json:"returnUrl"`
}

// HandleBillingPortal opens the provider's self-service portal.
func HandleBillingPortal(c *fiber.Ctx) error {
	var req portalRequest
	_ = c.BodyParser(&req)

	returnURL := strings.TrimSpace(req.ReturnURL)
	if returnURL == "" {
		returnURL = publicBaseURL(c) + "/billing"
	}

	ctx, cancel := context.WithTimeout(c.Context(), 20*time.Second)
	defer cancel()

	// An explicit customer id wins; otherwise fall back to the session user.
	if customerID := strings.TrimSpace(req.CustomerID); customerID != "" {
		url, err := billing.NewStripeGateway().CreatePortalSession(ctx, customerID, returnURL)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "Portal failed")
		}
		return c.JSON(fiber.Map{"url": url})
	}

	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusBadRequest, "Missing customerId")
	}
	url, err := billingService().OpenPortal(ctx, userCtx.UserID, returnURL)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Portal failed")
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleAPIBillingPlan reports the session user's current tier, interval and
// subscription status. Anonymous callers read as starter.
func HandleAPIBillingPlan(c *fiber.Ctx) error {
	planID := billing.PlanStarter
	interval := billing.IntervalMonth
	status := "none"

	if userCtx := usercontext.GetUserContext(c); userCtx.IsLoggedIn {
		user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
		if err == nil {
			planID, interval = billing.PlanIntervalFromPriceID(user.StripePriceID)
			if user.HasActiveSubscription() {
				status = "active"
			}
		}
	}

	return c.JSON(fiber.Map{
		"planId":          string(planID),
		"billingInterval": string(interval),
		"status":          status,
	})
}

// HandleStripeWebhook receives provider events. Everything after signature
// verification acknowledges with 200 so the provider stops retrying; failures
// are logged and stored on the event record instead.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	sigHeader := strings.TrimSpace(c.Get("Stripe-Signature"))

	var event stripe.Event
	var err error
	if env.IsDemoMode() {
		event, err = billing.ParseWebhookEventUnverified(rawBody)
	} else {
		if sigHeader == "" {
			return c.Status(fiber.StatusBadRequest).SendString("Missing stripe-signature")
		}
		event, err = billing.ConstructWebhookEvent(rawBody, sigHeader)
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Webhook Error: %v", err))
	}

	svc := billingService()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        billing.ProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
		SignatureValid:  !env.IsDemoMode(),
	})
	if err != nil {
		log.Printf("[Billing] failed to persist webhook event %s: %v", event.ID, err)
		return c.JSON(fiber.Map{"received": true})
	}
	if !created {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	handleErr := svc.HandleEvent(ctx, event)
	if handleErr != nil {
		log.Printf("[Billing] failed to process webhook event %s (%s): %v", event.ID, event.Type, handleErr)
	}
	if err := svc.MarkWebhookProcessed(ctx, stored.ID, handleErr); err != nil {
		log.Printf("[Billing] failed to mark webhook event %s processed: %v", event.ID, err)
	}

	return c.JSON(fiber.Map{"received": true})
}

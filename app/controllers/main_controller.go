package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/internal/pkg/billing"
	"github.com/bizguard/bizguard/internal/pkg/database"
	"github.com/bizguard/bizguard/internal/pkg/session"
	"github.com/bizguard/bizguard/internal/pkg/usercontext"
)

func HandleHome(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	return c.Render("home", fiber.Map{
		"Title":      "BizGuard",
		"IsLoggedIn": userCtx.IsLoggedIn,
		"Username":   userCtx.Username,
	})
}

func HandlePricing(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	return c.Render("pricing", fiber.Map{
		"Title":      "Pricing",
		"IsLoggedIn": userCtx.IsLoggedIn,
		"Plan":       userCtx.Plan,
		"Checkout":   c.Query("checkout"),
	})
}

// currentPlanForRender resolves the plan shown on a page. The session caches
// the plan, which goes stale the moment a webhook upgrades the account; a
// checkout=success landing re-reads the stored price and refreshes the cache.
func currentPlanForRender(c *fiber.Ctx, userCtx usercontext.UserContext) string {
	if c.Query("checkout") != "success" || !userCtx.IsLoggedIn {
		return userCtx.Plan
	}
	var user models.User
	if err := database.GetDB().First(&user, userCtx.UserID).Error; err != nil {
		return userCtx.Plan
	}
	plan := string(billing.PlanFromPriceID(user.StripePriceID))
	_ = session.SetSessionValue(c, "user_plan", plan)
	return plan
}

func HandleDashboard(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	plan := currentPlanForRender(c, userCtx)
	return c.Render("dashboard", fiber.Map{
		"Title":     "Dashboard",
		"Username":  userCtx.Username,
		"Email":     userCtx.Email,
		"Plan":      plan,
		"PlanLabel": billing.PlanLabel(billing.NormalizePlan(plan)),
		"Checkout":  c.Query("checkout"),
	})
}

func HandleBillingPage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	return c.Render("billing", fiber.Map{
		"Title":     "Billing",
		"Email":     userCtx.Email,
		"Plan":      userCtx.Plan,
		"PlanLabel": billing.PlanLabel(billing.NormalizePlan(userCtx.Plan)),
	})
}

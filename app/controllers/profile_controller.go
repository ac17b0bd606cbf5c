package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/app/repository"
	"github.com/bizguard/bizguard/internal/pkg/billing"
	"github.com/bizguard/bizguard/internal/pkg/metrics/counter"
	"github.com/bizguard/bizguard/internal/pkg/usercontext"
	"github.com/bizguard/bizguard/internal/pkg/utils"
)

type profileEnsureRequest struct {
	Email string `json:"email"`
}

type profileUpdateRequest struct {
	Email           string `json:"email"`
	CompanyName     string `json:"companyName" validate:"max=200"`
	Industry        string `json:"industry" validate:"max=100"`
	Language        string `json:"language" validate:"max=50"`
	ComplianceFocus string `json:"complianceFocus" validate:"max=200"`
}

func profileResponse(user *models.User) fiber.Map {
	plan := billing.PlanFromPriceID(user.StripePriceID)
	return fiber.Map{
		"id":                 user.ID,
		"email":              user.Email,
		"name":               user.Name,
		"company_name":       user.CompanyName,
		"industry":           user.Industry,
		"language":           user.Language,
		"compliance_focus":   user.ComplianceFocus,
		"plan":               string(plan),
		"subscription_active": user.HasActiveSubscription(),
		"ai_request_count":   user.AIRequestCount,
		"avatar_url":         utils.GetGravatarURL(user.Email, 200),
		"created_at":         user.CreatedAt.UTC(),
		"last_login_at":      formatTimePtr(user.LastLoginAt),
	}
}

// HandleAPIProfileEnsure upserts an account row by email. Tolerates a missing
// or empty body so a client can call it unconditionally after sign-in.
func HandleAPIProfileEnsure(c *fiber.Ctx) error {
	var req profileEnsureRequest
	_ = c.BodyParser(&req) // absent body is fine

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = usercontext.GetEmail(c)
	}
	if email == "" {
		return c.JSON(fiber.Map{"ok": true, "profile": nil})
	}

	user, err := ensureUserByEmail(email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Internal server error"})
	}
	return c.JSON(fiber.Map{"ok": true, "profile": profileResponse(user)})
}

// HandleAPIProfileGet returns the profile for the session user.
func HandleAPIProfileGet(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "Not authenticated."})
	}

	// Drain pending usage counters so the profile shows a fresh total.
	if err := counter.FlushAll(); err != nil {
		log.Printf("[Profile] flushing usage counters failed: %v", err)
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Failed to load user"})
	}
	return c.JSON(fiber.Map{"ok": true, "profile": profileResponse(user)})
}

// HandleAPIProfileUpdate writes the business-profile fields. The session user
// wins; an explicit email only works when no session is present.
func HandleAPIProfileUpdate(c *fiber.Ctx) error {
	var req profileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid profile fields.")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()

	var user *models.User
	var err error
	if userCtx := usercontext.GetUserContext(c); userCtx.IsLoggedIn {
		user, err = repo.GetByID(userCtx.UserID)
	} else if email := strings.TrimSpace(req.Email); email != "" {
		user, err = repo.EnsureByEmail(email)
	} else {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "Not authenticated."})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Failed to load user"})
	}

	if err := repo.UpdateProfile(user.ID, strings.TrimSpace(req.CompanyName), strings.TrimSpace(req.Industry),
		strings.TrimSpace(req.Language), strings.TrimSpace(req.ComplianceFocus)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Failed to save profile"})
	}

	user, err = repo.GetByID(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Failed to load user"})
	}
	return c.JSON(fiber.Map{"ok": true, "profile": profileResponse(user)})
}

package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/bizguard/bizguard/internal/pkg/database"
)

// HandleOAuthLogin starts the provider flow
func HandleOAuthLogin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and logs the user in
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("OAuth failed: %v", err))
	}
	if u.Email == "" {
		return c.Status(fiber.StatusBadRequest).SendString("OAuth provider did not supply an email")
	}

	user, err := ensureUserByEmail(u.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("create user failed: %v", err))
	}

	// Backfill the display name on first OAuth sign-in.
	if user.Name == "" {
		name := firstNonEmpty(u.Name, u.NickName, u.Email)
		if err := database.GetDB().Model(user).Update("name", name).Error; err == nil {
			user.Name = name
		}
	}

	if err := logUserIn(c, user); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session save failed")
	}

	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

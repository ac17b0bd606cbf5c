package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/app/repository"
	"github.com/bizguard/bizguard/internal/pkg/database"
	"github.com/bizguard/bizguard/internal/pkg/session"
	"github.com/bizguard/bizguard/internal/pkg/usercontext"
)

func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
		password := c.FormValue("password")

		// notice: in production you should not inform the user
		// with detailed messages about login failures
		var user models.User
		result := database.GetDB().Where("email = ?", email).First(&user)
		if result.Error != nil {
			return c.Redirect("/login?error=login_failed", fiber.StatusSeeOther)
		}
		if !models.CheckPasswordHash(password, user.Password) {
			return c.Redirect("/login?error=login_failed", fiber.StatusSeeOther)
		}
		if !user.IsActive() {
			return c.Redirect("/login?error=account_disabled", fiber.StatusSeeOther)
		}

		if err := logUserIn(c, &user); err != nil {
			return c.Redirect("/login?error=session_failed", fiber.StatusSeeOther)
		}
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}

	if usercontext.IsLoggedIn(c) {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return c.Render("login", fiber.Map{
		"Title": "Log in",
		"Error": c.Query("error"),
	})
}

func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		user, err := models.CreateUser(c.FormValue("name"), c.FormValue("email"), c.FormValue("password"))
		if err != nil {
			return c.Redirect("/register?error=invalid_input", fiber.StatusSeeOther)
		}

		if err := database.GetDB().Create(user).Error; err != nil {
			return c.Redirect("/register?error=email_taken", fiber.StatusSeeOther)
		}

		if err := logUserIn(c, user); err != nil {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}

	if usercontext.IsLoggedIn(c) {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return c.Render("register", fiber.Map{
		"Title": "Create account",
		"Error": c.Query("error"),
	})
}

func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	c.Locals(usercontext.KeyFromProtected, false)
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// ensureUserByEmail is the shared upsert used by OAuth callback, profile
// ensure and anonymous checkout.
func ensureUserByEmail(email string) (*models.User, error) {
	return repository.GetGlobalFactory().GetUserRepository().EnsureByEmail(email)
}

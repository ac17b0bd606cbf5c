package controllers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/internal/pkg/database"
	"github.com/bizguard/bizguard/internal/pkg/session"
)

var validate = validator.New()

const (
	AUTH_KEY      string = "authenticated"
	USER_ID       string = "user_id"
	USER_NAME     string = "username"
	USER_EMAIL    string = "user_email"
	USER_IS_ADMIN string = "isAdmin"
)

// logUserIn writes the authenticated user into the session store and stamps
// the login time.
func logUserIn(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_EMAIL, user.Email)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		return err
	}

	database.GetDB().Model(user).UpdateColumn("last_login_at", time.Now())
	return nil
}

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

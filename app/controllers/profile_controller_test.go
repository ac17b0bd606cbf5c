package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/bizguard/bizguard/app/models"
)

func newProfileTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/profile/ensure", HandleAPIProfileEnsure)
	app.Get("/api/profile", HandleAPIProfileGet)
	app.Put("/api/profile", HandleAPIProfileUpdate)
	return app
}

func TestHandleAPIProfileEnsure_CreatesAccount(t *testing.T) {
	db := setupControllerTest(t)
	app := newProfileTestApp()

	resp := postJSON(t, app, "/api/profile/ensure", map[string]string{"email": "New@Example.com"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decodeJSON(t, resp)
	assert.Equal(t, true, out["ok"])
	profile, ok := out["profile"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "new@example.com", profile["email"])
	assert.Equal(t, "starter", profile["plan"])

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestHandleAPIProfileEnsure_Idempotent(t *testing.T) {
	db := setupControllerTest(t)
	app := newProfileTestApp()

	for i := 0; i < 2; i++ {
		resp := postJSON(t, app, "/api/profile/ensure", map[string]string{"email": "owner@example.com"})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestHandleAPIProfileEnsure_ToleratesEmptyBody(t *testing.T) {
	setupControllerTest(t)
	app := newProfileTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/profile/ensure", nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decodeJSON(t, resp)
	assert.Equal(t, true, out["ok"])
	assert.Nil(t, out["profile"])
}

func TestHandleAPIProfileGet_Unauthenticated(t *testing.T) {
	setupControllerTest(t)
	app := newProfileTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/profile", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandleAPIProfileUpdate_ByEmailWithoutSession(t *testing.T) {
	db := setupControllerTest(t)
	app := newProfileTestApp()

	payload := map[string]string{
		"email":           "owner@example.com",
		"companyName":     "Pho Corner LLC",
		"industry":        "restaurant",
		"language":        "Vietnamese",
		"complianceFocus": "food safety",
	}
	resp := putJSON(t, app, "/api/profile", payload)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decodeJSON(t, resp)
	assert.Equal(t, true, out["ok"])

	var stored models.User
	assert.NoError(t, db.Where("email = ?", "owner@example.com").First(&stored).Error)
	assert.Equal(t, "Pho Corner LLC", stored.CompanyName)
	assert.Equal(t, "restaurant", stored.Industry)
	assert.Equal(t, "Vietnamese", stored.Language)
	assert.Equal(t, "food safety", stored.ComplianceFocus)
}

func TestHandleAPIProfileUpdate_NoIdentity(t *testing.T) {
	setupControllerTest(t)
	app := newProfileTestApp()

	resp := putJSON(t, app, "/api/profile", map[string]string{"companyName": "Nobody Inc"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

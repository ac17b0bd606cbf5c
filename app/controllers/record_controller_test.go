package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/internal/pkg/usercontext"
)

// newRecordTestApp mounts the record routes behind a middleware that fakes a
// logged-in session for the given user id (0 keeps the request anonymous).
func newRecordTestApp(userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
				UserID:     userID,
				IsLoggedIn: true,
			})
		}
		return c.Next()
	})
	app.Get("/api/records", HandleAPIRecordsList)
	app.Post("/api/records", HandleAPIRecordsCreate)
	app.Put("/api/records/:id", HandleAPIRecordsUpdate)
	app.Delete("/api/records/:id", HandleAPIRecordsDelete)
	return app
}

func createRecordTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Owner", Email: email, Status: models.STATUS_ACTIVE, Role: models.ROLE_USER}
	assert.NoError(t, db.Create(user).Error)
	return user
}

func TestHandleAPIRecords_Unauthenticated(t *testing.T) {
	setupControllerTest(t)
	app := newRecordTestApp(0)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/records", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, app, "/api/records", map[string]string{"title": "Lease renewal"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandleAPIRecordsCreate_AndList(t *testing.T) {
	db := setupControllerTest(t)
	user := createRecordTestUser(t, db, "owner@example.com")
	app := newRecordTestApp(user.ID)

	resp := postJSON(t, app, "/api/records", map[string]string{
		"title": "Lease renewal",
		"notes": "Landlord wants an answer by Friday.",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	out := decodeJSON(t, resp)
	record, ok := out["record"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "Lease renewal", record["title"])

	listResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/records", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, listResp.StatusCode)
	listOut := decodeJSON(t, listResp)
	records, ok := listOut["records"].([]any)
	assert.True(t, ok)
	assert.Len(t, records, 1)
}

func TestHandleAPIRecordsCreate_MissingTitle(t *testing.T) {
	db := setupControllerTest(t)
	user := createRecordTestUser(t, db, "owner@example.com")
	app := newRecordTestApp(user.ID)

	resp := postJSON(t, app, "/api/records", map[string]string{"notes": "no title"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	out := decodeJSON(t, resp)
	assert.Equal(t, "Missing title.", out["error"])

	var count int64
	db.Model(&models.Record{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestHandleAPIRecordsUpdate(t *testing.T) {
	db := setupControllerTest(t)
	user := createRecordTestUser(t, db, "owner@example.com")
	app := newRecordTestApp(user.ID)

	record := &models.Record{UserID: user.ID, Title: "Draft", Notes: "first pass"}
	assert.NoError(t, db.Create(record).Error)

	resp := putJSON(t, app, fmt.Sprintf("/api/records/%d", record.ID), map[string]string{
		"title": "Final",
		"notes": "signed copy filed",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.Record
	assert.NoError(t, db.First(&stored, record.ID).Error)
	assert.Equal(t, "Final", stored.Title)
	assert.Equal(t, "signed copy filed", stored.Notes)
}

func TestHandleAPIRecordsDelete(t *testing.T) {
	db := setupControllerTest(t)
	user := createRecordTestUser(t, db, "owner@example.com")
	app := newRecordTestApp(user.ID)

	record := &models.Record{UserID: user.ID, Title: "Old note"}
	assert.NoError(t, db.Create(record).Error)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/records/%d", record.ID), nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	db.Model(&models.Record{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestHandleAPIRecords_ForeignRecordReadsAsNotFound(t *testing.T) {
	db := setupControllerTest(t)
	owner := createRecordTestUser(t, db, "owner@example.com")
	other := createRecordTestUser(t, db, "other@example.com")

	record := &models.Record{UserID: owner.ID, Title: "Private"}
	assert.NoError(t, db.Create(record).Error)

	app := newRecordTestApp(other.ID)

	resp := putJSON(t, app, fmt.Sprintf("/api/records/%d", record.ID), map[string]string{"title": "Hijacked"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/records/%d", record.ID), nil)
	delResp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, delResp.StatusCode)

	var stored models.Record
	assert.NoError(t, db.First(&stored, record.ID).Error)
	assert.Equal(t, "Private", stored.Title)
}

package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/bizguard/bizguard/app/models"
	"github.com/bizguard/bizguard/app/repository"
	"github.com/bizguard/bizguard/internal/pkg/usercontext"
)

type recordRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Notes string `json:"notes"`
}

// loadOwnRecord fetches a record and checks it belongs to the session user.
// Foreign records read as not-found so ids of other accounts cannot be enumerated.
func loadOwnRecord(c *fiber.Ctx, userID uint) (*models.Record, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, jsonError(c, fiber.StatusBadRequest, "Invalid record id.")
	}
	record, err := repository.GetGlobalFactory().GetRecordRepository().GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "Record not found.")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "Failed to load record.")
	}
	if record.UserID != userID {
		return nil, jsonError(c, fiber.StatusNotFound, "Record not found.")
	}
	return record, nil
}

// HandleAPIRecordsList returns the session user's records, newest first.
func HandleAPIRecordsList(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "Not authenticated.")
	}

	records, err := repository.GetGlobalFactory().GetRecordRepository().ListByUser(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load records.")
	}
	return c.JSON(fiber.Map{"records": records})
}

// HandleAPIRecordsCreate stores a new record for the session user.
func HandleAPIRecordsCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "Not authenticated.")
	}

	var req recordRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Missing title.")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return jsonError(c, fiber.StatusBadRequest, "Missing title.")
	}
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid record fields.")
	}

	record := &models.Record{
		UserID: userCtx.UserID,
		Title:  req.Title,
		Notes:  strings.TrimSpace(req.Notes),
	}
	if err := repository.GetGlobalFactory().GetRecordRepository().Create(record); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to save record.")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"record": record})
}

// HandleAPIRecordsUpdate edits a record's title and notes.
func HandleAPIRecordsUpdate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "Not authenticated.")
	}

	record, err := loadOwnRecord(c, userCtx.UserID)
	if record == nil {
		return err
	}

	var req recordRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Missing title.")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return jsonError(c, fiber.StatusBadRequest, "Missing title.")
	}
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid record fields.")
	}

	repo := repository.GetGlobalFactory().GetRecordRepository()
	if err := repo.Update(record.ID, req.Title, strings.TrimSpace(req.Notes)); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to save record.")
	}
	updated, err := repo.GetByID(record.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load record.")
	}
	return c.JSON(fiber.Map{"record": updated})
}

// HandleAPIRecordsDelete removes one of the session user's records.
func HandleAPIRecordsDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "Not authenticated.")
	}

	record, err := loadOwnRecord(c, userCtx.UserID)
	if record == nil {
		return err
	}

	if err := repository.GetGlobalFactory().GetRecordRepository().Delete(record.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to delete record.")
	}
	return c.JSON(fiber.Map{"ok": true})
}

package repository

import (
	"github.com/bizguard/bizguard/app/models"
	"gorm.io/gorm"
)

// recordRepository implements the RecordRepository interface
type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a new record repository instance
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

// Create creates a new record in the database
func (r *recordRepository) Create(record *models.Record) error {
	return r.db.Create(record).Error
}

// GetByID retrieves a record by its ID
func (r *recordRepository) GetByID(id uint) (*models.Record, error) {
	var record models.Record
	if err := r.db.First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByUser returns a user's records, newest first.
func (r *recordRepository) ListByUser(userID uint) ([]models.Record, error) {
	var records []models.Record
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&records).Error
	return records, err
}

// Update writes the editable record fields.
func (r *recordRepository) Update(id uint, title, notes string) error {
	return r.db.Model(&models.Record{}).Where("id = ?", id).Updates(map[string]interface{}{
		"title": title,
		"notes": notes,
	}).Error
}

// Delete soft deletes a record by its ID
func (r *recordRepository) Delete(id uint) error {
	return r.db.Delete(&models.Record{}, id).Error
}

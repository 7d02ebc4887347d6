package repositories

import (
	"errors"
	"fmt"

	"cafewifi/internal/models"

	"gorm.io/gorm"
)

// GORMCafeRepository is a GORM implementation of CafeRepository.
type GORMCafeRepository struct {
	db *gorm.DB
}

// NewGORMCafeRepository creates a new instance of GORMCafeRepository.
func NewGORMCafeRepository(db *gorm.DB) *GORMCafeRepository {
	return &GORMCafeRepository{
		db: db,
	}
}

// GetAll retrieves all cafes in insertion order.
func (r *GORMCafeRepository) GetAll() ([]models.Cafe, error) {
	var cafes []models.Cafe
	if err := r.db.Order("id").Find(&cafes).Error; err != nil {
		return nil, fmt.Errorf("failed to get all cafes: %w", err)
	}
	return cafes, nil
}

// GetByID retrieves a single cafe by its ID.
func (r *GORMCafeRepository) GetByID(id uint) (*models.Cafe, error) {
	var cafe models.Cafe
	if err := r.db.First(&cafe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cafe with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cafe by ID %d: %w", id, err)
	}
	return &cafe, nil
}

// Create inserts a new cafe. A name that is already taken yields ErrDuplicate.
func (r *GORMCafeRepository) Create(cafe *models.Cafe) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Cafe{}).Where("name = ?", cafe.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		return tx.Create(cafe).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("cafe %q: %w", cafe.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create cafe: %w", err)
	}
	return nil
}

// Delete removes a cafe by its ID.
func (r *GORMCafeRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Cafe{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete cafe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cafe with ID %d: %w", id, ErrNotFound)
	}
	return nil
}

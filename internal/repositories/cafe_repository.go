package repositories

import "cafewifi/internal/models"

// CafeRepository defines the interface for cafe data access.
type CafeRepository interface {
	GetAll() ([]models.Cafe, error)
	GetByID(id uint) (*models.Cafe, error)
	Create(cafe *models.Cafe) error
	Delete(id uint) error
}

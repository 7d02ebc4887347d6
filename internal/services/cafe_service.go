package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"cafewifi/internal/models"
	"cafewifi/internal/repositories"
	"cafewifi/pkg/rabbitmq"
)

// EventPublisher is implemented by *rabbitmq.Client.
type EventPublisher interface {
	PublishCafeEvent(event rabbitmq.CafeEvent) error
}

// CafeService handles business logic related to cafes.
type CafeService struct {
	repo      repositories.CafeRepository
	publisher EventPublisher
}

// NewCafeService creates a new CafeService. publisher may be nil.
func NewCafeService(repo repositories.CafeRepository, publisher EventPublisher) *CafeService {
	return &CafeService{
		repo:      repo,
		publisher: publisher,
	}
}

// ListCafes returns every cafe in insertion order.
func (s *CafeService) ListCafes() ([]models.Cafe, error) {
	return s.repo.GetAll()
}

// GetCafe returns a single cafe. ErrCafeNotFound is returned when it does not exist.
func (s *CafeService) GetCafe(id uint) (*models.Cafe, error) {
	cafe, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrCafeNotFound, id)
		}
		return nil, err
	}
	return cafe, nil
}

// AddCafe stores a new cafe and announces it.
func (s *CafeService) AddCafe(cafe *models.Cafe) error {
	if err := s.repo.Create(cafe); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, cafe.Name)
		}
		return err
	}
	s.publish(rabbitmq.CafeEvent{Type: rabbitmq.EventCafeCreated, CafeID: cafe.ID, Name: cafe.Name})
	return nil
}

// DeleteCafe removes a cafe by ID. ErrCafeNotFound is returned when it does not exist.
func (s *CafeService) DeleteCafe(id uint) error {
	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: id %d", ErrCafeNotFound, id)
		}
		return err
	}
	s.publish(rabbitmq.CafeEvent{Type: rabbitmq.EventCafeDeleted, CafeID: id})
	return nil
}

func (s *CafeService) publish(event rabbitmq.CafeEvent) {
	if s.publisher == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	if err := s.publisher.PublishCafeEvent(event); err != nil {
		log.Printf("Warning: failed to publish %s event for cafe %d: %v", event.Type, event.CafeID, err)
	}
}

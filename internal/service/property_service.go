package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"maintenance-service/internal/events"
	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
)

type PropertyService struct {
	propertyRepo *repository.PropertyRepository
	rentals      RentalsAPI
	broadcaster  *events.Broadcaster
}

func NewPropertyService(
	propertyRepo *repository.PropertyRepository,
	rentals RentalsAPI,
	broadcaster *events.Broadcaster,
) *PropertyService {
	return &PropertyService{
		propertyRepo: propertyRepo,
		rentals:      rentals,
		broadcaster:  broadcaster,
	}
}

func (s *PropertyService) List(ctx context.Context, principal model.Principal) ([]model.Property, error) {
	return s.propertyRepo.List(ctx)
}

func (s *PropertyService) Get(ctx context.Context, principal model.Principal, id string) (*model.Property, error) {
	property, err := s.propertyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return property, nil
}

// Sync pulls the property index from the rentals API and upserts it locally,
// keyed on the external listing id. Returns the number of listings seen.
func (s *PropertyService) Sync(ctx context.Context, principal model.Principal) (int, error) {
	if !principal.IsAdmin() {
		return 0, ErrPermissionDenied
	}

	listings, err := s.rentals.ListProperties(ctx)
	if err != nil {
		return 0, err
	}

	for _, listing := range listings {
		property := &model.Property{
			ExternalID: listing.ID,
			Name:       listing.Name,
			Address:    listing.Address.Display,
		}
		if err := s.propertyRepo.Upsert(ctx, property); err != nil {
			return 0, err
		}
	}

	s.broadcaster.PropertiesSynced(len(listings))
	return len(listings), nil
}

type CreatePropertyInput struct {
	ExternalID string
	Name       string
	Address    string
}

func (s *PropertyService) Create(ctx context.Context, principal model.Principal, input CreatePropertyInput) (*model.Property, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if input.ExternalID == "" || input.Name == "" {
		return nil, ErrInvalidInput
	}

	property := &model.Property{
		ExternalID: input.ExternalID,
		Name:       input.Name,
		Address:    input.Address,
	}
	if err := s.propertyRepo.Create(ctx, property); err != nil {
		return nil, err
	}
	return property, nil
}

type UpdatePropertyInput struct {
	Name    string
	Address string
}

// Update edits the mutable fields only; identity stays fixed. Denormalized
// copies on existing tasks are deliberately left stale.
func (s *PropertyService) Update(ctx context.Context, principal model.Principal, id string, input UpdatePropertyInput) (*model.Property, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	property, err := s.propertyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if input.Name != "" {
		property.Name = input.Name
	}
	if input.Address != "" {
		property.Address = input.Address
	}
	if err := s.propertyRepo.Update(ctx, property); err != nil {
		return nil, err
	}
	return property, nil
}

package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maintenance-service/internal/model"
)

type PropertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) Create(ctx context.Context, property *model.Property) error {
	return r.db.WithContext(ctx).Create(property).Error
}

func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*model.Property, error) {
	var property model.Property
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&property).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &property, nil
}

func (r *PropertyRepository) List(ctx context.Context) ([]model.Property, error) {
	var properties []model.Property
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&properties).Error; err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *PropertyRepository) Update(ctx context.Context, property *model.Property) error {
	return r.db.WithContext(ctx).Save(property).Error
}

// Upsert inserts the property or refreshes name/address if its external id
// is already known. Identity (id, external_id) is never rewritten.
func (r *PropertyRepository) Upsert(ctx context.Context, property *model.Property) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "address"}),
	}).Create(property).Error
}

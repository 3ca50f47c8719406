package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

type ProblemRepository struct {
	db *gorm.DB
}

func NewProblemRepository(db *gorm.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

func (r *ProblemRepository) Create(ctx context.Context, problem *model.Problem) error {
	return r.db.WithContext(ctx).Create(problem).Error
}

func (r *ProblemRepository) GetByID(ctx context.Context, id string) (*model.Problem, error) {
	var problem model.Problem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&problem).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &problem, nil
}

type ProblemListFilter struct {
	Status     *model.ProblemStatus
	PropertyID *string
	ReportedBy *string
}

func (r *ProblemRepository) List(ctx context.Context, filter ProblemListFilter) ([]model.Problem, error) {
	var problems []model.Problem
	query := r.db.WithContext(ctx).Model(&model.Problem{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.ReportedBy != nil {
		query = query.Where("reported_by = ?", *filter.ReportedBy)
	}

	if err := query.Order("created_at DESC").Find(&problems).Error; err != nil {
		return nil, err
	}

	return problems, nil
}

func (r *ProblemRepository) Update(ctx context.Context, problem *model.Problem) error {
	return r.db.WithContext(ctx).Save(problem).Error
}

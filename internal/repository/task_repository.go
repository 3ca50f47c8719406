package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

// ErrVersionConflict means an optimistic write lost the race: the task
// changed between read and write. Callers retry with fresh state.
var ErrVersionConflict = errors.New("task version conflict")

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &task, nil
}

type TaskListFilter struct {
	Status      *model.TaskStatus
	PropertyID  *string
	HandymanID  *string
	CreatedByID *string
	Priority    *model.TaskPriority
}

func (r *TaskRepository) List(ctx context.Context, filter TaskListFilter) ([]model.Task, error) {
	var tasks []model.Task
	query := r.db.WithContext(ctx).Model(&model.Task{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.HandymanID != nil {
		query = query.Where("handyman_id = ?", *filter.HandymanID)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}

	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// UpdateOptimistic writes the task's mutable fields guarded by its version.
// The write succeeds only if no one else changed the task since it was read;
// otherwise ErrVersionConflict. On success the in-memory version is bumped
// to match the stored row.
func (r *TaskRepository) UpdateOptimistic(ctx context.Context, task *model.Task) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND version = ?", task.ID, task.Version).
		Updates(map[string]interface{}{
			"status":              task.Status,
			"handyman_id":         task.HandymanID,
			"scheduled_timeslots": task.ScheduledTimeslots,
			"image_urls":          task.ImageURLs,
			"version":             task.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	task.Version++
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// NextTicketNumber allocates the next sequential ticket number with a single
// atomic upsert-increment. Concurrent creators always get distinct values.
func (r *TaskRepository) NextTicketNumber(ctx context.Context) (string, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		 RETURNING value`,
		model.TaskCounterName,
	).Scan(&value).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TASK-%04d", value), nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(&model.Property{}, &model.User{}, &model.Task{}, &model.Counter{})
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	return db
}

func newTask(t *testing.T, repo *TaskRepository, propertyID uuid.UUID) *model.Task {
	t.Helper()

	ticket, err := repo.NextTicketNumber(context.Background())
	if err != nil {
		t.Fatalf("failed to allocate ticket: %v", err)
	}
	task := &model.Task{
		TicketNumber:       ticket,
		PropertyID:         propertyID,
		PropertyName:       "Seaside Cottage",
		Address:            "1 Shore Rd",
		Description:        "Fix the leaking sink",
		Priority:           model.TaskPriorityMedium,
		Status:             model.TaskStatusNew,
		CreatedByID:        uuid.New(),
		ScheduledTimeslots: model.Timeslots{},
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

func TestNextTicketNumberSequential(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ticket, err := repo.NextTicketNumber(ctx)
		if err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
		want := fmt.Sprintf("TASK-%04d", i)
		if ticket != want {
			t.Errorf("allocation %d: got %s, want %s", i, ticket, want)
		}
	}
}

func TestNextTicketNumberConcurrent(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))

	const n = 20
	tickets := make([]string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := repo.NextTicketNumber(context.Background())
			if err != nil {
				t.Errorf("allocation failed: %v", err)
				return
			}
			tickets[i] = ticket
		}(i)
	}
	wg.Wait()

	sort.Strings(tickets)
	for i := 0; i < n; i++ {
		want := fmt.Sprintf("TASK-%04d", i+1)
		if tickets[i] != want {
			t.Fatalf("expected distinct sequential tickets, got %v", tickets)
		}
	}
}

func TestUpdateOptimisticConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	property := &model.Property{ExternalID: "ext-1", Name: "Seaside Cottage", Address: "1 Shore Rd"}
	if err := db.Create(property).Error; err != nil {
		t.Fatalf("failed to create property: %v", err)
	}

	task := newTask(t, repo, property.ID)

	// Two readers load the same version.
	first, err := repo.GetByID(ctx, task.ID.String())
	if err != nil {
		t.Fatalf("failed to load task: %v", err)
	}
	second, err := repo.GetByID(ctx, task.ID.String())
	if err != nil {
		t.Fatalf("failed to load task: %v", err)
	}

	first.Status = model.TaskStatusScheduled
	if err := repo.UpdateOptimistic(ctx, first); err != nil {
		t.Fatalf("first write should succeed: %v", err)
	}
	if first.Version != task.Version+1 {
		t.Errorf("expected version bump to %d, got %d", task.Version+1, first.Version)
	}

	second.Status = model.TaskStatusDone
	if err := repo.UpdateOptimistic(ctx, second); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale write: expected ErrVersionConflict, got %v", err)
	}

	stored, err := repo.GetByID(ctx, task.ID.String())
	if err != nil {
		t.Fatalf("failed to reload task: %v", err)
	}
	if stored.Status != model.TaskStatusScheduled {
		t.Errorf("expected the first write to win, got %s", stored.Status)
	}

	// Retrying with fresh state succeeds.
	stored.Status = model.TaskStatusDone
	if err := repo.UpdateOptimistic(ctx, stored); err != nil {
		t.Errorf("retry with fresh state should succeed: %v", err)
	}
}

func TestListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	property := &model.Property{ExternalID: "ext-1", Name: "Seaside Cottage", Address: "1 Shore Rd"}
	if err := db.Create(property).Error; err != nil {
		t.Fatalf("failed to create property: %v", err)
	}

	handymanID := uuid.New()
	a := newTask(t, repo, property.ID)
	a.HandymanID = &handymanID
	a.Status = model.TaskStatusScheduled
	if err := repo.UpdateOptimistic(ctx, a); err != nil {
		t.Fatalf("failed to update task: %v", err)
	}
	newTask(t, repo, property.ID)

	status := model.TaskStatusScheduled
	scheduled, err := repo.List(ctx, TaskListFilter{Status: &status})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(scheduled) != 1 || scheduled[0].ID != a.ID {
		t.Errorf("expected one scheduled task, got %d", len(scheduled))
	}

	hid := handymanID.String()
	assigned, err := repo.List(ctx, TaskListFilter{HandymanID: &hid})
	if err != nil {
		t.Fatalf("list by handyman: %v", err)
	}
	if len(assigned) != 1 || assigned[0].ID != a.ID {
		t.Errorf("expected one assigned task, got %d", len(assigned))
	}

	all, err := repo.List(ctx, TaskListFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected two tasks, got %d", len(all))
	}
}

func TestDeleteMissingTask(t *testing.T) {
	repo := NewTaskRepository(setupTestDB(t))

	err := repo.Delete(context.Background(), uuid.NewString())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected gorm.ErrRecordNotFound, got %v", err)
	}
}

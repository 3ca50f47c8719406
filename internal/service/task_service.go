package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maintenance-service/internal/events"
	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrConflict         = errors.New("conflict, retry with fresh state")
)

// AvailabilityProvider supplies the free-window snapshot used to validate
// proposed timeslots against the property's bookings.
type AvailabilityProvider interface {
	GetAvailability(ctx context.Context, propertyExternalID string) (*AvailabilityResult, error)
}

type TaskService struct {
	taskRepo     *repository.TaskRepository
	propertyRepo *repository.PropertyRepository
	userRepo     *repository.UserRepository
	availability AvailabilityProvider
	broadcaster  *events.Broadcaster
}

func NewTaskService(
	taskRepo *repository.TaskRepository,
	propertyRepo *repository.PropertyRepository,
	userRepo *repository.UserRepository,
	availability AvailabilityProvider,
	broadcaster *events.Broadcaster,
) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		propertyRepo: propertyRepo,
		userRepo:     userRepo,
		availability: availability,
		broadcaster:  broadcaster,
	}
}

type CreateTaskInput struct {
	PropertyID  string
	Description string
	Priority    string
	ImageURLs   []string
}

func (s *TaskService) Create(ctx context.Context, principal model.Principal, input CreateTaskInput) (*model.Task, error) {
	if !principal.IsAdmin() && !principal.IsInspector() {
		return nil, ErrPermissionDenied
	}

	propertyID, err := uuid.Parse(input.PropertyID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	priority := model.TaskPriority(input.Priority)
	if priority == "" {
		priority = model.TaskPriorityMedium
	}
	if priority != model.TaskPriorityLow && priority != model.TaskPriorityMedium && priority != model.TaskPriorityHigh {
		return nil, ErrInvalidInput
	}

	property, err := s.propertyRepo.GetByID(ctx, propertyID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ticketNumber, err := s.taskRepo.NextTicketNumber(ctx)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		TicketNumber: ticketNumber,
		PropertyID:   property.ID,
		// Name and address are cached at creation time and intentionally
		// not refreshed when the property is later edited.
		PropertyName:       property.Name,
		Address:            property.Address,
		Description:        input.Description,
		Priority:           priority,
		Status:             model.TaskStatusNew,
		CreatedByID:        principal.UserID,
		ScheduledTimeslots: model.Timeslots{},
		ImageURLs:          model.StringList(input.ImageURLs),
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.TaskCreated(task)
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, principal model.Principal, id string) (*model.Task, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canAccessTask(principal, task) {
		return nil, ErrPermissionDenied
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, principal model.Principal, filter repository.TaskListFilter) ([]model.Task, error) {
	if principal.IsAdmin() {
		// Admins see everything.
	} else if principal.IsHandyman() {
		handymanID := principal.UserID.String()
		filter.HandymanID = &handymanID
	} else if principal.IsInspector() {
		createdByID := principal.UserID.String()
		filter.CreatedByID = &createdByID
	} else {
		return nil, ErrPermissionDenied
	}

	return s.taskRepo.List(ctx, filter)
}

func (s *TaskService) Delete(ctx context.Context, principal model.Principal, id string) error {
	if !principal.IsAdmin() {
		return ErrPermissionDenied
	}
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.broadcaster.TaskDeleted(id)
	return nil
}

// AssignHandyman sets the task's handyman. Allowed only while the task is
// still NEW.
func (s *TaskService) AssignHandyman(ctx context.Context, principal model.Principal, taskID, handymanID string) (*model.Task, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.TaskStatusNew {
		return nil, ErrInvalidState
	}

	handyman, err := s.userRepo.GetByID(ctx, handymanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if handyman.Role != model.RoleHandyman {
		return nil, ErrInvalidInput
	}

	task.HandymanID = &handyman.ID
	if err := s.updateOptimistic(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.TaskUpdated(task)
	return task, nil
}

type TimeslotInput struct {
	Date    string
	Hours   []string
	FullDay bool
}

// ProposeTimeslots appends pending maintenance windows to the task and moves
// it to SCHEDULED. Every proposed hour must be drawn from the current free
// windows of the task's property; a full-day slot expands to the whole free
// window of its date. Rejected slots from earlier rounds are kept as history
// and superseded rather than deleted.
func (s *TaskService) ProposeTimeslots(ctx context.Context, principal model.Principal, taskID string, slots []TimeslotInput) (*model.Task, error) {
	if !principal.IsHandyman() {
		return nil, ErrPermissionDenied
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.HandymanID == nil || *task.HandymanID != principal.UserID {
		return nil, ErrPermissionDenied
	}

	switch task.Status {
	case model.TaskStatusNew, model.TaskStatusScheduled, model.TaskStatusRejected:
	default:
		return nil, ErrInvalidState
	}

	if len(slots) == 0 {
		return nil, ErrInvalidInput
	}

	property, err := s.propertyRepo.GetByID(ctx, task.PropertyID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Upstream failure surfaces as-is and leaves the task untouched.
	result, err := s.availability.GetAvailability(ctx, property.ExternalID)
	if err != nil {
		return nil, err
	}

	for _, slot := range slots {
		if _, err := time.Parse("2006-01-02", slot.Date); err != nil {
			return nil, ErrInvalidInput
		}
		if len(slot.Hours) == 0 && !slot.FullDay {
			return nil, ErrInvalidInput
		}

		window, ok := result.WindowFor(slot.Date)
		if !ok {
			return nil, ErrInvalidInput
		}

		hours := slot.Hours
		if slot.FullDay {
			hours = window.AvailableHours
		} else if !subset(hours, window.AvailableHours) {
			return nil, ErrInvalidInput
		}

		task.ScheduledTimeslots = append(task.ScheduledTimeslots, model.Timeslot{
			Date:           slot.Date,
			Hours:          hours,
			ApprovalStatus: model.ApprovalStatusPending,
		})
	}

	// Earlier rejections are superseded by this round of proposals.
	for i := range task.ScheduledTimeslots {
		if task.ScheduledTimeslots[i].ApprovalStatus == model.ApprovalStatusRejected {
			task.ScheduledTimeslots[i].Superseded = true
		}
	}

	task.Status = model.TaskStatusScheduled
	if err := s.updateOptimistic(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.TaskUpdated(task)
	return task, nil
}

// SubmitForApproval hands the scheduled timeslots to the admin for review.
func (s *TaskService) SubmitForApproval(ctx context.Context, principal model.Principal, taskID string) (*model.Task, error) {
	if !principal.IsHandyman() {
		return nil, ErrPermissionDenied
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.HandymanID == nil || *task.HandymanID != principal.UserID {
		return nil, ErrPermissionDenied
	}
	if task.Status != model.TaskStatusScheduled {
		return nil, ErrInvalidState
	}
	if !hasPending(task.ScheduledTimeslots) {
		return nil, ErrInvalidState
	}

	task.Status = model.TaskStatusPendingApproval
	if err := s.updateOptimistic(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.TaskUpdated(task)
	return task, nil
}

func (s *TaskService) ApproveTimeslot(ctx context.Context, principal model.Principal, taskID string, index int) (*model.Task, error) {
	return s.resolveTimeslot(ctx, principal, taskID, index, model.ApprovalStatusApproved)
}

func (s *TaskService) RejectTimeslot(ctx context.Context, principal model.Principal, taskID string, index int) (*model.Task, error) {
	return s.resolveTimeslot(ctx, principal, taskID, index, model.ApprovalStatusRejected)
}

func (s *TaskService) resolveTimeslot(ctx context.Context, principal model.Principal, taskID string, index int, status model.ApprovalStatus) (*model.Task, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	// Slots stay reviewable after a rejection so the admin can finish the
	// pass; the aggregate status keeps any rejection sticky until the
	// handyman resubmits.
	if task.Status != model.TaskStatusPendingApproval && task.Status != model.TaskStatusRejected {
		return nil, ErrInvalidState
	}
	if index < 0 || index >= len(task.ScheduledTimeslots) {
		return nil, ErrNotFound
	}
	if task.ScheduledTimeslots[index].ApprovalStatus != model.ApprovalStatusPending {
		return nil, ErrInvalidState
	}

	task.ScheduledTimeslots[index].ApprovalStatus = status
	task.Status = StatusFromTimeslots(task.ScheduledTimeslots)

	if err := s.updateOptimistic(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.TimeslotStatusChanged(task, index, status)
	return task, nil
}

// ListHandymen returns the users an admin can assign tasks to.
func (s *TaskService) ListHandymen(ctx context.Context, principal model.Principal) ([]model.User, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	return s.userRepo.ListByRole(ctx, model.RoleHandyman)
}

// MarkDone closes out an approved task.
func (s *TaskService) MarkDone(ctx context.Context, principal model.Principal, taskID string) (*model.Task, error) {
	if !principal.IsHandyman() {
		return nil, ErrPermissionDenied
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.HandymanID == nil || *task.HandymanID != principal.UserID {
		return nil, ErrPermissionDenied
	}
	if task.Status != model.TaskStatusApproved {
		return nil, ErrInvalidState
	}

	task.Status = model.TaskStatusDone
	if err := s.updateOptimistic(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.TaskUpdated(task)
	return task, nil
}

// StatusFromTimeslots derives the review-phase task status from the slot
// collection. Pure and idempotent: any live rejection wins, approval
// requires every live slot approved, anything else stays pending review.
// Superseded slots are history and do not count.
func StatusFromTimeslots(slots model.Timeslots) model.TaskStatus {
	live, approved := 0, 0
	for _, slot := range slots {
		if slot.Superseded {
			continue
		}
		live++
		switch slot.ApprovalStatus {
		case model.ApprovalStatusRejected:
			return model.TaskStatusRejected
		case model.ApprovalStatusApproved:
			approved++
		}
	}
	if live == 0 {
		return model.TaskStatusNew
	}
	if approved == live {
		return model.TaskStatusApproved
	}
	return model.TaskStatusPendingApproval
}

func (s *TaskService) getTask(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) updateOptimistic(ctx context.Context, task *model.Task) error {
	if err := s.taskRepo.UpdateOptimistic(ctx, task); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *TaskService) canAccessTask(principal model.Principal, task *model.Task) bool {
	if principal.IsAdmin() {
		return true
	}
	if principal.IsHandyman() {
		return task.HandymanID != nil && *task.HandymanID == principal.UserID
	}
	if principal.IsInspector() {
		return task.CreatedByID == principal.UserID
	}
	return false
}

func hasPending(slots model.Timeslots) bool {
	for _, slot := range slots {
		if !slot.Superseded && slot.ApprovalStatus == model.ApprovalStatusPending {
			return true
		}
	}
	return false
}

func subset(hours, available []string) bool {
	set := make(map[string]bool, len(available))
	for _, h := range available {
		set[h] = true
	}
	for _, h := range hours {
		if !set[h] {
			return false
		}
	}
	return true
}

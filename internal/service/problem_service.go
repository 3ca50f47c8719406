package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maintenance-service/internal/events"
	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
)

type ProblemService struct {
	problemRepo *repository.ProblemRepository
	taskService *TaskService
	broadcaster *events.Broadcaster
}

func NewProblemService(
	problemRepo *repository.ProblemRepository,
	taskService *TaskService,
	broadcaster *events.Broadcaster,
) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		taskService: taskService,
		broadcaster: broadcaster,
	}
}

type CreateProblemInput struct {
	Title       string
	Description string
	PropertyID  string
	Priority    string
	ImageURLs   []string
}

func (s *ProblemService) Create(ctx context.Context, principal model.Principal, input CreateProblemInput) (*model.Problem, error) {
	if !principal.IsInspector() && !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if input.Title == "" {
		return nil, ErrInvalidInput
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

	problem := &model.Problem{
		Title:       input.Title,
		Description: input.Description,
		PropertyID:  propertyID,
		Priority:    priority,
		Status:      model.ProblemStatusOpen,
		ReportedBy:  principal.UserID,
		ImageURLs:   model.StringList(input.ImageURLs),
	}

	if err := s.problemRepo.Create(ctx, problem); err != nil {
		return nil, err
	}

	s.broadcaster.ProblemReported(problem)
	return problem, nil
}

func (s *ProblemService) List(ctx context.Context, principal model.Principal, filter repository.ProblemListFilter) ([]model.Problem, error) {
	if principal.IsAdmin() {
		// Admins see everything.
	} else if principal.IsInspector() {
		reportedBy := principal.UserID.String()
		filter.ReportedBy = &reportedBy
	} else {
		return nil, ErrPermissionDenied
	}

	return s.problemRepo.List(ctx, filter)
}

// Convert turns an open problem into a task, carrying over the description,
// priority and photos. The problem keeps a link to the created task.
func (s *ProblemService) Convert(ctx context.Context, principal model.Principal, problemID string) (*model.Task, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	problem, err := s.getProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if problem.Status != model.ProblemStatusOpen {
		return nil, ErrInvalidState
	}

	task, err := s.taskService.Create(ctx, principal, CreateTaskInput{
		PropertyID:  problem.PropertyID.String(),
		Description: problem.Title + ": " + problem.Description,
		Priority:    string(problem.Priority),
		ImageURLs:   []string(problem.ImageURLs),
	})
	if err != nil {
		return nil, err
	}

	problem.Status = model.ProblemStatusConverted
	problem.TaskID = &task.ID
	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, err
	}

	return task, nil
}

func (s *ProblemService) Dismiss(ctx context.Context, principal model.Principal, problemID string) (*model.Problem, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	problem, err := s.getProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if problem.Status != model.ProblemStatusOpen {
		return nil, ErrInvalidState
	}

	problem.Status = model.ProblemStatusDismissed
	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, err
	}
	return problem, nil
}

func (s *ProblemService) getProblem(ctx context.Context, id string) (*model.Problem, error) {
	problem, err := s.problemRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return problem, nil
}

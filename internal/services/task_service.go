package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/yukikurage/taskscope/internal/access"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/repository"
	"github.com/yukikurage/taskscope/internal/utils"
	"gorm.io/gorm"
)

const maxTitleLength = 200

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTitleRequired     = errors.New("title is required")
	ErrTitleTooLong      = errors.New("title must be at most 200 characters")
	ErrInvalidStatus     = errors.New("status must be TODO, IN_PROGRESS or COMPLETED")
	ErrAssigneeRequired  = errors.New("assigned_to is required")
	ErrAssigneeNotFound  = errors.New("assignee not found")
	ErrInvalidAssignee   = errors.New("tasks can only be assigned to USER accounts")
	ErrNegativeWorkHours = errors.New("worked_hours cannot be negative")
	ErrWorkHoursRange    = errors.New("worked_hours must have at most 3 integer digits and 2 decimal places")
)

// TaskService handles task business logic. Every read and write goes
// through the requester's visibility scope first.
type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status     *models.TaskStatus
	Pagination utils.PaginationParams
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title            string
	Description      string
	AssignedToID     uint64
	DueDate          *time.Time
	Status           models.TaskStatus
	CompletionReport *string
	WorkedHours      *decimal.Decimal
}

// UpdateTaskInput represents a partial task update. Nil pointers leave the
// stored value untouched; the Clear flags null a field explicitly.
type UpdateTaskInput struct {
	Title                 *string
	Description           *string
	AssignedToID          *uint64
	DueDate               *time.Time
	ClearDueDate          bool
	Status                *models.TaskStatus
	CompletionReport      *string
	ClearCompletionReport bool
	WorkedHours           *decimal.Decimal
	ClearWorkedHours      bool
}

// Fields names the task fields the update touches.
func (in UpdateTaskInput) Fields() []string {
	var fields []string
	if in.Title != nil {
		fields = append(fields, "title")
	}
	if in.Description != nil {
		fields = append(fields, "description")
	}
	if in.AssignedToID != nil {
		fields = append(fields, "assigned_to")
	}
	if in.DueDate != nil || in.ClearDueDate {
		fields = append(fields, "due_date")
	}
	if in.Status != nil {
		fields = append(fields, "status")
	}
	if in.CompletionReport != nil || in.ClearCompletionReport {
		fields = append(fields, "completion_report")
	}
	if in.WorkedHours != nil || in.ClearWorkedHours {
		fields = append(fields, "worked_hours")
	}
	return fields
}

// TaskReport is the completion summary of a finished task.
type TaskReport struct {
	TaskID           uint64
	Title            string
	AssignedTo       string
	CompletionReport string
	WorkedHours      decimal.Decimal
}

// ListTasks returns the tasks visible to the requester
func (s *TaskService) ListTasks(requester access.Principal, input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	tasks, total, err := s.taskRepo.List(repository.TaskFilter{
		Scope:      access.TaskScope(requester),
		Status:     input.Status,
		Pagination: input.Pagination,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task visible to the requester
func (s *TaskService) GetTask(requester access.Principal, taskID uint64) (*models.Task, error) {
	return s.findVisible(requester, taskID)
}

// CreateTask creates a task on behalf of a staff member
func (s *TaskService) CreateTask(requester access.Principal, input CreateTaskInput) (*models.Task, error) {
	if !access.CanCreateTask(requester) {
		return nil, access.ErrForbidden
	}

	title, err := normalizeTitle(input.Title)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := checkWorkedHours(input.WorkedHours); err != nil {
		return nil, err
	}
	if err := models.ValidateCompletion(status, input.CompletionReport, input.WorkedHours); err != nil {
		return nil, err
	}

	if input.AssignedToID == 0 {
		return nil, ErrAssigneeRequired
	}
	if _, err := s.resolveAssignee(requester, input.AssignedToID); err != nil {
		return nil, err
	}

	creatorID := requester.ID
	task := &models.Task{
		Title:            title,
		Description:      input.Description,
		AssignedToID:     input.AssignedToID,
		DueDate:          input.DueDate,
		Status:           status,
		CompletionReport: input.CompletionReport,
		WorkedHours:      input.WorkedHours,
		CreatedByID:      &creatorID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.reload(task.ID)
}

// UpdateTask applies a partial update. Assignees may only report progress;
// the completion rule is checked against the resulting task.
func (s *TaskService) UpdateTask(requester access.Principal, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findVisible(requester, taskID)
	if err != nil {
		return nil, err
	}

	fields := input.Fields()
	if !access.CanModifyTaskDetails(requester, task) {
		for _, f := range fields {
			if _, ok := access.UserEditableTaskFields[f]; !ok {
				return nil, access.ErrForbidden
			}
		}
	}

	if input.Title != nil {
		title, err := normalizeTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.AssignedToID != nil && *input.AssignedToID != task.AssignedToID {
		if _, err := s.resolveAssignee(requester, *input.AssignedToID); err != nil {
			return nil, err
		}
		task.AssignedToID = *input.AssignedToID
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.ClearCompletionReport {
		task.CompletionReport = nil
	} else if input.CompletionReport != nil {
		task.CompletionReport = input.CompletionReport
	}
	if input.ClearWorkedHours {
		task.WorkedHours = nil
	} else if input.WorkedHours != nil {
		if err := checkWorkedHours(input.WorkedHours); err != nil {
			return nil, err
		}
		task.WorkedHours = input.WorkedHours
	}

	if err := models.ValidateCompletion(task.Status, task.CompletionReport, task.WorkedHours); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.reload(task.ID)
}

// DeleteTask deletes a visible task on behalf of a staff member
func (s *TaskService) DeleteTask(requester access.Principal, taskID uint64) error {
	task, err := s.findVisible(requester, taskID)
	if err != nil {
		return err
	}

	if !access.CanDeleteTask(requester, task) {
		return access.ErrForbidden
	}

	if err := s.taskRepo.Delete(task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// Report returns the completion summary of a visible, completed task.
func (s *TaskService) Report(requester access.Principal, taskID uint64) (*TaskReport, error) {
	task, err := s.findVisible(requester, taskID)
	if err != nil {
		return nil, err
	}

	if err := access.AuthorizeTaskReport(requester, task); err != nil {
		return nil, err
	}

	report := &TaskReport{
		TaskID:     task.ID,
		Title:      task.Title,
		AssignedTo: task.AssignedTo.Username,
	}
	if task.CompletionReport != nil {
		report.CompletionReport = *task.CompletionReport
	}
	if task.WorkedHours != nil {
		report.WorkedHours = *task.WorkedHours
	}
	return report, nil
}

// findVisible loads a task through the requester's scope. Tasks outside the
// scope are reported as not found.
func (s *TaskService) findVisible(requester access.Principal, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindScoped(access.TaskScope(requester), taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !access.CanAccessTask(requester, task) {
		return nil, ErrTaskNotFound
	}

	return task, nil
}

func (s *TaskService) reload(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "AssignedTo", "CreatedBy")
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

func (s *TaskService) resolveAssignee(requester access.Principal, userID uint64) (*models.User, error) {
	assignee, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("failed to find assignee: %w", err)
	}

	if !assignee.IsUser() {
		return nil, ErrInvalidAssignee
	}
	if !access.CanAssignTaskTo(requester, assignee) {
		return nil, access.ErrForbidden
	}

	return assignee, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// maxWorkedHours is the largest value a decimal(5,2) column holds.
var maxWorkedHours = decimal.New(99999, -2)

func checkWorkedHours(hours *decimal.Decimal) error {
	if hours == nil {
		return nil
	}
	if hours.IsNegative() {
		return ErrNegativeWorkHours
	}
	if hours.GreaterThan(maxWorkedHours) || !hours.Equal(hours.Round(2)) {
		return ErrWorkHoursRange
	}
	return nil
}

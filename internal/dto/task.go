package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/services"
	"github.com/yukikurage/taskscope/internal/utils"
)

// DateLayout is the wire format of task due dates
const DateLayout = "2006-01-02"

var ErrInvalidDueDate = errors.New("due_date must be formatted as YYYY-MM-DD")

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID               uint64            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	AssignedToID     uint64            `json:"assigned_to_id"`
	AssignedTo       *UserSummaryDTO   `json:"assigned_to,omitempty"`
	DueDate          *string           `json:"due_date"`
	Status           models.TaskStatus `json:"status"`
	CompletionReport *string           `json:"completion_report"`
	WorkedHours      *decimal.Decimal  `json:"worked_hours"`
	CreatedByID      *uint64           `json:"created_by_id"`
	CreatedBy        *UserSummaryDTO   `json:"created_by,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// TaskReportDTO is the completion summary of a finished task
type TaskReportDTO struct {
	TaskID           uint64          `json:"task_id"`
	Title            string          `json:"title"`
	AssignedTo       string          `json:"assigned_to"`
	CompletionReport string          `json:"completion_report"`
	WorkedHours      decimal.Decimal `json:"worked_hours"`
}

// CreateTaskRequest is the body of POST /tasks
type CreateTaskRequest struct {
	Title            string            `json:"title" binding:"required,max=200"`
	Description      string            `json:"description"`
	AssignedTo       uint64            `json:"assigned_to" binding:"required"`
	DueDate          *string           `json:"due_date"`
	Status           models.TaskStatus `json:"status"`
	CompletionReport *string           `json:"completion_report"`
	WorkedHours      *decimal.Decimal  `json:"worked_hours"`
}

// ToInput converts the request into service input
func (r CreateTaskRequest) ToInput() (services.CreateTaskInput, error) {
	input := services.CreateTaskInput{
		Title:            r.Title,
		Description:      r.Description,
		AssignedToID:     r.AssignedTo,
		Status:           r.Status,
		CompletionReport: r.CompletionReport,
		WorkedHours:      r.WorkedHours,
	}
	if r.DueDate != nil {
		due, err := ParseDate(*r.DueDate)
		if err != nil {
			return input, err
		}
		input.DueDate = &due
	}
	return input, nil
}

// UpdateTaskRequest is the body of PATCH /tasks/:id. Absent fields are left
// unchanged; an explicit null clears the nullable ones.
type UpdateTaskRequest struct {
	Title            *string            `json:"title"`
	Description      *string            `json:"description"`
	AssignedTo       *uint64            `json:"assigned_to"`
	DueDate          *string            `json:"due_date"`
	Status           *models.TaskStatus `json:"status"`
	CompletionReport *string            `json:"completion_report"`
	WorkedHours      *decimal.Decimal   `json:"worked_hours"`

	sent map[string]struct{}
}

// UnmarshalJSON records which keys the client sent alongside their values.
func (r *UpdateTaskRequest) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	type plain UpdateTaskRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*r = UpdateTaskRequest(p)
	r.sent = make(map[string]struct{}, len(keys))
	for k := range keys {
		r.sent[k] = struct{}{}
	}
	return nil
}

// Sent reports whether the client included key in the body, even as null.
func (r *UpdateTaskRequest) Sent(key string) bool {
	_, ok := r.sent[key]
	return ok
}

// ToInput converts the request into service input
func (r *UpdateTaskRequest) ToInput() (services.UpdateTaskInput, error) {
	input := services.UpdateTaskInput{
		Title:            r.Title,
		Description:      r.Description,
		AssignedToID:     r.AssignedTo,
		Status:           r.Status,
		CompletionReport: r.CompletionReport,
		WorkedHours:      r.WorkedHours,
	}

	for _, key := range []string{"title", "assigned_to", "status"} {
		if r.Sent(key) && nullValue(r, key) {
			return input, fmt.Errorf("%s cannot be null", key)
		}
	}

	if r.DueDate != nil {
		due, err := ParseDate(*r.DueDate)
		if err != nil {
			return input, err
		}
		input.DueDate = &due
	} else if r.Sent("due_date") {
		input.ClearDueDate = true
	}
	if r.CompletionReport == nil && r.Sent("completion_report") {
		input.ClearCompletionReport = true
	}
	if r.WorkedHours == nil && r.Sent("worked_hours") {
		input.ClearWorkedHours = true
	}

	return input, nil
}

func nullValue(r *UpdateTaskRequest, key string) bool {
	switch key {
	case "title":
		return r.Title == nil
	case "assigned_to":
		return r.AssignedTo == nil
	case "status":
		return r.Status == nil
	}
	return false
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidDueDate
	}
	return t, nil
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:               task.ID,
		Title:            task.Title,
		Description:      task.Description,
		AssignedToID:     task.AssignedToID,
		Status:           task.Status,
		CompletionReport: task.CompletionReport,
		WorkedHours:      task.WorkedHours,
		CreatedByID:      task.CreatedByID,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}

	if task.DueDate != nil {
		due := task.DueDate.Format(DateLayout)
		dto.DueDate = &due
	}

	// Include relations if preloaded
	if task.AssignedTo.ID != 0 {
		assignee := ToUserSummaryDTO(task.AssignedTo)
		dto.AssignedTo = &assignee
	}
	if task.CreatedBy != nil && task.CreatedBy.ID != 0 {
		creator := ToUserSummaryDTO(*task.CreatedBy)
		dto.CreatedBy = &creator
	}

	return dto
}

// ToTaskListResponse converts a page of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Pagination: params.Response(total),
	}
}

// ToTaskReportDTO converts a task report
func ToTaskReportDTO(report *services.TaskReport) TaskReportDTO {
	return TaskReportDTO{
		TaskID:           report.TaskID,
		Title:            report.Title,
		AssignedTo:       report.AssignedTo,
		CompletionReport: report.CompletionReport,
		WorkedHours:      report.WorkedHours,
	}
}

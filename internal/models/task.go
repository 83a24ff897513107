package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

var (
	// ErrTaskIncomplete matches every completion invariant violation.
	ErrTaskIncomplete           = errors.New("task is missing completion details")
	ErrCompletionReportRequired = errors.New("completion_report is required when status is COMPLETED")
	ErrWorkedHoursRequired      = errors.New("worked_hours is required when status is COMPLETED")
)

// CompletionError lists the completion fields missing from a COMPLETED task.
type CompletionError struct {
	Fields []string
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("when a task is completed, completion_report and worked_hours are required (missing: %s)",
		strings.Join(e.Fields, ", "))
}

// Unwrap lets errors.Is match ErrTaskIncomplete and the per-field sentinels.
func (e *CompletionError) Unwrap() []error {
	errs := []error{ErrTaskIncomplete}
	for _, f := range e.Fields {
		switch f {
		case "completion_report":
			errs = append(errs, ErrCompletionReportRequired)
		case "worked_hours":
			errs = append(errs, ErrWorkedHoursRequired)
		}
	}
	return errs
}

// ValidateCompletion checks the completion invariant: a COMPLETED task needs a
// non-blank completion report and a worked hours value.
func ValidateCompletion(status TaskStatus, report *string, hours *decimal.Decimal) error {
	if status != TaskStatusCompleted {
		return nil
	}

	var missing []string
	if report == nil || strings.TrimSpace(*report) == "" {
		missing = append(missing, "completion_report")
	}
	if hours == nil {
		missing = append(missing, "worked_hours")
	}
	if len(missing) > 0 {
		return &CompletionError{Fields: missing}
	}
	return nil
}

type Task struct {
	ID               uint64           `gorm:"primarykey" json:"id"`
	Title            string           `gorm:"type:varchar(200);not null" json:"title"`
	Description      string           `gorm:"type:text" json:"description"`
	AssignedToID     uint64           `gorm:"not null;index" json:"assigned_to_id"`
	DueDate          *time.Time       `gorm:"type:date" json:"due_date"`
	Status           TaskStatus       `gorm:"type:varchar(20);not null;default:'TODO';index" json:"status"`
	CompletionReport *string          `gorm:"type:text" json:"completion_report"`
	WorkedHours      *decimal.Decimal `gorm:"type:decimal(5,2)" json:"worked_hours"`
	CreatedByID      *uint64          `gorm:"index" json:"created_by_id"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	// Relations
	AssignedTo User  `gorm:"foreignKey:AssignedToID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedBy  *User `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL" json:"-"`
}

// BeforeSave enforces the completion invariant at the data layer, independent
// of any validation the caller already did.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status %q", t.Status)
	}
	return ValidateCompletion(t.Status, t.CompletionReport, t.WorkedHours)
}

package repository

import (
	"time"

	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/utils"
	"gorm.io/gorm"
)

// Scope narrows a query, typically to the rows a principal may see.
type Scope func(db *gorm.DB) *gorm.DB

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// FindScoped finds a task by ID among the rows the scope admits
	FindScoped(scope Scope, id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update saves every field of a task
	Update(task *models.Task) error

	// Delete deletes a task
	Delete(id uint64) error

	// Count counts all tasks
	Count() (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Scope      Scope
	Status     *models.TaskStatus
	Pagination utils.PaginationParams
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindActiveByEmail returns active accounts whose email matches case-insensitively
	FindActiveByEmail(email string) ([]models.User, error)

	// List retrieves users admitted by the scope with pagination
	List(scope Scope, params utils.PaginationParams) ([]models.User, int64, error)

	// ListByRoles lists every account holding one of the roles
	ListByRoles(roles ...models.Role) ([]models.User, error)

	// SetManager sets or clears the managing admin of a user
	SetManager(userID uint64, managerID *uint64) error

	// CountByRole counts accounts holding a role
	CountByRole(role models.Role) (int64, error)
}

// PasscodeRepository defines the interface for one-time passcode data access
type PasscodeRepository interface {
	// Create stores a freshly issued passcode
	Create(passcode *models.OneTimePasscode) error

	// FindLatest finds the most recently issued passcode of a user with the given code
	FindLatest(userID uint64, code string) (*models.OneTimePasscode, error)

	// RecordFailedAttempt bumps the attempt counter of every live passcode of a user
	RecordFailedAttempt(userID uint64, now time.Time) error

	// Consume marks a passcode used if it is still redeemable at now.
	// It reports false when another request consumed it first.
	Consume(id uint64, now time.Time, maxAttempts int) (bool, error)
}

package repository

import (
	"github.com/yukikurage/taskscope/internal/database"
	"github.com/yukikurage/taskscope/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Omit("AssignedTo", "CreatedBy").Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// FindScoped finds a task by ID among the rows the scope admits. Tasks outside
// the scope come back as gorm.ErrRecordNotFound.
func (r *GormTaskRepository) FindScoped(scope Scope, id uint64) (*models.Task, error) {
	var task models.Task
	err := r.db.Model(&models.Task{}).
		Scopes(scope).
		Preload("AssignedTo").
		Preload("CreatedBy").
		Where("tasks.id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	base := func() *gorm.DB {
		query := r.db.Model(&models.Task{})
		if filter.Scope != nil {
			query = query.Scopes(filter.Scope)
		}
		if filter.Status != nil {
			query = query.Where("tasks.status = ?", *filter.Status)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := base().Order("tasks.created_at DESC").Order("tasks.id DESC")
	if filter.Pagination.Limit > 0 {
		listQuery = listQuery.Scopes(database.Paginate(filter.Pagination))
	}

	var tasks []models.Task
	if err := listQuery.Preload("AssignedTo").Preload("CreatedBy").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update saves every field of a task; the model hook re-validates it
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Omit("AssignedTo", "CreatedBy").Save(task).Error
}

// Delete deletes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Task{}, id).Error
}

// Count counts all tasks
func (r *GormTaskRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Task{}).Count(&count).Error
	return count, err
}

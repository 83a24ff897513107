package repository

import (
	"strings"

	"github.com/yukikurage/taskscope/internal/database"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActiveByEmail returns every active account with the email, ignoring case.
// Callers decide what zero or several matches mean.
func (r *GormUserRepository) FindActiveByEmail(email string) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("LOWER(email) = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// List retrieves users admitted by the scope with pagination
func (r *GormUserRepository) List(scope Scope, params utils.PaginationParams) ([]models.User, int64, error) {
	var total int64
	if err := r.db.Model(&models.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := r.db.Model(&models.User{}).Scopes(scope).
		Order("users.username ASC").
		Scopes(database.Paginate(params)).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ListByRoles lists every account holding one of the roles
func (r *GormUserRepository) ListByRoles(roles ...models.Role) ([]models.User, error) {
	var users []models.User
	if err := r.db.Where("role IN ?", roles).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetManager sets or clears the managing admin of a user
func (r *GormUserRepository) SetManager(userID uint64, managerID *uint64) error {
	return r.db.Model(&models.User{ID: userID}).Update("manager_id", managerID).Error
}

// CountByRole counts accounts holding a role
func (r *GormUserRepository) CountByRole(role models.Role) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

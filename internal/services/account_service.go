package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/taskscope/internal/access"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/repository"
	"github.com/yukikurage/taskscope/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidStaffRole = errors.New("role must be ADMIN or SUPERADMIN")
	ErrInvalidManager   = errors.New("manager must be an ADMIN account")
)

// AccountService manages accounts on behalf of staff members.
type AccountService struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
}

// NewAccountService creates a new AccountService.
func NewAccountService(userRepo repository.UserRepository, taskRepo repository.TaskRepository) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		taskRepo: taskRepo,
	}
}

// CreateStaff creates an ADMIN or SUPERADMIN account. An empty role means ADMIN.
func (s *AccountService) CreateStaff(requester access.Principal, input AccountInput) (*models.User, error) {
	if !access.CanCreateStaff(requester) {
		return nil, access.ErrForbidden
	}

	role := input.Role
	if role == "" {
		role = models.RoleAdmin
	}
	if !role.IsStaff() {
		return nil, ErrInvalidStaffRole
	}

	return createAccount(s.userRepo, input, role)
}

// CreateUser creates a plain USER account.
func (s *AccountService) CreateUser(requester access.Principal, input AccountInput) (*models.User, error) {
	if !access.CanCreateUser(requester) {
		return nil, access.ErrForbidden
	}
	if input.Password != input.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}

	return createAccount(s.userRepo, input, models.RoleUser)
}

// AssignManager attaches a USER account to a managing ADMIN, or detaches it
// when managerID is nil.
func (s *AccountService) AssignManager(requester access.Principal, userID uint64, managerID *uint64) (*models.User, error) {
	if !access.CanAssignManager(requester) {
		return nil, access.ErrForbidden
	}

	target, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := access.AuthorizeManagerAssignment(requester, target); err != nil {
		if errors.Is(err, access.ErrNotAssignable) {
			// only USER accounts are addressable here
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if managerID != nil {
		manager, err := s.userRepo.FindByID(*managerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidManager
			}
			return nil, fmt.Errorf("failed to find manager: %w", err)
		}
		if !manager.IsAdmin() {
			return nil, ErrInvalidManager
		}
	}

	if err := s.userRepo.SetManager(target.ID, managerID); err != nil {
		return nil, fmt.Errorf("failed to assign manager: %w", err)
	}

	target.ManagerID = managerID
	return target, nil
}

// ListUsers lists the USER accounts the requester may see.
func (s *AccountService) ListUsers(requester access.Principal, params utils.PaginationParams) ([]models.User, int64, error) {
	users, total, err := s.userRepo.List(access.UserScope(requester), params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// ListStaff lists ADMIN and SUPERADMIN accounts.
func (s *AccountService) ListStaff(requester access.Principal) ([]models.User, error) {
	if !access.CanViewStaffDirectory(requester) {
		return nil, access.ErrForbidden
	}

	users, err := s.userRepo.ListByRoles(models.RoleAdmin, models.RoleSuperAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return users, nil
}

// DashboardCounts summarizes the installation for staff.
type DashboardCounts struct {
	TotalAdmins      int64
	TotalSuperAdmins int64
	TotalUsers       int64
	TotalTasks       int64
}

// Dashboard returns account and task totals.
func (s *AccountService) Dashboard(requester access.Principal) (*DashboardCounts, error) {
	if !access.CanViewStaffDirectory(requester) {
		return nil, access.ErrForbidden
	}

	var counts DashboardCounts
	var err error
	if counts.TotalAdmins, err = s.userRepo.CountByRole(models.RoleAdmin); err != nil {
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}
	if counts.TotalSuperAdmins, err = s.userRepo.CountByRole(models.RoleSuperAdmin); err != nil {
		return nil, fmt.Errorf("failed to count superadmins: %w", err)
	}
	if counts.TotalUsers, err = s.userRepo.CountByRole(models.RoleUser); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if counts.TotalTasks, err = s.taskRepo.Count(); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	return &counts, nil
}

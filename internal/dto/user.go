package dto

import (
	"time"

	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/services"
	"github.com/yukikurage/taskscope/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      models.Role `json:"role"`
	IsStaff   bool        `json:"is_staff"`
	ManagerID *uint64     `json:"manager_id"`
}

// UserSummaryDTO is the short form of a user embedded in other resources
type UserSummaryDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO                `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// CreateAccountRequest is the body for creating staff and user accounts
type CreateAccountRequest struct {
	Username        string      `json:"username" binding:"required,min=3,max=150"`
	Email           string      `json:"email" binding:"required,email"`
	FirstName       string      `json:"first_name" binding:"max=150"`
	LastName        string      `json:"last_name" binding:"max=150"`
	Password        string      `json:"password" binding:"required"`
	PasswordConfirm string      `json:"password_confirm"`
	Role            models.Role `json:"role"`
}

// ToInput converts the request into service input
func (r CreateAccountRequest) ToInput() services.AccountInput {
	return services.AccountInput{
		Username:        r.Username,
		Email:           r.Email,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Password:        r.Password,
		PasswordConfirm: r.PasswordConfirm,
		Role:            r.Role,
	}
}

// AssignManagerRequest sets or clears (null) the managing admin of a user
type AssignManagerRequest struct {
	ManagerID *uint64 `json:"manager_id"`
}

// TokenPairDTO is returned by the token endpoints
type TokenPairDTO struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// DashboardDTO summarizes the installation for staff
type DashboardDTO struct {
	TotalAdmins      int64 `json:"total_admins"`
	TotalSuperAdmins int64 `json:"total_superadmins"`
	TotalUsers       int64 `json:"total_users"`
	TotalTasks       int64 `json:"total_tasks"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		IsStaff:   user.IsStaff,
		ManagerID: user.ManagerID,
	}
}

// ToUserSummaryDTO converts a User model to UserSummaryDTO
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	items := make([]UserDTO, len(users))
	for i, u := range users {
		items[i] = ToUserDTO(u)
	}
	return items
}

// ToUserListResponse converts a page of users to UserListResponse
func ToUserListResponse(users []models.User, params utils.PaginationParams, total int64) UserListResponse {
	return UserListResponse{
		Users:      ToUserDTOs(users),
		Pagination: params.Response(total),
	}
}

// ToTokenPairDTO converts a token pair
func ToTokenPairDTO(pair *services.TokenPair) TokenPairDTO {
	return TokenPairDTO{
		Access:           pair.Access,
		Refresh:          pair.Refresh,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

// ToDashboardDTO converts dashboard counts
func ToDashboardDTO(counts *services.DashboardCounts) DashboardDTO {
	return DashboardDTO{
		TotalAdmins:      counts.TotalAdmins,
		TotalSuperAdmins: counts.TotalSuperAdmins,
		TotalUsers:       counts.TotalUsers,
		TotalTasks:       counts.TotalTasks,
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskscope/internal/dto"
	apierrors "github.com/yukikurage/taskscope/internal/errors"
	"github.com/yukikurage/taskscope/internal/middleware"
	"github.com/yukikurage/taskscope/internal/services"
	"github.com/yukikurage/taskscope/internal/utils"
)

// AccountHandler serves account administration for staff.
type AccountHandler struct {
	accountService *services.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// ListUsers returns the USER accounts visible to the requester.
func (h *AccountHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	users, total, err := h.accountService.ListUsers(middleware.GetPrincipal(c), params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserListResponse(users, params, total))
}

// CreateUser creates a plain USER account.
func (h *AccountHandler) CreateUser(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.accountService.CreateUser(middleware.GetPrincipal(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// AssignManager sets or clears the managing admin of a USER account.
func (h *AccountHandler) AssignManager(c *gin.Context) {
	userID, ok := middleware.GetIDParam(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	var req dto.AssignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.accountService.AssignManager(middleware.GetPrincipal(c), userID, req.ManagerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ListStaff returns ADMIN and SUPERADMIN accounts.
func (h *AccountHandler) ListStaff(c *gin.Context) {
	staff, err := h.accountService.ListStaff(middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"admins": dto.ToUserDTOs(staff),
	})
}

// CreateStaff creates an ADMIN or SUPERADMIN account.
func (h *AccountHandler) CreateStaff(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.accountService.CreateStaff(middleware.GetPrincipal(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Dashboard returns installation totals.
func (h *AccountHandler) Dashboard(c *gin.Context) {
	counts, err := h.accountService.Dashboard(middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDashboardDTO(counts))
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskscope/internal/dto"
	apierrors "github.com/yukikurage/taskscope/internal/errors"
	"github.com/yukikurage/taskscope/internal/services"
)

// TokenHandler issues bearer tokens for API clients that do not keep cookies.
type TokenHandler struct {
	authService  *services.AuthService
	tokenService *services.TokenService
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(authService *services.AuthService, tokenService *services.TokenService) *TokenHandler {
	return &TokenHandler{
		authService:  authService,
		tokenService: tokenService,
	}
}

// Obtain exchanges username and password for an access/refresh pair.
func (h *TokenHandler) Obtain(c *gin.Context) {
	type TokenRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	pair, err := h.tokenService.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTokenPairDTO(pair))
}

// Refresh exchanges a refresh token for a new pair, provided the account is
// still active.
func (h *TokenHandler) Refresh(c *gin.Context) {
	type RefreshRequest struct {
		Refresh string `json:"refresh" binding:"required"`
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	claims, err := h.tokenService.Parse(req.Refresh, services.TokenTypeRefresh)
	if err != nil {
		respondError(c, err)
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		respondError(c, services.ErrTokenInvalid)
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			err = services.ErrTokenInvalid
		}
		respondError(c, err)
		return
	}

	pair, err := h.tokenService.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTokenPairDTO(pair))
}

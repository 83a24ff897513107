package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskscope/internal/dto"
	apierrors "github.com/yukikurage/taskscope/internal/errors"
	"github.com/yukikurage/taskscope/internal/services"
)

// OTPHandler serves passwordless login by emailed one-time passcode.
type OTPHandler struct {
	otpService *services.OTPService
}

// NewOTPHandler creates a new OTPHandler.
func NewOTPHandler(otpService *services.OTPService) *OTPHandler {
	return &OTPHandler{
		otpService: otpService,
	}
}

// Request emails a new passcode to the account owning the address.
func (h *OTPHandler) Request(c *gin.Context) {
	type OTPRequest struct {
		Email string `json:"email" binding:"required,email"`
	}

	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Please enter a valid email.")
		return
	}

	if err := h.otpService.Request(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "A one-time passcode has been sent to your email.",
	})
}

// Verify redeems a passcode and logs the account in.
func (h *OTPHandler) Verify(c *gin.Context) {
	type OTPVerifyRequest struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required,len=6,numeric"`
	}

	var req OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Email and a 6-digit code are required.")
		return
	}

	user, err := h.otpService.Verify(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := startSession(c, user); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskscope/internal/access"
	apierrors "github.com/yukikurage/taskscope/internal/errors"
	"github.com/yukikurage/taskscope/internal/middleware"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/services"
	"github.com/yukikurage/taskscope/internal/utils"
)

// respondError maps service and access errors onto the API error envelope.
func respondError(c *gin.Context, err error) {
	var completion *models.CompletionError

	switch {
	// authorization
	case errors.Is(err, access.ErrForbidden):
		apierrors.Forbidden(c, "You do not have permission to perform this action")
	case errors.Is(err, access.ErrReportUnavailable):
		apierrors.BadRequest(c, err.Error())

	// task completion rule, reported per missing field
	case errors.As(err, &completion):
		apierrors.ValidationFailed(c, completion.Error(), completion.Fields)

	// accounts
	case errors.Is(err, services.ErrWeakPassword):
		apierrors.ValidationFailed(c, err.Error()+". "+utils.PasswordPolicyHelpText, []string{"password"})
	case errors.Is(err, services.ErrPasswordMismatch):
		apierrors.ValidationFailed(c, err.Error(), []string{"password_confirm"})
	case errors.Is(err, services.ErrUsernameRequired):
		apierrors.ValidationFailed(c, err.Error(), []string{"username"})
	case errors.Is(err, services.ErrEmailRequired):
		apierrors.ValidationFailed(c, err.Error(), []string{"email"})
	case errors.Is(err, services.ErrInvalidStaffRole):
		apierrors.ValidationFailed(c, err.Error(), []string{"role"})
	case errors.Is(err, services.ErrInvalidManager):
		apierrors.ValidationFailed(c, err.Error(), []string{"manager_id"})
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.RespondWithError(c, http.StatusUnauthorized, apierrors.NewAPIError(apierrors.ErrCodeInvalidCredentials, err.Error()))
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())

	// tokens
	case errors.Is(err, services.ErrTokenExpired), errors.Is(err, services.ErrTokenInvalid):
		apierrors.Unauthorized(c, err.Error())

	// one-time passcodes
	case errors.Is(err, services.ErrOTPUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAmbiguousIdentity):
		apierrors.ConflictWithCode(c, apierrors.ErrCodeAmbiguousIdentity, err.Error())
	case errors.Is(err, services.ErrInvalidCode):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidCode, err.Error())
	case errors.Is(err, services.ErrCodeExpired):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeCodeExpired, "One-time passcode has expired. Please request a new one.")
	case errors.Is(err, services.ErrCodeExhausted):
		apierrors.TooManyRequests(c, apierrors.ErrCodeCodeExhausted, err.Error())
	case errors.Is(err, services.ErrOTPThrottled):
		var throttled *services.ThrottledError
		if errors.As(err, &throttled) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(throttled.RetryAfter.Seconds()))))
		}
		apierrors.TooManyRequests(c, "", "A one-time passcode was sent recently. Please wait before requesting another.")
	case errors.Is(err, services.ErrDeliveryFailed):
		apierrors.ServiceUnavailable(c, apierrors.ErrCodeDeliveryFailed, "Error sending email. Please try again later.")

	// tasks
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired), errors.Is(err, services.ErrTitleTooLong):
		apierrors.ValidationFailed(c, err.Error(), []string{"title"})
	case errors.Is(err, services.ErrInvalidStatus):
		apierrors.ValidationFailed(c, err.Error(), []string{"status"})
	case errors.Is(err, services.ErrNegativeWorkHours), errors.Is(err, services.ErrWorkHoursRange):
		apierrors.ValidationFailed(c, err.Error(), []string{"worked_hours"})
	case errors.Is(err, services.ErrAssigneeRequired),
		errors.Is(err, services.ErrAssigneeNotFound),
		errors.Is(err, services.ErrInvalidAssignee):
		apierrors.ValidationFailed(c, err.Error(), []string{"assigned_to"})

	default:
		log.Printf("request %s failed: %v", middleware.GetRequestID(c), err)
		apierrors.InternalError(c, "")
	}
}

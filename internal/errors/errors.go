package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidCode        = "INVALID_CODE"
	ErrCodeCodeExpired        = "CODE_EXPIRED"
	ErrCodeCodeExhausted      = "CODE_EXHAUSTED"
	ErrCodeAmbiguousIdentity  = "AMBIGUOUS_IDENTITY"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeValidationError = "VALIDATION_ERROR"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeDeliveryFailed     = "DELIVERY_FAILED"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized,
		NewAPIError(ErrCodeUnauthorized, orDefault(message, "Authentication required")))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden,
		NewAPIError(ErrCodeForbidden, orDefault(message, "Access denied")))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound,
		NewAPIError(ErrCodeNotFound, orDefault(message, "Resource not found")))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest,
		NewAPIError(ErrCodeInvalidInput, orDefault(message, "Invalid request")))
}

// BadRequestWithCode sends a 400 response with a specific error code
func BadRequestWithCode(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusBadRequest, NewAPIError(code, message))
}

// ValidationFailed sends a 400 response naming the offending fields
func ValidationFailed(c *gin.Context, message string, fields []string) {
	RespondWithError(c, http.StatusBadRequest,
		NewAPIErrorWithDetails(ErrCodeValidationError, message, gin.H{"fields": fields}))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict,
		NewAPIError(ErrCodeConflict, orDefault(message, "Resource conflict")))
}

// ConflictWithCode sends a 409 response with a specific error code
func ConflictWithCode(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusConflict, NewAPIError(code, message))
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusTooManyRequests,
		NewAPIError(orDefault(code, ErrCodeTooManyRequests), orDefault(message, "Too many requests")))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError,
		NewAPIError(ErrCodeInternalError, orDefault(message, "Internal server error")))
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusServiceUnavailable,
		NewAPIError(orDefault(code, ErrCodeServiceUnavailable), orDefault(message, "Service temporarily unavailable")))
}

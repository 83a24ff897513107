package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyRole      = "role"
	ContextKeyRequestID = "request_id"
	SessionCookieName   = "task_session"
)

// Header names
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "
)

// Password policy
const (
	MinPasswordLength    = 8
	PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`
)

// One-time passcodes
const (
	OTPDigits          = 6
	OTPLifetime        = 10 * time.Minute
	OTPMaxAttempts     = 5
	OTPSubject         = "Your One-Time Passcode"
	OTPThrottleKeyBase = "otp:req:"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 100000
)

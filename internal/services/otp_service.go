package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/yukikurage/taskscope/internal/constants"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/notifications"
	"github.com/yukikurage/taskscope/internal/repository"
	"github.com/yukikurage/taskscope/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrOTPUserNotFound   = errors.New("no active account matches this email")
	ErrAmbiguousIdentity = errors.New("more than one active account matches this email")
	ErrInvalidCode       = errors.New("invalid one-time passcode")
	ErrCodeExpired       = errors.New("one-time passcode has expired")
	ErrCodeExhausted     = errors.New("too many attempts for this one-time passcode")
	ErrDeliveryFailed    = errors.New("failed to send one-time passcode")
	ErrOTPThrottled      = errors.New("a one-time passcode was requested recently")
)

// RequestThrottle limits how often a keyed action may happen.
type RequestThrottle interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
	RetryAfter(ctx context.Context, key string) (time.Duration, error)
}

// ThrottledError is returned when a passcode request comes inside the resend
// window. It matches ErrOTPThrottled.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s; retry in %s", ErrOTPThrottled, e.RetryAfter)
}

func (e *ThrottledError) Unwrap() error { return ErrOTPThrottled }

// OTPConfig holds the passcode lifetime and limits.
type OTPConfig struct {
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
}

// DefaultOTPConfig returns the standard passcode limits.
func DefaultOTPConfig() OTPConfig {
	return OTPConfig{
		TTL:         constants.OTPLifetime,
		MaxAttempts: constants.OTPMaxAttempts,
	}
}

// OTPService issues and verifies emailed one-time passcodes.
type OTPService struct {
	userRepo     repository.UserRepository
	passcodeRepo repository.PasscodeRepository
	sender       notifications.Sender
	throttle     RequestThrottle
	cfg          OTPConfig
	now          func() time.Time
}

// NewOTPService creates a new OTPService. throttle may be nil to disable
// request throttling.
func NewOTPService(
	userRepo repository.UserRepository,
	passcodeRepo repository.PasscodeRepository,
	sender notifications.Sender,
	throttle RequestThrottle,
	cfg OTPConfig,
) *OTPService {
	if cfg.TTL <= 0 {
		cfg.TTL = constants.OTPLifetime
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.OTPMaxAttempts
	}
	return &OTPService{
		userRepo:     userRepo,
		passcodeRepo: passcodeRepo,
		sender:       sender,
		throttle:     throttle,
		cfg:          cfg,
		now:          time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *OTPService) SetClock(now func() time.Time) {
	s.now = now
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// resolveUser finds the single active account for email.
func (s *OTPService) resolveUser(email string) (*models.User, error) {
	if email == "" {
		return nil, ErrOTPUserNotFound
	}

	users, err := s.userRepo.FindActiveByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	switch len(users) {
	case 0:
		return nil, ErrOTPUserNotFound
	case 1:
		return &users[0], nil
	default:
		return nil, ErrAmbiguousIdentity
	}
}

// Request issues a new passcode for the account owning email and sends it.
// Earlier outstanding passcodes stay valid.
func (s *OTPService) Request(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.resolveUser(email)
	if err != nil {
		return err
	}

	if s.throttle != nil && s.cfg.ResendWindow > 0 {
		ok, err := s.throttle.Allow(ctx, email, s.cfg.ResendWindow)
		if err != nil {
			return fmt.Errorf("failed to check request throttle: %w", err)
		}
		if !ok {
			wait, err := s.throttle.RetryAfter(ctx, email)
			if err != nil || wait <= 0 {
				wait = s.cfg.ResendWindow
			}
			return &ThrottledError{RetryAfter: wait}
		}
	}

	code, err := utils.GenerateNumericCode(constants.OTPDigits)
	if err != nil {
		return fmt.Errorf("failed to generate passcode: %w", err)
	}

	now := s.now()
	passcode := &models.OneTimePasscode{
		UserID:    user.ID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.passcodeRepo.Create(passcode); err != nil {
		return fmt.Errorf("failed to store passcode: %w", err)
	}

	msg := notifications.Message{
		To:       user.Email,
		Subject:  constants.OTPSubject,
		HTMLBody: passcodeEmailBody(code, s.cfg.TTL),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		log.Printf("otp: delivery to %s failed: %v", user.Email, err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}

func passcodeEmailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(
		"<p>Hello,</p>\n<p>Your one-time passcode is: <strong>%s</strong></p>\n<p>This code will expire in %d minutes.</p>\n",
		html.EscapeString(code), int(ttl.Minutes()),
	)
}

// Verify redeems code for the account owning email. A passcode succeeds at
// most once; failed guesses count against every live passcode of the user.
func (s *OTPService) Verify(ctx context.Context, email, code string) (*models.User, error) {
	user, err := s.resolveUser(normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	now := s.now()
	code = strings.TrimSpace(code)

	passcode, err := s.passcodeRepo.FindLatest(user.ID, code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find passcode: %w", err)
		}
		if err := s.passcodeRepo.RecordFailedAttempt(user.ID, now); err != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		return nil, ErrInvalidCode
	}

	switch {
	case passcode.UsedAt != nil:
		return nil, ErrInvalidCode
	case passcode.IsExpiredAt(now):
		return nil, ErrCodeExpired
	case passcode.Attempts >= s.cfg.MaxAttempts:
		return nil, ErrCodeExhausted
	}

	consumed, err := s.passcodeRepo.Consume(passcode.ID, now, s.cfg.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to consume passcode: %w", err)
	}
	if !consumed {
		// lost a race with a concurrent verification or attempt
		return nil, ErrInvalidCode
	}

	return user, nil
}

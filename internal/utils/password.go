package utils

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yukikurage/taskscope/internal/constants"
)

// PasswordPolicyHelpText describes the policy to end users.
const PasswordPolicyHelpText = "Use 8+ chars with upper, lower, a number, and a special character."

var (
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters long")
	ErrPasswordNoUppercase = errors.New("password must include at least one uppercase letter")
	ErrPasswordNoLowercase = errors.New("password must include at least one lowercase letter")
	ErrPasswordNoDigit     = errors.New("password must include at least one digit")
	ErrPasswordNoSpecial   = errors.New("password must include at least one special character")
)

// ValidatePassword applies the account password policy and returns the first
// rule the password breaks.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(constants.PasswordSpecialChars, r):
			special = true
		}
	}

	switch {
	case !upper:
		return ErrPasswordNoUppercase
	case !lower:
		return ErrPasswordNoLowercase
	case !digit:
		return ErrPasswordNoDigit
	case !special:
		return ErrPasswordNoSpecial
	}
	return nil
}

package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxEmailLength    = 254
	minPasswordLength = 8
	// bcrypt only reads the first 72 bytes, so longer input is both useless
	// and a hashing-cost amplification vector.
	maxPasswordLength = 72
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}$`)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailTooLong     = errors.New("email must be at most 254 characters")
	ErrEmailInvalid     = errors.New("email format is invalid")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
	ErrPasswordTooWeak  = errors.New("password must contain at least one letter and one digit")
)

// NormalizeEmail trims surrounding whitespace and lowercases, so lookups and
// the unique index see one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	email = NormalizeEmail(email)

	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > maxEmailLength {
		return ErrEmailTooLong
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}

	local := email[:strings.IndexByte(email, '@')]
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return ErrEmailInvalid
	}

	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrPasswordTooWeak
	}

	return nil
}

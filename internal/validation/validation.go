package validation

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/currency"
)

var (
	// ErrNameRequired is returned when a display name is blank
	ErrNameRequired = errors.New("name is required")

	// ErrNameTooLong is returned when a name exceeds MaxNameLength runes
	ErrNameTooLong = errors.New("name must be at most 200 characters")

	// ErrInvalidEmail is returned when an email address doesn't parse
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidCurrency is returned for codes that are not ISO 4217
	ErrInvalidCurrency = errors.New("currency must be an ISO 4217 code")
)

const (
	MaxNameLength  = 200
	MaxEmailLength = 254
)

// NormalizeName trims surrounding whitespace
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateName checks an organization, project, task or user name
func ValidateName(name string) error {
	name = NormalizeName(name)
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare address only, no display name
func ValidateEmail(email string) error {
	if email == "" || len(email) > MaxEmailLength {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeCurrency parses code as an ISO 4217 currency and returns its
// canonical upper-case form
func NormalizeCurrency(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", ErrInvalidCurrency
	}
	return unit.String(), nil
}

// Package validation holds input validation rules shared by handlers.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 20
	bioMaxLen      = 300
	passwordMinLen = 12
	passwordMaxLen = 128
	emailMaxLen    = 254
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

var reservedUsernames = map[string]struct{}{
	"admin":    {},
	"api":      {},
	"auth":     {},
	"chat":     {},
	"settings": {},
	"users":    {},
	"streams":  {},
	"search":   {},
	"metrics":  {},
	"login":    {},
	"register": {},
	"solcitos": {},
	"paypal":   {},
}

// ValidateUsername validates username format and reserved names.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-20 characters and contain only letters, numbers, and underscores")
	}

	if _, exists := reservedUsernames[strings.ToLower(username)]; exists {
		return fmt.Errorf("username is reserved")
	}

	return nil
}

// ValidateBio enforces the profile bio length cap.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > bioMaxLen {
		return fmt.Errorf("bio must be at most %d characters", bioMaxLen)
	}
	return nil
}

// ValidateEmail validates email format and length.
func ValidateEmail(email string) error {
	if len(email) > emailMaxLen {
		return fmt.Errorf("email must be at most %d characters", emailMaxLen)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email format")
	}

	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("invalid email domain")
	}

	return nil
}

// ValidatePassword enforces the password policy: length bounds plus at least
// one upper, one lower, one digit, and one special character.
func ValidatePassword(password string) error {
	length := utf8.RuneCountInString(password)
	if length < passwordMinLen {
		return fmt.Errorf("password must be at least %d characters", passwordMinLen)
	}
	if length > passwordMaxLen {
		return fmt.Errorf("password must be at most %d characters", passwordMaxLen)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return fmt.Errorf("password must contain an uppercase letter, a lowercase letter, a digit, and a special character")
	}

	return nil
}

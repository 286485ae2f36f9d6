package validation

import (
	"unicode/utf8"

	"jeevandhara/internal/models"
)

// Password length bounds. bcrypt ignores bytes past 72.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// ValidatePassword checks a facility account password before hashing.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return models.NewValidationError("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordBytes {
		return models.NewValidationError("password must be at most 72 bytes")
	}
	return nil
}

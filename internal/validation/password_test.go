package validation

import (
	"strings"
	"testing"

	"jeevandhara/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword_Accepts(t *testing.T) {
	t.Parallel()
	for _, pw := range []string{
		"hospital-pass",
		"12345678",
		"Ångström",
		strings.Repeat("x", MaxPasswordBytes),
	} {
		assert.NoError(t, ValidatePassword(pw), "password %q", pw)
	}
}

func TestValidatePassword_Rejects(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"empty":            "",
		"seven characters": "bank123",
		"past bcrypt cap":  strings.Repeat("x", MaxPasswordBytes+1),
		// four runes, eight bytes
		"short multibyte": "ÅÅÅÅ",
	}
	for name, pw := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidatePassword(pw)
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.CodeValidation))
		})
	}
}

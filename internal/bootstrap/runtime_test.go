package bootstrap

import (
	"testing"

	"jeevandhara/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureDevAdminHash(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Env: "development", AdminUsername: "admin", AdminPassword: " letmein "}
	require.NoError(t, ensureDevAdminHash(cfg))
	require.NotEmpty(t, cfg.AdminPasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cfg.AdminPasswordHash), []byte("letmein")))

	preset := &config.Config{Env: "development", AdminPassword: "x", AdminPasswordHash: "$2a$10$kept"}
	require.NoError(t, ensureDevAdminHash(preset))
	assert.Equal(t, "$2a$10$kept", preset.AdminPasswordHash)

	prod := &config.Config{Env: "production", AdminPassword: "x"}
	require.NoError(t, ensureDevAdminHash(prod))
	assert.Empty(t, prod.AdminPasswordHash)

	none := &config.Config{Env: "development"}
	require.NoError(t, ensureDevAdminHash(none))
	assert.Empty(t, none.AdminPasswordHash)

	assert.NoError(t, ensureDevAdminHash(nil))
}

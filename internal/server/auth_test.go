package server

import (
	"net/http"
	"testing"

	"jeevandhara/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRequired_NotConfigured(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withoutIdentity())

	status, out := env.do(t, http.MethodGet, "/api/v1/auth/me", "anything", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "AUTH_CONFIG_MISSING", out["code"])
}

func TestIdentityRequired_RejectsBadTokens(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	status, out := env.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, msgNoToken, out["message"])

	status, out = env.do(t, http.MethodGet, "/api/v1/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, msgInvalidToken, out["message"])
}

func TestProfileRequired_UnknownIdentity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	status, out := env.do(t, http.MethodGet, "/api/v1/auth/me", signToken(t, "ghost", "ghost@example.test"), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, service.MsgProfileMissing, out["message"])
}

func TestCreateUserAndMe(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	token, id := env.signup(t, "donor", "donor-1", map[string]any{
		"fullName":    "Ravi Kumar",
		"bloodGroup":  "O-",
		"isAvailable": true,
		"location":    "Kathmandu",
	})

	status, me := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, id, me["id"])
	assert.Equal(t, "donor", me["userType"])
	assert.Equal(t, "donor-1@example.test", me["email"])
	assert.Equal(t, "O-", me["bloodGroup"])

	// Same identity cannot sign up twice, under any kind.
	status, out := env.do(t, http.MethodPost, "/api/v1/auth/create-user", token,
		map[string]any{"userType": "requester", "fullName": "Ravi"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgUserExists, out["message"])
}

func TestCreateUser_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := signToken(t, "x-1", "x1@example.test")

	status, out := env.do(t, http.MethodPost, "/api/v1/auth/create-user", token,
		map[string]any{"userType": "admin", "fullName": "X"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgInvalidUserType, out["message"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/create-user", token,
		map[string]any{"userType": "donor", "fullName": "X", "bloodGroup": "Z+"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUpdateProfileAndFCMToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token, id := env.signup(t, "requester", "req-1", map[string]any{"fullName": "Asha"})

	status, out := env.do(t, http.MethodPut, "/api/v1/auth/profile", token,
		map[string]any{"phone": "9800000000", "email": "hijack@example.test"})
	require.Equal(t, http.StatusOK, status, out)
	user := out["user"].(map[string]any)
	assert.Equal(t, "9800000000", user["phone"])
	assert.Equal(t, "req-1@example.test", user["email"], "email is not editable")

	status, out = env.do(t, http.MethodPost, "/api/v1/auth/fcm-token", token,
		map[string]any{"fcmToken": "device-token"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "FCM token updated successfully", out["message"])

	status, out = env.do(t, http.MethodGet, "/api/v1/auth/profile/requester/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Asha", out["fullName"])

	status, out = env.do(t, http.MethodGet, "/api/v1/auth/profile/pilot/1", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgInvalidUserType, out["message"])
}

func TestLinkIdentity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// A profile created by an older client without an external uid.
	status, out := env.do(t, http.MethodPost, "/api/v1/hospitals/register", "", hospitalPayload("City Care", "city@care.test", "REG-1"))
	require.Equal(t, http.StatusCreated, status, out)

	token := signToken(t, "hospital-uid", "city@care.test")
	status, out = env.do(t, http.MethodPost, "/api/v1/auth/link-firebase", token, map[string]any{"userType": "hospital"})
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, "Identity linked successfully", out["message"])

	status, me := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hospital", me["userType"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/link-firebase",
		signToken(t, "nobody", "nobody@example.test"), map[string]any{"userType": "hospital"})
	assert.Equal(t, http.StatusNotFound, status)
}

package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"jeevandhara/internal/models"
	"jeevandhara/internal/notifications"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves env's app on a loopback port and returns its address.
func listen(t *testing.T, env *testEnv) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.Shutdown() })
	return ln.Addr().String()
}

func dialNotifications(t *testing.T, addr, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := url.URL{Scheme: "ws", Host: addr, Path: "/api/v1/ws/notifications", RawQuery: "token=" + url.QueryEscape(token)}
	return websocket.DefaultDialer.Dial(u.String(), nil)
}

func TestNotificationsWebSocket_RequiresUpgrade(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token, _ := env.signup(t, "donor", "ravi", map[string]any{"fullName": "Ravi", "bloodGroup": "A+"})

	status, _ := env.do(t, http.MethodGet, "/api/v1/ws/notifications", token, nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestNotificationsWebSocket_RejectsMissingToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	addr := listen(t, env)

	conn, resp, err := dialNotifications(t, addr, "")
	require.Error(t, err)
	if conn != nil {
		_ = conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNotificationsWebSocket_DeliversNewRequest(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, env.srv.hub.StartWiring(ctx, env.srv.notifier))
	addr := listen(t, env)

	donorToken, donorID := env.signup(t, "donor", "ravi", map[string]any{
		"fullName": "Ravi", "bloodGroup": "O+", "isAvailable": true,
	})
	status, _ := env.do(t, http.MethodPost, "/api/v1/auth/fcm-token", donorToken, map[string]any{"fcmToken": "device-1"})
	require.Equal(t, http.StatusOK, status)
	reqToken, _ := env.signup(t, "requester", "asha", map[string]any{"fullName": "Asha"})

	conn, _, err := dialNotifications(t, addr, donorToken)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	donor := notifications.Recipient{Kind: models.KindDonor, ID: donorID}
	require.Eventually(t, func() bool { return env.srv.hub.Connections(donor) == 1 },
		2*time.Second, 10*time.Millisecond)

	status, out := env.do(t, http.MethodPost, "/api/v1/blood-requests", reqToken, requestPayload("O+"))
	require.Equal(t, http.StatusCreated, status, out)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env1 notifications.Envelope
	require.NoError(t, conn.ReadJSON(&env1))
	assert.Equal(t, notifications.EventNewRequest, env1.Type)
	assert.Contains(t, env1.Body, "O+")
}

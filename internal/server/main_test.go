package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"jeevandhara/internal/config"
	"jeevandhara/internal/database"
	"jeevandhara/internal/identity"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret   = "test-identity-secret-0123456789abcdef"
	testIssuer   = "jeevandhara-test"
	testAudience = "jeevandhara-client"
	testAdmin    = "admin"
	testAdminPW  = "s3cret-pass"
)

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

type envOption func(*config.Config)

func withoutIdentity() envOption {
	return func(c *config.Config) { c.IdentityJWTSecret = "" }
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(context.Background(), db))
	return db
}

// newTestEnv builds a full server over SQLite and miniredis.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPW), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                  "test",
		IdentityJWTSecret:    testSecret,
		IdentityIssuer:       testIssuer,
		IdentityAudience:     testAudience,
		AdminUsername:        testAdmin,
		AdminPasswordHash:    string(hash),
		AdminSessionTTLHours: 1,
		NotifyWorkers:        1,
		FeatureFlags:         "emergency_broadcast=true",
	}
	for _, o := range opts {
		o(cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := newTestDB(t)
	srv, err := NewServer(cfg, db, rdb)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.hub.Shutdown(ctx)
		_ = srv.notify.Shutdown(ctx)
	})

	return &testEnv{srv: srv, app: srv.NewApp(), db: db, mr: mr}
}

func signToken(t *testing.T, uid, email string) string {
	t.Helper()
	tok, err := identity.Sign(testSecret, testIssuer, testAudience,
		identity.Identity{UID: uid, Email: email, EmailVerified: true}, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request and decodes a JSON object response.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

// signup creates a profile of kind for a new identity and returns its token
// and id.
func (e *testEnv) signup(t *testing.T, kind, uid string, profile map[string]any) (string, uint) {
	t.Helper()
	token := signToken(t, uid, uid+"@example.test")
	body := map[string]any{"userType": kind}
	for k, v := range profile {
		body[k] = v
	}
	status, out := e.do(t, http.MethodPost, "/api/v1/auth/create-user", token, body)
	require.Equal(t, http.StatusCreated, status, out)
	user := out["user"].(map[string]any)
	return token, uint(user["id"].(float64))
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func hospitalPayload(name, email, reg string) map[string]any {
	return map[string]any{
		"hospitalName":           name,
		"email":                  email,
		"password":               "hospital-pass",
		"hospitalRegistrationId": reg,
		"city":                   "Pune",
	}
}

func bankPayload(name, email, reg string) map[string]any {
	return map[string]any{
		"bloodBankName":      name,
		"email":              email,
		"password":           "bank-pass-123",
		"registrationNumber": reg,
		"city":               "Pune",
	}
}

// raw sends a bodyless request and returns the response with its body
// already closed.
func (e *testEnv) raw(t *testing.T, method, path string, headers ...string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestHit_DisabledOutsideProduction(t *testing.T) {
	rule := Rule{Name: "api", Limit: 1, Window: time.Minute}
	for _, env := range []string{"", "test", "development", "stress"} {
		t.Setenv("APP_ENV", env)
		w, err := Hit(context.Background(), nil, rule, "ip:1")
		require.NoError(t, err, env)
		assert.True(t, w.Allowed, env)
	}
}

func TestHit_NeedsRedisInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := Hit(context.Background(), nil, Rules[LimitAPI], "ip:1")
	assert.ErrorIs(t, err, errNoRedis)
}

func TestHit_FixedWindow(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	rdb, mr := newTestRedis(t)
	ctx := context.Background()
	rule := Rules[LimitBloodRequest]

	var last Window
	for i := 1; i <= rule.Limit; i++ {
		w, err := Hit(ctx, rdb, rule, "requester:7")
		require.NoError(t, err)
		assert.True(t, w.Allowed, "hit %d", i)
		assert.Equal(t, rule.Limit-i, w.Remaining)
		last = w
	}
	assert.LessOrEqual(t, last.ResetIn, time.Hour)

	w, err := Hit(ctx, rdb, rule, "requester:7")
	require.NoError(t, err)
	assert.False(t, w.Allowed)
	assert.Zero(t, w.Remaining)

	other, err := Hit(ctx, rdb, rule, "requester:8")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	mr.FastForward(time.Hour + time.Second)
	w, err = Hit(ctx, rdb, rule, "requester:7")
	require.NoError(t, err)
	assert.True(t, w.Allowed, "window expired")
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	get := func(t *testing.T, app *fiber.App, path string) *http.Response {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("open in test mode", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		app := fiber.New()
		app.Get("/x", RateLimit(nil, Rule{Name: "t", Limit: 1, Window: time.Minute}), ok)
		assert.Equal(t, http.StatusOK, get(t, app, "/x").StatusCode)
		assert.Equal(t, http.StatusOK, get(t, app, "/x").StatusCode)
	})

	t.Run("fails open without redis", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := fiber.New()
		app.Get("/x", RateLimit(nil, Rules[LimitAPI]), ok)
		assert.Equal(t, http.StatusOK, get(t, app, "/x").StatusCode)
	})

	t.Run("fails closed without redis", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := fiber.New()
		app.Get("/x", RateLimitWithPolicy(nil, Rules[LimitEmergency], FailClosed), ok)
		assert.Equal(t, http.StatusServiceUnavailable, get(t, app, "/x").StatusCode)
	})

	t.Run("429 with retry hint", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		rdb, _ := newTestRedis(t)
		app := fiber.New()
		app.Get("/x", RateLimit(rdb, Rule{Name: "create", Limit: 2, Window: time.Hour, Message: "slow down"}), ok)

		first := get(t, app, "/x")
		assert.Equal(t, http.StatusOK, first.StatusCode)
		assert.Equal(t, "2", first.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", first.Header.Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusOK, get(t, app, "/x").StatusCode)

		third := get(t, app, "/x")
		assert.Equal(t, http.StatusTooManyRequests, third.StatusCode)
		assert.Equal(t, "0", third.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, third.Header.Get("Retry-After"))
	})
}

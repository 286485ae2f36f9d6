// Package middleware provides request-scoped HTTP middleware: logging,
// tracing, metrics and Redis-backed rate limiting.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be asked.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// Named limits applied to route groups.
const (
	LimitAPI          = "api"
	LimitAuth         = "auth"
	LimitEmergency    = "emergency"
	LimitBloodRequest = "blood_request"
)

// Rule is a fixed-window limit.
type Rule struct {
	Name    string
	Limit   int
	Window  time.Duration
	Message string
}

// Rules are the limits applied to the public API.
var Rules = map[string]Rule{
	LimitAPI:          {Name: LimitAPI, Limit: 100, Window: 15 * time.Minute, Message: "Too many requests from this IP, please try again later."},
	LimitAuth:         {Name: LimitAuth, Limit: 10, Window: time.Hour, Message: "Too many authentication attempts, please try again later."},
	LimitEmergency:    {Name: LimitEmergency, Limit: 5, Window: time.Minute, Message: "Too many emergency requests, please wait a moment."},
	LimitBloodRequest: {Name: LimitBloodRequest, Limit: 3, Window: time.Hour, Message: "Too many blood requests created, please try again later."},
}

var errNoRedis = errors.New("rate limit store not configured")

// Window is the state of one key after a hit.
type Window struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// limitsDisabled reports whether limits are off for local and test runs.
func limitsDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// Hit counts one request for key under rule. The window starts with the
// first hit and is not extended by later ones.
func Hit(ctx context.Context, rdb *redis.Client, rule Rule, key string) (Window, error) {
	if limitsDisabled() {
		return Window{Allowed: true, Remaining: rule.Limit, ResetIn: rule.Window}, nil
	}
	if rdb == nil {
		return Window{}, errNoRedis
	}

	redisKey := "rl:" + rule.Name + ":" + key
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	if _, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		ttl = p.PTTL(ctx, redisKey)
		return nil
	}); err != nil {
		return Window{}, err
	}

	resetIn := ttl.Val()
	if resetIn <= 0 {
		if err := rdb.PExpire(ctx, redisKey, rule.Window).Err(); err != nil {
			return Window{}, err
		}
		resetIn = rule.Window
	}

	count := int(incr.Val())
	return Window{
		Allowed:   count <= rule.Limit,
		Remaining: max(rule.Limit-count, 0),
		ResetIn:   resetIn,
	}, nil
}

// RateLimit enforces rule and fails open when Redis is unavailable.
func RateLimit(rdb *redis.Client, rule Rule) fiber.Handler {
	return RateLimitWithPolicy(rdb, rule, FailOpen)
}

// RateLimitWithPolicy enforces rule keyed by the authenticated profile, or
// by remote IP before a profile is known. Answers carry the
// X-RateLimit-* headers and 429s carry Retry-After.
func RateLimitWithPolicy(rdb *redis.Client, rule Rule, policy FailPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			key = fmt.Sprintf("%v:%v", c.Locals("userKind"), uid)
		}

		w, err := Hit(c.UserContext(), rdb, rule, key)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
				slog.String("rule", rule.Name),
				slog.String("error", err.Error()),
			)
			if policy == FailClosed {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"message": "Rate limit unavailable",
				})
			}
			return c.Next()
		}

		seconds := strconv.Itoa(int(w.ResetIn.Round(time.Second) / time.Second))
		c.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(w.Remaining))
		c.Set("X-RateLimit-Reset", seconds)
		if !w.Allowed {
			c.Set(fiber.HeaderRetryAfter, seconds)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": rule.Message,
			})
		}
		return c.Next()
	}
}

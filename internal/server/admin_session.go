package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"jeevandhara/internal/middleware"
	"jeevandhara/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminCookie         = "admin_session"
	adminSessionPrefix  = "admin_session:"
	defaultAdminSession = 24 * time.Hour
	adminLoginPath      = "/admin/login"
)

// sessionStore keeps admin sessions in Redis, or in process memory when
// Redis is not configured.
type sessionStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time

	mu  sync.Mutex
	mem map[string]memSession
}

type memSession struct {
	username string
	expires  time.Time
}

func newSessionStore(rdb *redis.Client, ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = defaultAdminSession
	}
	return &sessionStore{rdb: rdb, ttl: ttl, now: time.Now, mem: make(map[string]memSession)}
}

// Create opens a session for username and returns its id.
func (s *sessionStore) Create(ctx context.Context, username string) (string, error) {
	id := uuid.NewString()
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, adminSessionPrefix+id, username, s.ttl).Err(); err != nil {
			return "", err
		}
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem[id] = memSession{username: username, expires: s.now().Add(s.ttl)}
	return id, nil
}

// Lookup returns the username behind id. Expired or unknown ids report
// false.
func (s *sessionStore) Lookup(ctx context.Context, id string) (string, bool, error) {
	if id == "" {
		return "", false, nil
	}
	if s.rdb != nil {
		username, err := s.rdb.Get(ctx, adminSessionPrefix+id).Result()
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return username, true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.mem[id]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(sess.expires) {
		delete(s.mem, id)
		return "", false, nil
	}
	return sess.username, true, nil
}

// Delete ends a session.
func (s *sessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if s.rdb != nil {
		return s.rdb.Del(ctx, adminSessionPrefix+id).Err()
	}
	s.mu.Lock()
	delete(s.mem, id)
	s.mu.Unlock()
	return nil
}

func unauthorizedAdmin(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message":  "Unauthorized. Please login.",
		"redirect": adminLoginPath,
	})
}

// AdminRequired admits requests carrying a live admin session cookie.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, ok, err := s.sessions.Lookup(c.UserContext(), c.Cookies(adminCookie))
		if err != nil {
			middleware.Logger.ErrorContext(c.UserContext(), "admin session lookup failed",
				slog.String("error", err.Error()))
			return models.RespondWithAppError(c, models.NewInternalError(err))
		}
		if !ok {
			return unauthorizedAdmin(c)
		}
		c.Locals("adminUser", username)
		return c.Next()
	}
}

// checkAdminCredentials compares against the configured username and
// bcrypt hash.
func (s *Server) checkAdminCredentials(username, password string) bool {
	want := s.config.AdminUsername
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(want)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(password)) == nil
	return userOK && passOK
}

func (s *Server) setSessionCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     adminCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// AdminLogin opens an admin session.
// @Summary Admin login
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /admin/login [post]
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	if s.config.AdminPasswordHash == "" {
		return models.RespondWithAppError(c, models.NewAuthConfigMissingError())
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := bindBody(c, &body); err != nil {
		return nil
	}

	if !s.checkAdminCredentials(body.Username, body.Password) {
		middleware.Logger.WarnContext(c.UserContext(), "admin login rejected", slog.String("ip", c.IP()))
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid username or password"))
	}

	id, err := s.sessions.Create(c.UserContext(), s.config.AdminUsername)
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	s.setSessionCookie(c, id, s.now().Add(s.sessions.ttl))
	return c.JSON(fiber.Map{"message": "Login successful", "username": s.config.AdminUsername})
}

// AdminLogout ends the admin session.
// @Summary Admin logout
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/logout [post]
func (s *Server) AdminLogout(c *fiber.Ctx) error {
	if err := s.sessions.Delete(c.UserContext(), c.Cookies(adminCookie)); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "admin session delete failed", slog.String("error", err.Error()))
	}
	s.setSessionCookie(c, "", s.now().Add(-time.Hour))
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// AdminSession reports whether the caller holds an admin session.
// @Summary Admin session status
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/session [get]
func (s *Server) AdminSession(c *fiber.Ctx) error {
	username, ok, err := s.sessions.Lookup(c.UserContext(), c.Cookies(adminCookie))
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	if !ok {
		return c.JSON(fiber.Map{"authenticated": false})
	}
	return c.JSON(fiber.Map{"authenticated": true, "username": username})
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. When allowQuery is set, a "token" query parameter is accepted as a
// fallback for WebSocket clients that cannot set headers.
func BearerToken(c *fiber.Ctx, allowQuery bool) (string, bool) {
	if header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if allowQuery {
		if token := strings.TrimSpace(c.Query("token")); token != "" {
			return token, true
		}
	}
	return "", false
}

package server

import (
	"jeevandhara/internal/identity"
	"jeevandhara/internal/middleware"
	"jeevandhara/internal/models"
	"jeevandhara/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Fiber locals set by the auth middleware.
const (
	localIdentity = "identity"
	localAccount  = "account"
)

const (
	msgNoToken      = "No token provided"
	msgInvalidToken = "Invalid or expired token"
)

// IdentityRequired verifies the bearer token and stores the identity in
// locals. WebSocket upgrades may pass the token as a query parameter.
func (s *Server) IdentityRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.verifier == nil {
			return models.RespondWithAppError(c, models.NewAuthConfigMissingError())
		}

		token, ok := middleware.BearerToken(c, websocket.IsWebSocketUpgrade(c))
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(msgNoToken))
		}

		id, err := s.verifier.Verify(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(msgInvalidToken))
		}

		c.Locals(localIdentity, id)
		return c.Next()
	}
}

// ProfileRequired resolves the verified identity to a stored profile. It
// must run after IdentityRequired.
func (s *Server) ProfileRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := c.Locals(localIdentity).(*identity.Identity)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(msgNoToken))
		}

		account, err := s.directory.Resolve(c.UserContext(), id)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}

		c.Locals(localAccount, account)
		c.Locals("userID", account.ID)
		c.Locals("userKind", string(account.Kind))
		c.SetUserContext(middleware.WithUser(c.UserContext(), account.ID, string(account.Kind)))
		return c.Next()
	}
}

func currentIdentity(c *fiber.Ctx) *identity.Identity {
	id, _ := c.Locals(localIdentity).(*identity.Identity)
	return id
}

func currentAccount(c *fiber.Ctx) *service.Account {
	a, _ := c.Locals(localAccount).(*service.Account)
	return a
}

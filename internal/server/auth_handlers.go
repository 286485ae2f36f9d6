package server

import (
	"log/slog"
	"strings"

	"jeevandhara/internal/middleware"
	"jeevandhara/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMe returns the caller's profile with its userType.
// @Summary Current profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	view, err := currentAccount(c).View()
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(view)
}

// CreateUser creates the profile for a freshly signed-up identity.
// @Summary Create profile after sign-up
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body map[string]interface{} true "userType plus profile fields"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/create-user [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	payload, err := bindFields(c)
	if err != nil {
		return nil
	}
	kind, _ := payload["userType"].(string)
	delete(payload, "userType")

	account, err := s.directory.CreateUser(c.UserContext(), currentIdentity(c), models.UserKind(kind), payload)
	if err != nil {
		return respond(c, err)
	}

	view, err := account.View()
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    view,
	})
}

// LinkIdentity attaches the caller's identity to the existing profile of
// the given kind that carries the token's email.
// @Summary Link identity to an existing profile
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/link-firebase [post]
func (s *Server) LinkIdentity(c *fiber.Ctx) error {
	var body struct {
		UserType models.UserKind `json:"userType"`
	}
	if err := bindBody(c, &body); err != nil {
		return nil
	}

	account, err := s.directory.Link(c.UserContext(), currentIdentity(c), body.UserType)
	if err != nil {
		return respond(c, err)
	}

	view, err := account.View()
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Identity linked successfully",
		"user":    view,
	})
}

// GetPublicProfile returns another account's profile.
// @Summary Public profile
// @Tags auth
// @Produce json
// @Param userType path string true "requester, donor, hospital or blood_bank"
// @Param userId path int true "Profile ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/profile/{userType}/{userId} [get]
func (s *Server) GetPublicProfile(c *fiber.Ctx) error {
	kind := models.UserKind(c.Params("userType"))
	if _, err := s.directory.Store(kind); err != nil {
		return respond(c, err)
	}
	id, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	account, err := s.directory.Profile(c.UserContext(), kind, id)
	if err != nil {
		return respond(c, err)
	}
	view, err := account.View()
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(view)
}

// UpdateFCMToken stores the caller's device token.
// @Summary Register device token
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/fcm-token [post]
func (s *Server) UpdateFCMToken(c *fiber.Ctx) error {
	var body struct {
		FCMToken string `json:"fcmToken"`
	}
	if err := bindBody(c, &body); err != nil {
		return nil
	}

	account := currentAccount(c)
	if err := s.directory.SetFCMToken(c.UserContext(), account, body.FCMToken); err != nil {
		return respond(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "device token updated",
		slog.String("user_kind", string(account.Kind)),
		slog.Bool("cleared", strings.TrimSpace(body.FCMToken) == ""),
	)
	return c.JSON(fiber.Map{"message": "FCM token updated successfully"})
}

// UpdateProfile applies changes to the caller's own profile. Identity and
// credential fields are ignored.
// @Summary Update own profile
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	fields, err := bindFields(c)
	if err != nil {
		return nil
	}

	account, err := s.directory.UpdateProfile(c.UserContext(), currentAccount(c), fields)
	if err != nil {
		return respond(c, err)
	}
	view, err := account.View()
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    view,
	})
}

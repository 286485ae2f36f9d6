package server

import (
	"jeevandhara/internal/models"

	"github.com/gofiber/fiber/v2"
)

// rejectionReason reads the optional reason from a reject body.
func rejectionReason(c *fiber.Ctx) (string, error) {
	var body struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) == 0 {
		return "", nil
	}
	if err := bindBody(c, &body); err != nil {
		return "", err
	}
	return body.Reason, nil
}

// GetVerificationStats summarises facilities by verification status.
// @Summary Verification stats
// @Tags admin
// @Produce json
// @Success 200 {object} service.VerificationStats
// @Failure 401 {object} map[string]interface{}
// @Router /admin/stats [get]
func (s *Server) GetVerificationStats(c *fiber.Ctx) error {
	stats, err := s.verification.Stats(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(stats)
}

func (s *Server) listHospitalsByStatus(status models.VerificationStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hospitals, err := s.verification.Hospitals(c.UserContext(), status)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(fiber.Map{"count": len(hospitals), "hospitals": hospitals})
	}
}

func (s *Server) listBloodBanksByStatus(status models.VerificationStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		banks, err := s.verification.BloodBanks(c.UserContext(), status)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(fiber.Map{"count": len(banks), "bloodBanks": banks})
	}
}

// VerifyHospital approves a hospital.
// @Summary Verify hospital
// @Tags admin
// @Produce json
// @Param id path int true "Hospital ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/hospitals/{id}/verify [put]
func (s *Server) VerifyHospital(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	h, err := s.verification.ApproveHospital(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Hospital verified successfully", "hospital": h})
}

// RejectHospital rejects a hospital with an optional reason.
// @Summary Reject hospital
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Hospital ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/hospitals/{id}/reject [put]
func (s *Server) RejectHospital(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	reason, err := rejectionReason(c)
	if err != nil {
		return nil
	}
	h, err := s.verification.RejectHospital(c.UserContext(), id, reason)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Hospital rejected", "hospital": h})
}

// VerifyBloodBank approves a blood bank.
// @Summary Verify blood bank
// @Tags admin
// @Produce json
// @Param id path int true "Blood bank ID"
// @Success 200 {object} map[string]interface{}
// @Router /admin/blood-banks/{id}/verify [put]
func (s *Server) VerifyBloodBank(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	bank, err := s.verification.ApproveBloodBank(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blood bank verified successfully", "bloodBank": bank})
}

// RejectBloodBank rejects a blood bank with an optional reason.
// @Summary Reject blood bank
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Blood bank ID"
// @Success 200 {object} map[string]interface{}
// @Router /admin/blood-banks/{id}/reject [put]
func (s *Server) RejectBloodBank(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	reason, err := rejectionReason(c)
	if err != nil {
		return nil
	}
	bank, err := s.verification.RejectBloodBank(c.UserContext(), id, reason)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blood bank rejected", "bloodBank": bank})
}

// GetFeatureFlags returns the configured flags and whether each is
// currently on for broadcast events.
// @Summary Feature flags
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(0),
	})
}

// GetNotificationErrors returns the recent notification failures.
// @Summary Notification failures
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/notifications/errors [get]
func (s *Server) GetNotificationErrors(c *fiber.Ctx) error {
	errs := s.notify.Errors()
	return c.JSON(fiber.Map{
		"count":       len(errs),
		"errors":      errs,
		"pushEnabled": s.notify.PushEnabled(),
	})
}

package server

import (
	"jeevandhara/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterBloodBank signs up a blood bank.
// @Summary Register blood bank
// @Tags blood-banks
// @Accept json
// @Produce json
// @Param body body service.BloodBankRegistration true "Blood bank"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /blood-banks/register [post]
func (s *Server) RegisterBloodBank(c *fiber.Ctx) error {
	var in service.BloodBankRegistration
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	bank, err := s.facilities.RegisterBloodBank(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   service.MsgBloodBankRegistered,
		"bloodBank": bank,
	})
}

// ListBloodBanks returns blood banks with their inventory per group.
// @Summary List blood banks
// @Tags blood-banks
// @Produce json
// @Param search query string false "Search text"
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} map[string]interface{}
// @Router /blood-banks [get]
func (s *Server) ListBloodBanks(c *fiber.Ctx) error {
	listing, err := s.facilities.BloodBanks(c.UserContext(), c.Query("search"), parsePage(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"bloodBanks": listing.Items, "pagination": listing.Pagination})
}

// GetBloodBank returns a bank profile with its inventory.
// @Summary Blood bank profile
// @Tags blood-banks
// @Produce json
// @Param id path int true "Blood bank ID"
// @Success 200 {object} models.BloodBankWithInventory
// @Failure 404 {object} models.ErrorResponse
// @Router /blood-banks/{id} [get]
func (s *Server) GetBloodBank(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	bank, err := s.facilities.BloodBank(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(bank)
}

// RecordBankDonation records collected units and adds them to stock.
// @Summary Record donation
// @Tags blood-banks
// @Accept json
// @Produce json
// @Param id path int true "Blood bank ID"
// @Param body body service.BankDonationInput true "Donation"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /blood-banks/{id}/donations [post]
func (s *Server) RecordBankDonation(c *fiber.Ctx) error {
	bankID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.BankDonationInput
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	receipt, err := s.ledger.RecordBankDonation(c.UserContext(), bankID, in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Donation recorded and stock updated",
		"donation": receipt.Donation,
		"stock":    receipt.Stock,
	})
}

// GetBankDonations lists a bank's donations, newest first.
// @Summary Blood bank donations
// @Tags blood-banks
// @Produce json
// @Param id path int true "Blood bank ID"
// @Success 200 {object} map[string]interface{}
// @Router /blood-banks/{id}/donations [get]
func (s *Server) GetBankDonations(c *fiber.Ctx) error {
	bankID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	donations, err := s.ledger.BankDonations(c.UserContext(), bankID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"count": len(donations), "donations": donations})
}

// RecordDistribution sends units to a hospital. The bank must hold enough
// stock of the group.
// @Summary Record distribution
// @Tags blood-banks
// @Accept json
// @Produce json
// @Param id path int true "Blood bank ID"
// @Param body body service.DistributionInput true "Distribution"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /blood-banks/{id}/distributions [post]
func (s *Server) RecordDistribution(c *fiber.Ctx) error {
	bankID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.DistributionInput
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	receipt, err := s.ledger.RecordDistribution(c.UserContext(), bankID, in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":        "Distribution recorded and stock updated",
		"distribution":   receipt.Distribution,
		"remainingStock": receipt.RemainingUnits,
	})
}

// GetDistributions lists a bank's distributions, newest first.
// @Summary Blood bank distributions
// @Tags blood-banks
// @Produce json
// @Param id path int true "Blood bank ID"
// @Success 200 {object} map[string]interface{}
// @Router /blood-banks/{id}/distributions [get]
func (s *Server) GetDistributions(c *fiber.Ctx) error {
	bankID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	distributions, err := s.ledger.Distributions(c.UserContext(), bankID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"count": len(distributions), "distributions": distributions})
}

// GetBankRequests lists hospital requests addressed to blood banks.
// @Summary Hospital requests for blood banks
// @Tags blood-banks
// @Produce json
// @Param id path int true "Blood bank ID"
// @Success 200 {object} map[string]interface{}
// @Router /blood-banks/{id}/requests [get]
func (s *Server) GetBankRequests(c *fiber.Ctx) error {
	bankID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	reqs, err := s.facilities.BankRequests(c.UserContext(), bankID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"count": len(reqs), "requests": reqs})
}

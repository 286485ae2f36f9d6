package server

import (
	"strconv"

	"jeevandhara/internal/models"
	"jeevandhara/internal/service"

	"github.com/gofiber/fiber/v2"
)

// donorSearch reads the donor filters from the query string. An
// unparseable "available" value is ignored.
func donorSearch(c *fiber.Ctx) service.DonorSearch {
	f := service.DonorSearch{
		BloodGroup: models.BloodGroup(c.Query("bloodGroup")),
		Location:   c.Query("location"),
		Query:      c.Query("search"),
	}
	if raw := c.Query("available"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			f.Available = &v
		}
	}
	return f
}

// ListDonors returns a page of donors.
// @Summary List donors
// @Tags donors
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} map[string]interface{}
// @Router /donors [get]
func (s *Server) ListDonors(c *fiber.Ctx) error {
	listing, err := s.people.Donors(c.UserContext(), service.DonorSearch{}, parsePage(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"donors": listing.Items, "pagination": listing.Pagination})
}

// SearchDonors filters donors by blood group, location and free text over
// name, email and phone.
// @Summary Search donors
// @Tags donors
// @Produce json
// @Param bloodGroup query string false "Blood group"
// @Param location query string false "Location substring"
// @Param search query string false "Name, email or phone substring"
// @Param available query bool false "Only available donors"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /donors/search [get]
func (s *Server) SearchDonors(c *fiber.Ctx) error {
	listing, err := s.people.Donors(c.UserContext(), donorSearch(c), parsePage(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"donors": listing.Items, "pagination": listing.Pagination})
}

// GetDonor returns one donor.
// @Summary Get donor
// @Tags donors
// @Produce json
// @Param id path int true "Donor ID"
// @Success 200 {object} models.Donor
// @Failure 404 {object} models.ErrorResponse
// @Router /donors/{id} [get]
func (s *Server) GetDonor(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	donor, err := s.people.Donor(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(donor)
}

// UpdateDonor edits a donor record.
// @Summary Update donor
// @Tags donors
// @Accept json
// @Produce json
// @Param id path int true "Donor ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /donors/{id} [put]
func (s *Server) UpdateDonor(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	fields, err := bindFields(c)
	if err != nil {
		return nil
	}
	donor, err := s.people.UpdateDonor(c.UserContext(), id, fields)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Donor updated successfully", "donor": donor})
}

// DeleteDonor removes a donor that is not assigned to an open request.
// @Summary Delete donor
// @Tags donors
// @Produce json
// @Param id path int true "Donor ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /donors/{id} [delete]
func (s *Server) DeleteDonor(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.people.DeleteDonor(c.UserContext(), id); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Donor deleted successfully"})
}

// ListRequesters returns a page of requesters.
// @Summary List requesters
// @Tags requesters
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} map[string]interface{}
// @Router /requesters [get]
func (s *Server) ListRequesters(c *fiber.Ctx) error {
	listing, err := s.people.Requesters(c.UserContext(), parsePage(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"requesters": listing.Items, "pagination": listing.Pagination})
}

// GetRequester returns one requester.
// @Summary Get requester
// @Tags requesters
// @Produce json
// @Param id path int true "Requester ID"
// @Success 200 {object} models.Requester
// @Failure 404 {object} models.ErrorResponse
// @Router /requesters/{id} [get]
func (s *Server) GetRequester(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	requester, err := s.people.Requester(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(requester)
}

// UpdateRequester edits a requester record.
// @Summary Update requester
// @Tags requesters
// @Accept json
// @Produce json
// @Param id path int true "Requester ID"
// @Success 200 {object} map[string]interface{}
// @Router /requesters/{id} [put]
func (s *Server) UpdateRequester(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	fields, err := bindFields(c)
	if err != nil {
		return nil
	}
	requester, err := s.people.UpdateRequester(c.UserContext(), id, fields)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Profile updated successfully", "requester": requester})
}

// DeleteRequester removes a requester without an open request.
// @Summary Delete requester
// @Tags requesters
// @Produce json
// @Param id path int true "Requester ID"
// @Success 200 {object} map[string]interface{}
// @Router /requesters/{id} [delete]
func (s *Server) DeleteRequester(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.people.DeleteRequester(c.UserContext(), id); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Requester deleted successfully"})
}

// GetRequesterRequests lists a requester's blood requests.
// @Summary Requester's blood requests
// @Tags requesters
// @Produce json
// @Param id path int true "Requester ID"
// @Success 200 {object} map[string]interface{}
// @Router /requesters/{id}/blood-requests [get]
func (s *Server) GetRequesterRequests(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	reqs, err := s.people.RequesterRequests(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"count": len(reqs), "bloodRequests": reqs})
}

package server

import (
	"jeevandhara/internal/models"
	"jeevandhara/internal/service"

	"github.com/gofiber/fiber/v2"
)

// lifecycleBody is the payload of accept and fulfill.
type lifecycleBody struct {
	RequestID uint `json:"requestId"`
	DonorID   uint `json:"donorId"`
}

// resolve fills the donor from the caller when the caller is a donor and
// checks both ids are present.
func (b *lifecycleBody) resolve(caller *service.Account) error {
	if caller != nil && caller.Kind == models.KindDonor {
		b.DonorID = caller.ID
	}
	if b.RequestID == 0 {
		return models.NewValidationError("requestId is required")
	}
	if b.DonorID == 0 {
		return models.NewValidationError("donorId is required")
	}
	return nil
}

// CreateBloodRequest opens a request. Requesters always create for
// themselves.
// @Summary Create blood request
// @Tags blood-requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body service.CreateRequestInput true "Request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /blood-requests [post]
func (s *Server) CreateBloodRequest(c *fiber.Ctx) error {
	var in service.CreateRequestInput
	if err := bindBody(c, &in); err != nil {
		return nil
	}

	req, err := s.requests.Create(c.UserContext(), currentAccount(c), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Blood request created successfully",
		"request": req,
	})
}

// ListBloodRequests lists open requests one page at a time. count is the
// number of open requests across all pages. Donors only see requests their
// blood group can serve.
// @Summary List blood requests
// @Tags blood-requests
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} map[string]interface{}
// @Router /blood-requests [get]
func (s *Server) ListBloodRequests(c *fiber.Ctx) error {
	listing, err := s.requests.List(c.UserContext(), currentAccount(c), parsePage(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"count":         listing.Pagination.Total,
		"bloodRequests": listing.Items,
		"pagination":    listing.Pagination,
	})
}

// GetBloodRequest returns one request with its parties.
// @Summary Get blood request
// @Tags blood-requests
// @Security BearerAuth
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} models.BloodRequest
// @Failure 404 {object} models.ErrorResponse
// @Router /blood-requests/{id} [get]
func (s *Server) GetBloodRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.requests.Get(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(req)
}

// UpdateBloodRequest edits request fields.
// @Summary Update blood request
// @Tags blood-requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blood-requests/{id} [put]
func (s *Server) UpdateBloodRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.UpdateRequestInput
	if err := bindBody(c, &in); err != nil {
		return nil
	}

	req, err := s.requests.Update(c.UserContext(), id, in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Blood request updated successfully",
		"request": req,
	})
}

// DeleteBloodRequest removes a request.
// @Summary Delete blood request
// @Tags blood-requests
// @Security BearerAuth
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /blood-requests/{id} [delete]
func (s *Server) DeleteBloodRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.requests.Delete(c.UserContext(), id); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blood request deleted successfully"})
}

// CancelBloodRequest cancels a pending or accepted request on behalf of
// the caller's kind.
// @Summary Cancel blood request
// @Tags blood-requests
// @Security BearerAuth
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blood-requests/{id}/cancel [put]
func (s *Server) CancelBloodRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.requests.Cancel(c.UserContext(), id, currentAccount(c).Kind)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Blood request cancelled successfully",
		"request": req,
	})
}

// AcceptBloodRequest assigns a donor to a pending request.
// @Summary Accept blood request
// @Tags blood-requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blood-requests/accept [post]
func (s *Server) AcceptBloodRequest(c *fiber.Ctx) error {
	var body lifecycleBody
	if err := bindBody(c, &body); err != nil {
		return nil
	}
	if err := body.resolve(currentAccount(c)); err != nil {
		return respond(c, err)
	}

	req, err := s.requests.Accept(c.UserContext(), body.RequestID, body.DonorID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Blood request accepted successfully",
		"request": req,
	})
}

// FulfillBloodRequest completes an accepted request for its donor.
// @Summary Fulfill blood request
// @Tags blood-requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /blood-requests/fulfill [post]
func (s *Server) FulfillBloodRequest(c *fiber.Ctx) error {
	var body lifecycleBody
	if err := bindBody(c, &body); err != nil {
		return nil
	}
	if err := body.resolve(currentAccount(c)); err != nil {
		return respond(c, err)
	}

	req, err := s.requests.Fulfill(c.UserContext(), body.RequestID, body.DonorID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Blood request fulfilled successfully",
		"request": req,
	})
}

// GetRequesterBloodRequests lists every request a requester raised.
// @Summary Requests by requester
// @Tags blood-requests
// @Security BearerAuth
// @Produce json
// @Param requesterId path int true "Requester ID"
// @Success 200 {object} map[string]interface{}
// @Router /blood-requests/requester/{requesterId} [get]
func (s *Server) GetRequesterBloodRequests(c *fiber.Ctx) error {
	id, err := s.parseID(c, "requesterId")
	if err != nil {
		return nil
	}
	reqs, err := s.requests.ListByRequester(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"count": len(reqs), "bloodRequests": reqs})
}

// GetDonorHistory lists the requests a donor fulfilled.
// @Summary Donor history
// @Tags blood-requests
// @Security BearerAuth
// @Produce json
// @Param donorId path int true "Donor ID"
// @Success 200 {object} map[string]interface{}
// @Router /blood-requests/donor/{donorId}/history [get]
func (s *Server) GetDonorHistory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "donorId")
	if err != nil {
		return nil
	}
	history, err := s.requests.DonorHistory(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"count": len(history), "history": history})
}

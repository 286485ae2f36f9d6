package server

import (
	"jeevandhara/internal/models"
	"jeevandhara/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterHospital signs up a hospital pending admin verification.
// @Summary Register hospital
// @Tags hospitals
// @Accept json
// @Produce json
// @Param body body service.HospitalRegistration true "Hospital"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /hospitals/register [post]
func (s *Server) RegisterHospital(c *fiber.Ctx) error {
	var in service.HospitalRegistration
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	h, err := s.facilities.RegisterHospital(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  service.MsgHospitalRegistered,
		"hospital": h,
	})
}

// ListHospitals returns hospitals, optionally filtered by a case-insensitive
// search over name, email and phone.
// @Summary List hospitals
// @Tags hospitals
// @Produce json
// @Param search query string false "Search text"
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} map[string]interface{}
// @Router /hospitals [get]
func (s *Server) ListHospitals(c *fiber.Ctx) error {
	listing, err := s.facilities.Hospitals(c.UserContext(), c.Query("search"), parsePage(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"hospitals": listing.Items, "pagination": listing.Pagination})
}

// GetHospital returns one hospital.
// @Summary Get hospital
// @Tags hospitals
// @Produce json
// @Param hospitalId path int true "Hospital ID"
// @Success 200 {object} models.Hospital
// @Failure 404 {object} models.ErrorResponse
// @Router /hospitals/{hospitalId} [get]
func (s *Server) GetHospital(c *fiber.Ctx) error {
	id, err := s.parseID(c, "hospitalId")
	if err != nil {
		return nil
	}
	h, err := s.facilities.Hospital(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(h)
}

// CreateHospitalRequest files a hospital's request for units.
// @Summary Create hospital blood request
// @Tags hospitals
// @Accept json
// @Produce json
// @Param hospitalId path int true "Hospital ID"
// @Param body body service.HospitalRequestInput true "Request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /hospitals/{hospitalId}/blood-requests [post]
func (s *Server) CreateHospitalRequest(c *fiber.Ctx) error {
	hospitalID, err := s.parseID(c, "hospitalId")
	if err != nil {
		return nil
	}
	var in service.HospitalRequestInput
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	req, err := s.hospitalRequests.Create(c.UserContext(), hospitalID, in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Blood request created successfully",
		"request": req,
	})
}

// ListHospitalRequests lists a hospital's requests, newest first.
// @Summary List hospital blood requests
// @Tags hospitals
// @Produce json
// @Param hospitalId path int true "Hospital ID"
// @Success 200 {object} map[string]interface{}
// @Router /hospitals/{hospitalId}/blood-requests [get]
func (s *Server) ListHospitalRequests(c *fiber.Ctx) error {
	hospitalID, err := s.parseID(c, "hospitalId")
	if err != nil {
		return nil
	}
	reqs, err := s.hospitalRequests.ListByHospital(c.UserContext(), hospitalID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"count": len(reqs), "requests": reqs})
}

// UpdateHospitalRequest edits a hospital request.
// @Summary Update hospital blood request
// @Tags hospitals
// @Accept json
// @Produce json
// @Param requestId path int true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /hospitals/blood-requests/{requestId} [put]
func (s *Server) UpdateHospitalRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}
	var in service.HospitalRequestUpdate
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	req, err := s.hospitalRequests.Update(c.UserContext(), id, in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Request updated successfully", "request": req})
}

// UpdateDeliveryStatus moves a hospital request along its delivery states.
// @Summary Update delivery status
// @Tags hospitals
// @Accept json
// @Produce json
// @Param requestId path int true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /hospitals/blood-requests/{requestId}/delivery-status [put]
func (s *Server) UpdateDeliveryStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}
	var body struct {
		DeliveryStatus models.DeliveryStatus `json:"deliveryStatus"`
	}
	if err := bindBody(c, &body); err != nil {
		return nil
	}
	req, err := s.hospitalRequests.UpdateDeliveryStatus(c.UserContext(), id, body.DeliveryStatus)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Delivery status updated", "request": req})
}

// GetHospitalStock lists a hospital's stock rows.
// @Summary Hospital stock
// @Tags hospitals
// @Produce json
// @Param hospitalId path int true "Hospital ID"
// @Success 200 {object} map[string]interface{}
// @Router /hospitals/{hospitalId}/blood-stock [get]
func (s *Server) GetHospitalStock(c *fiber.Ctx) error {
	hospitalID, err := s.parseID(c, "hospitalId")
	if err != nil {
		return nil
	}
	stock, err := s.ledger.HospitalStock(c.UserContext(), hospitalID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"count": len(stock), "stock": stock})
}

// AddHospitalStock records units received by a hospital.
// @Summary Add hospital stock
// @Tags hospitals
// @Accept json
// @Produce json
// @Param hospitalId path int true "Hospital ID"
// @Param body body service.HospitalStockInput true "Stock"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /hospitals/{hospitalId}/blood-stock [post]
func (s *Server) AddHospitalStock(c *fiber.Ctx) error {
	hospitalID, err := s.parseID(c, "hospitalId")
	if err != nil {
		return nil
	}
	var in service.HospitalStockInput
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	stock, err := s.ledger.AddHospitalStock(c.UserContext(), hospitalID, in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Blood stock added successfully",
		"stock":   stock,
	})
}

// UpdateHospitalStock edits a stock row.
// @Summary Update hospital stock
// @Tags hospitals
// @Accept json
// @Produce json
// @Param stockId path int true "Stock ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /hospitals/blood-stock/{stockId} [put]
func (s *Server) UpdateHospitalStock(c *fiber.Ctx) error {
	id, err := s.parseID(c, "stockId")
	if err != nil {
		return nil
	}
	var in service.StockUpdateInput
	if err := bindBody(c, &in); err != nil {
		return nil
	}
	stock, err := s.ledger.UpdateStock(c.UserContext(), id, in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blood stock updated successfully", "stock": stock})
}

// DeleteHospitalStock removes a stock row.
// @Summary Remove hospital stock
// @Tags hospitals
// @Produce json
// @Param stockId path int true "Stock ID"
// @Success 200 {object} map[string]interface{}
// @Router /hospitals/blood-stock/{stockId} [delete]
func (s *Server) DeleteHospitalStock(c *fiber.Ctx) error {
	id, err := s.parseID(c, "stockId")
	if err != nil {
		return nil
	}
	if err := s.ledger.DeleteStock(c.UserContext(), id); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blood stock removed successfully"})
}

// GetHospitalDonations lists donations collected by a hospital.
// @Summary Hospital donations
// @Tags hospitals
// @Produce json
// @Param hospitalId path int true "Hospital ID"
// @Success 200 {object} map[string]interface{}
// @Router /hospitals/{hospitalId}/donations [get]
func (s *Server) GetHospitalDonations(c *fiber.Ctx) error {
	hospitalID, err := s.parseID(c, "hospitalId")
	if err != nil {
		return nil
	}
	donations, err := s.ledger.HospitalDonations(c.UserContext(), hospitalID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"count": len(donations), "donations": donations})
}

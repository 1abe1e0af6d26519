package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// ComplaintsHandler manages public and customer complaint endpoints.
type ComplaintsHandler struct {
	service   *service.ComplaintService
	validator *dto.Validator
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService, validator *dto.Validator) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService, validator: validator}
}

// Lookup GET /complaints?ticket=&email=.
func (h *ComplaintsHandler) Lookup(c *fiber.Ctx) error {
	id, err := optionalIntQuery(c, "ticket")
	if err != nil {
		return err
	}
	complaint, err := h.service.PublicLookup(c.UserContext(), id, c.Query("email"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(*complaint)})
}

// ListMine GET /user/complaints and GET /complaints/me.
func (h *ComplaintsHandler) ListMine(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	query, err := parseComplaintQuery(c)
	if err != nil {
		return err
	}
	complaints, err := h.service.ListForCustomer(c.UserContext(), user, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintList(complaints)})
}

// Create POST /complaints and POST /admin/complaints.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Validate(req); err != nil {
		return err
	}

	complaint, err := h.service.Create(c.UserContext(), user, service.ComplaintInput{
		Title:       req.Title,
		Description: req.Description,
		Customer: domain.Customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewComplaintResponse(*complaint)})
}

// Update PUT /complaints/:id and PUT /admin/complaints/:id.
func (h *ComplaintsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := complaintIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Validate(req); err != nil {
		return err
	}

	complaint, err := h.service.Update(c.UserContext(), user, id, req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(*complaint)})
}

// Delete DELETE /complaints/:id and DELETE /admin/complaints/:id.
func (h *ComplaintsHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := complaintIDParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), user, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

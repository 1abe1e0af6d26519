package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// AdminComplaintsHandler exposes admin-only complaint endpoints. Create,
// update and delete are shared with ComplaintsHandler; the service applies
// the admin rules from the caller's role.
type AdminComplaintsHandler struct {
	service *service.ComplaintService
}

// NewAdminComplaintsHandler constructs handler.
func NewAdminComplaintsHandler(complaintService *service.ComplaintService) *AdminComplaintsHandler {
	return &AdminComplaintsHandler{service: complaintService}
}

// List GET /admin/complaints and GET /admin/complaints/search.
func (h *AdminComplaintsHandler) List(c *fiber.Ctx) error {
	query, err := parseComplaintQuery(c)
	if err != nil {
		return err
	}
	complaints, err := h.service.Search(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintList(complaints)})
}

// Resolve PUT /admin/complaints/:id/resolve.
func (h *AdminComplaintsHandler) Resolve(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := complaintIDParam(c)
	if err != nil {
		return err
	}
	var req dto.ResolveComplaintRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	complaint, err := h.service.Resolve(c.UserContext(), user, id, service.ResolveInput{
		Status:  req.EffectiveStatus(),
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(*complaint)})
}

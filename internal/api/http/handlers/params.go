package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

func complaintIDParam(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid complaint id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

// optionalIntQuery returns nil when key is absent or blank.
func optionalIntQuery(c *fiber.Ctx, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(key+" must be an integer", map[string]any{key: raw})
	}
	return &v, nil
}

func optionalStringQuery(c *fiber.Ctx, key string) *string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	return &raw
}

func parseComplaintQuery(c *fiber.Ctx) (service.ComplaintQuery, error) {
	id, err := optionalIntQuery(c, "ticket")
	if err != nil {
		return service.ComplaintQuery{}, err
	}
	return service.ComplaintQuery{ID: id, Status: optionalStringQuery(c, "status")}, nil
}

func currentUser(c *fiber.Ctx) (domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.User{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

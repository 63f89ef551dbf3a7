package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/policy"
	"github.com/njbartlett/pfnext-backend/internal/services"
)

type PersonHandler struct {
	service personApplicationService
}

type personApplicationService interface {
	GetPerson(ctx context.Context, id int64) (*models.Person, error)
	ListPersons(ctx context.Context, roleFilter *policy.Role) ([]models.Person, error)
}

func NewPersonHandler(service *services.AuthService) *PersonHandler {
	return &PersonHandler{service: service}
}

// ListPersons returns every account, optionally narrowed to one role via
// the role query param.
func (h *PersonHandler) ListPersons(c *fiber.Ctx) error {
	var roleFilter *policy.Role
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role := policy.Role(raw)
		if !role.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown role"})
		}
		roleFilter = &role
	}

	persons, err := h.service.ListPersons(c.Context(), roleFilter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list people"})
	}
	return c.JSON(fiber.Map{"people": persons})
}

func (h *PersonHandler) GetPerson(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid person id"})
	}

	person, err := h.service.GetPerson(c.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrPersonNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch person"})
	}
	return c.JSON(fiber.Map{"person": person})
}

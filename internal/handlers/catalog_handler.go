package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/services"
)

type CatalogHandler struct {
	service catalogApplicationService
}

type catalogApplicationService interface {
	CreateSession(ctx context.Context, input services.SessionInput) (*models.Session, error)
	UpdateSession(ctx context.Context, sessionID int64, input services.SessionInput) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID int64) error
	ListSessions(ctx context.Context, from, to *time.Time) ([]models.SessionDetail, error)
	ListSessionsByDate(ctx context.Context, from, to *time.Time) ([]models.SessionDate, error)

	CreateSessionType(ctx context.Context, name string, requiresTrainer bool, cost int16) (*models.SessionType, error)
	ListSessionTypes(ctx context.Context) ([]models.SessionType, error)
	UpdateSessionType(ctx context.Context, st models.SessionType) (*models.SessionType, error)
	DeleteSessionType(ctx context.Context, id int32) error

	CreateLocation(ctx context.Context, name, address string) (*models.Location, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
	UpdateLocation(ctx context.Context, loc models.Location) (*models.Location, error)
	DeleteLocation(ctx context.Context, id int32) error
}

func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type sessionRequest struct {
	Datetime        string  `json:"datetime"`
	DurationMins    int     `json:"duration_mins"`
	SessionType     int32   `json:"session_type"`
	Location        *int32  `json:"location"`
	Trainer         *int64  `json:"trainer"`
	MaxBookingCount *int64  `json:"max_booking_count"`
	Notes           *string `json:"notes"`
	Cost            *int16  `json:"cost"`
}

type sessionTypeRequest struct {
	Name            string `json:"name"`
	RequiresTrainer bool   `json:"requires_trainer"`
	Cost            int16  `json:"cost"`
}

type locationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (h *CatalogHandler) ListSessions(c *fiber.Ctx) error {
	from, to, err := parseDateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	sessions, err := h.service.ListSessions(c.Context(), from, to)
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *CatalogHandler) ListSessionsByDate(c *fiber.Ctx) error {
	from, to, err := parseDateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	dates, err := h.service.ListSessionsByDate(c.Context(), from, to)
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"dates": dates})
}

func (h *CatalogHandler) CreateSession(c *fiber.Ctx) error {
	input, err := parseSessionRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	session, err := h.service.CreateSession(c.Context(), *input)
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *CatalogHandler) UpdateSession(c *fiber.Ctx) error {
	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	input, err := parseSessionRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	session, err := h.service.UpdateSession(c.Context(), sessionID, *input)
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *CatalogHandler) DeleteSession(c *fiber.Ctx) error {
	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	if err := h.service.DeleteSession(c.Context(), sessionID); err != nil {
		return mapCatalogError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) ListSessionTypes(c *fiber.Ctx) error {
	types, err := h.service.ListSessionTypes(c.Context())
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"session_types": types})
}

func (h *CatalogHandler) CreateSessionType(c *fiber.Ctx) error {
	var req sessionTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name must not be empty"})
	}

	st, err := h.service.CreateSessionType(c.Context(), strings.TrimSpace(req.Name), req.RequiresTrainer, req.Cost)
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session_type": st})
}

func (h *CatalogHandler) UpdateSessionType(c *fiber.Ctx) error {
	id, err := parseInt32Param(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session type id"})
	}

	var req sessionTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name must not be empty"})
	}

	st, err := h.service.UpdateSessionType(c.Context(), models.SessionType{
		ID:              id,
		Name:            strings.TrimSpace(req.Name),
		RequiresTrainer: req.RequiresTrainer,
		Cost:            req.Cost,
	})
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"session_type": st})
}

func (h *CatalogHandler) DeleteSessionType(c *fiber.Ctx) error {
	id, err := parseInt32Param(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session type id"})
	}

	if err := h.service.DeleteSessionType(c.Context(), id); err != nil {
		return mapCatalogError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) ListLocations(c *fiber.Ctx) error {
	locations, err := h.service.ListLocations(c.Context())
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"locations": locations})
}

func (h *CatalogHandler) CreateLocation(c *fiber.Ctx) error {
	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name must not be empty"})
	}

	location, err := h.service.CreateLocation(c.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Address))
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"location": location})
}

func (h *CatalogHandler) UpdateLocation(c *fiber.Ctx) error {
	id, err := parseInt32Param(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid location id"})
	}

	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name must not be empty"})
	}

	location, err := h.service.UpdateLocation(c.Context(), models.Location{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		return mapCatalogError(c, err)
	}
	return c.JSON(fiber.Map{"location": location})
}

func (h *CatalogHandler) DeleteLocation(c *fiber.Ctx) error {
	id, err := parseInt32Param(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid location id"})
	}

	if err := h.service.DeleteLocation(c.Context(), id); err != nil {
		return mapCatalogError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseSessionRequest(c *fiber.Ctx) (*services.SessionInput, error) {
	var req sessionRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.New("Invalid request body")
	}

	datetime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.Datetime))
	if err != nil {
		return nil, errors.New("datetime must be a valid RFC3339 timestamp")
	}

	return &services.SessionInput{
		Datetime:        datetime,
		DurationMins:    req.DurationMins,
		SessionTypeID:   req.SessionType,
		LocationID:      req.Location,
		TrainerID:       req.Trainer,
		MaxBookingCount: req.MaxBookingCount,
		Notes:           req.Notes,
		Cost:            req.Cost,
	}, nil
}

// parseDateRange reads optional from/to query params, accepting either a
// bare date or a full RFC3339 timestamp.
func parseDateRange(c *fiber.Ctx) (*time.Time, *time.Time, error) {
	parse := func(value string) (*time.Time, error) {
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, nil
		}
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return &t, nil
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, errors.New("dates must be YYYY-MM-DD or RFC3339 timestamps")
		}
		return &t, nil
	}

	from, err := parse(c.Query("from"))
	if err != nil {
		return nil, nil, err
	}
	to, err := parse(c.Query("to"))
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseInt32Param(c *fiber.Ctx, name string) (int32, error) {
	value, err := strconv.ParseInt(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(value), nil
}

func mapCatalogError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidCost),
		errors.Is(err, services.ErrInvalidDuration):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTrainerRequired),
		errors.Is(err, services.ErrNotATrainer):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnknownReference),
		errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateSessionType),
		errors.Is(err, services.ErrReferenceInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process catalog request"})
	}
}

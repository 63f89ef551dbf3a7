package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/njbartlett/pfnext-backend/internal/middleware"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/repository"
	"github.com/njbartlett/pfnext-backend/internal/services"
)

type BookingHandler struct {
	service bookingApplicationService
}

type bookingApplicationService interface {
	CreateBooking(ctx context.Context, actor models.Actor, personID, sessionID int64) (*models.Booking, error)
	CancelBooking(ctx context.Context, actor models.Actor, personID, sessionID int64) (*models.Booking, error)
	MarkAttended(ctx context.Context, actor models.Actor, sessionID, personID int64) (*models.Booking, error)
	ListBookings(ctx context.Context, actor models.Actor, filter repository.BookingListFilter, page, limit int) ([]models.BookingDetail, int, error)
	AttendanceStats(ctx context.Context, actor models.Actor, from, to *time.Time, sessionTypes []int32) ([]models.AttendanceStat, error)
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type bookingRequest struct {
	// PersonID defaults to the caller; booking for someone else needs the
	// admin role.
	PersonID  *int64 `json:"person_id"`
	SessionID int64  `json:"session_id"`
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req bookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	personID := actor.ID
	if req.PersonID != nil {
		personID = *req.PersonID
	}

	booking, err := h.service.CreateBooking(c.Context(), actor, personID, req.SessionID)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req bookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	personID := actor.ID
	if req.PersonID != nil {
		personID = *req.PersonID
	}

	booking, err := h.service.CancelBooking(c.Context(), actor, personID, req.SessionID)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

type attendedRequest struct {
	PersonID  int64 `json:"person_id"`
	SessionID int64 `json:"session_id"`
}

func (h *BookingHandler) MarkAttended(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req attendedRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	booking, err := h.service.MarkAttended(c.Context(), actor, req.SessionID, req.PersonID)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

// ListBookings returns enriched booking rows. Without a person_id filter
// it lists everything, which only admins may do.
func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	from, to, err := parseDateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	filter := repository.BookingListFilter{From: from, To: to}
	if raw := strings.TrimSpace(c.Query("person_id")); raw != "" {
		personID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid person_id"})
		}
		filter.PersonID = &personID
	}
	if raw := strings.TrimSpace(c.Query("session_id")); raw != "" {
		sessionID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session_id"})
		}
		filter.SessionID = &sessionID
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", defaultPageLimit)
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	bookings, total, err := h.service.ListBookings(c.Context(), actor, filter, page, limit)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{
		"bookings":   bookings,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *BookingHandler) AttendanceStats(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	from, to, err := parseDateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var sessionTypes []int32
	if raw := strings.TrimSpace(c.Query("session_types")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_types must be a comma-separated list of ids"})
			}
			sessionTypes = append(sessionTypes, int32(id))
		}
	}

	stats, err := h.service.AttendanceStats(c.Context(), actor, from, to, sessionTypes)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(fiber.Map{"stats": stats})
}

func mapBookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotAuthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrPersonNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyBooked),
		errors.Is(err, services.ErrSessionFull),
		errors.Is(err, services.ErrAlreadyMarked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSessionInPast),
		errors.Is(err, services.ErrTooLateToCancel),
		errors.Is(err, services.ErrSessionNotStarted):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}

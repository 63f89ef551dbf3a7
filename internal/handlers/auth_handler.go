package handlers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/njbartlett/pfnext-backend/internal/middleware"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/services"
	"github.com/njbartlett/pfnext-backend/pkg/utils"
)

type AuthHandler struct {
	auth      credentialService
	recovery  recoveryService
	jwtSecret string
	tokenTTL  time.Duration
	resetURL  string
}

type credentialService interface {
	Register(ctx context.Context, input services.RegisterInput) (*models.Person, error)
	VerifyPassword(ctx context.Context, email, candidate string) (*models.Person, error)
	ChangePassword(ctx context.Context, email, currentPassword, newPassword string) (*models.Person, error)
}

type recoveryService interface {
	Issue(ctx context.Context, email, resetURL string) error
	IssueForPerson(ctx context.Context, person *models.Person, resetURL string) error
	Redeem(ctx context.Context, email, tempPassword, newPassword string) (*models.Person, error)
}

func NewAuthHandler(
	auth *services.AuthService,
	recovery *services.RecoveryService,
	jwtSecret string,
	tokenTTL time.Duration,
	resetURL string,
) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		recovery:  recovery,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		resetURL:  resetURL,
	}
}

type registerRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type redeemRequest struct {
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
	NewPassword  string `json:"new_password"`
}

// Register creates a passwordless account and mails a temporary password.
// The person sets their permanent password through the reset flow.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	person, err := h.auth.Register(c.Context(), services.RegisterInput{
		Name:  strings.TrimSpace(req.Name),
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return mapAuthError(c, err)
	}

	// The account exists either way; a delivery failure only means the
	// person has to request another reset email.
	if err := h.recovery.IssueForPerson(c.Context(), person, h.resetURL); err != nil {
		log.Printf("failed to send welcome temp password to %s: %v", person.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"person": person})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	person, err := h.auth.VerifyPassword(c.Context(), req.Email, req.Password)
	if err != nil {
		return mapAuthError(c, err)
	}

	return h.respondWithToken(c, person)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	person, err := h.auth.ChangePassword(c.Context(), req.Email, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return mapAuthError(c, err)
	}

	return h.respondWithToken(c, person)
}

// RequestPasswordReset mails a temporary password. Unknown addresses get
// the same response, so the endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	err := h.recovery.Issue(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)), h.resetURL)
	switch {
	case err == nil, errors.Is(err, services.ErrPersonNotFound):
		return c.JSON(fiber.Map{"message": "If the account exists, a reset email has been sent"})
	case errors.Is(err, services.ErrResendTooSoon):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send reset email"})
	}
}

// ResetPassword exchanges a temporary password for a permanent one and
// logs the person in.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	person, err := h.recovery.Redeem(
		c.Context(),
		strings.ToLower(strings.TrimSpace(req.Email)),
		req.TempPassword,
		req.NewPassword,
	)
	if err != nil {
		return mapAuthError(c, err)
	}

	return h.respondWithToken(c, person)
}

// Validate confirms the bearer token and echoes the identity it carries.
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	return c.JSON(fiber.Map{
		"id":    actor.ID,
		"email": actor.Email,
		"roles": actor.Roles.Names(),
	})
}

func (h *AuthHandler) respondWithToken(c *fiber.Ctx, person *models.Person) error {
	token, err := utils.GenerateToken(person.ID, person.Email, person.Roles.Names(), h.jwtSecret, h.tokenTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}
	return c.JSON(fiber.Map{
		"token":  token,
		"person": person,
	})
}

func mapAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidName),
		errors.Is(err, services.ErrInvalidPhone),
		errors.Is(err, services.ErrUnsuitablePassword):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateEmail):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrRecoveryMismatch),
		errors.Is(err, services.ErrPersonNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": services.ErrInvalidCredentials.Error()})
	case errors.Is(err, services.ErrPasswordResetRequired),
		errors.Is(err, services.ErrRecoveryExpired):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNoSuchRecovery):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}

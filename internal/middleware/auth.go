package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/policy"
	"github.com/njbartlett/pfnext-backend/pkg/utils"
)

const actorKey = "actor"

// AuthRequired validates the bearer token and stores the resulting Actor
// in the request locals for handlers to pick up via ActorFromContext.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		tokenString := parts[1]
		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(actorKey, models.Actor{
			ID:    claims.UserID,
			Email: claims.Email,
			Roles: policy.FromNames(claims.Roles),
		})

		return c.Next()
	}
}

// RoleRequired gates a route group on the given action. It must run after
// AuthRequired.
func RoleRequired(action policy.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFromContext(c)
		if !policy.Authorized(actor.Roles, action) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions",
			})
		}
		return c.Next()
	}
}

// ActorFromContext returns the Actor stored by AuthRequired; the zero
// Actor if the route is not authenticated.
func ActorFromContext(c *fiber.Ctx) models.Actor {
	actor, _ := c.Locals(actorKey).(models.Actor)
	return actor
}

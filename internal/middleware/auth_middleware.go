package middleware

import (
	"strings"
	"time"

	"authapi/internal/models"
	"authapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	localsUserKey  = "auth_user"
	localsTokenKey = "auth_token"
)

// AuthRequired is a Fiber middleware that resolves the bearer token to a user
// once at the boundary and stores both on the request context.
func AuthRequired(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Token not provided", "Bearer token is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthorized(c, "Invalid token", "Authorization header format must be 'Bearer <token>'")
		}

		user, token, err := tokens.Resolve(parts[1])
		if err != nil {
			return unauthorized(c, "Invalid token", models.ErrInvalidToken.Error())
		}

		c.Locals(localsUserKey, user)
		c.Locals(localsTokenKey, token)
		return c.Next()
	}
}

// CurrentUser returns the identity resolved by AuthRequired.
func CurrentUser(c *fiber.Ctx) (*models.User, *models.AccessToken, bool) {
	user, ok := c.Locals(localsUserKey).(*models.User)
	if !ok {
		return nil, nil, false
	}
	token, ok := c.Locals(localsTokenKey).(*models.AccessToken)
	if !ok {
		return nil, nil, false
	}
	return user, token, true
}

func unauthorized(c *fiber.Ctx, message, detail string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    fiber.StatusUnauthorized,
			"message": message,
			"errors":  fiber.Map{"token": detail},
		},
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
}

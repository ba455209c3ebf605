package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"authapi/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Every response uses the same envelope: {success, data|error, created_at}.
// Errors carry a status code, a message, and field-keyed detail messages.

func success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success":    true,
		"data":       data,
		"error":      nil,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func fail(c *fiber.Ctx, status int, message string, fieldErrors map[string]string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    status,
			"message": message,
			"errors":  fieldErrors,
		},
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// validationFail turns validator.ValidationErrors into a 422 with a
// field-keyed error map.
func validationFail(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return fail(c, fiber.StatusUnprocessableEntity, "Validation error", errorMessages)
}

// serviceError maps the typed business errors onto the envelope. Anything
// unrecognized is logged and reported as a generic server error.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrEmailTaken):
		return fail(c, fiber.StatusUnprocessableEntity, "Validation error", map[string]string{
			"email": models.ErrEmailTaken.Error(),
		})
	case errors.Is(err, models.ErrUsernameTaken):
		return fail(c, fiber.StatusUnprocessableEntity, "Validation error", map[string]string{
			"username": models.ErrUsernameTaken.Error(),
		})
	case errors.Is(err, models.ErrCodeInvalidOrExpired):
		return fail(c, fiber.StatusUnprocessableEntity, "Invalid code", map[string]string{
			"code": models.ErrCodeInvalidOrExpired.Error(),
		})
	case errors.Is(err, models.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials", map[string]string{
			"email": "These credentials do not match our records",
		})
	case errors.Is(err, models.ErrInvalidToken):
		return fail(c, fiber.StatusUnauthorized, "Invalid token", map[string]string{
			"token": models.ErrInvalidToken.Error(),
		})
	case errors.Is(err, models.ErrUserNotPending):
		return fail(c, fiber.StatusNotFound, "Invalid user", map[string]string{
			"email": models.ErrUserNotPending.Error(),
		})
	case errors.Is(err, models.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "Not found", map[string]string{
			"email": models.ErrUserNotFound.Error(),
		})
	case errors.Is(err, models.ErrPasswordMismatch):
		return fail(c, fiber.StatusUnprocessableEntity, "Invalid password", map[string]string{
			"oldPassword": models.ErrPasswordMismatch.Error(),
		})
	case errors.Is(err, models.ErrEmailMismatch):
		return fail(c, fiber.StatusUnprocessableEntity, "Invalid email", map[string]string{
			"oldEmail": models.ErrEmailMismatch.Error(),
		})
	default:
		log.Printf("Unhandled service error on %s: %v", c.Path(), err)
		return fail(c, fiber.StatusInternalServerError, "Server error", nil)
	}
}

// profilePayload shapes the profile section embedded in session responses.
// Pending users have no profile row yet; every field stays null.
func profilePayload(profile *models.UserProfile) fiber.Map {
	if profile == nil {
		return fiber.Map{
			"firstName":  nil,
			"lastName":   nil,
			"avatar":     nil,
			"totalCoins": nil,
		}
	}
	return fiber.Map{
		"firstName":  profile.FirstName,
		"lastName":   profile.LastName,
		"avatar":     profile.AvatarURL,
		"totalCoins": profile.CurrentCoins,
	}
}

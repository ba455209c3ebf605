package handlers

import (
	"log"

	"authapi/internal/middleware"
	"authapi/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// EmailHandler handles the verified email-change flow.
type EmailHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewEmailHandler creates a new EmailHandler.
func NewEmailHandler(authService *services.AuthService) *EmailHandler {
	return &EmailHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the email-change routes under /email/change. Both
// require authentication.
func (h *EmailHandler) RegisterRoutes(router fiber.Router, authRequired, changeLimit fiber.Handler) {
	emailRoutes := router.Group("/email/change", authRequired)
	emailRoutes.Post("/request", changeLimit, h.HandleChangeRequest)
	emailRoutes.Post("/verify", changeLimit, h.HandleChangeVerify)
}

// ChangeEmailRequest represents the request body for an email-change request.
type ChangeEmailRequest struct {
	OldEmail string `json:"oldEmail" validate:"required,email"`
	NewEmail string `json:"newEmail" validate:"required,email,nefield=OldEmail"`
}

// HandleChangeRequest issues an email_change code addressed to the new email.
func (h *EmailHandler) HandleChangeRequest(c *fiber.Ctx) error {
	user, _, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Invalid token", nil)
	}

	var req ChangeEmailRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing email-change request body: %v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFail(c, err)
	}

	verification, err := h.authService.RequestEmailChange(user, req.OldEmail, req.NewEmail)
	if err != nil {
		log.Printf("Error requesting email change for user %s: %v", user.ID, err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"message":    "Verification code sent to new email",
		"expires_at": verification.ExpiresAt,
	})
}

// VerifyEmailChangeRequest represents the request body for email-change verification.
type VerifyEmailChangeRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// HandleChangeVerify consumes the code and switches the account to the new
// address.
func (h *EmailHandler) HandleChangeVerify(c *fiber.Ctx) error {
	user, _, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Invalid token", nil)
	}

	var req VerifyEmailChangeRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing email-change verify body: %v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFail(c, err)
	}

	updated, err := h.authService.VerifyEmailChange(user, req.Code)
	if err != nil {
		log.Printf("Error verifying email change for user %s: %v", user.ID, err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"message": "Email changed successfully",
		"email":   updated.Email,
	})
}

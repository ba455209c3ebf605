package handlers

import (
	"log"

	"authapi/internal/middleware"
	"authapi/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PasswordHandler handles the two-step password reset and the authenticated
// password change.
type PasswordHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewPasswordHandler creates a new PasswordHandler.
func NewPasswordHandler(authService *services.AuthService) *PasswordHandler {
	return &PasswordHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the password routes under /password.
func (h *PasswordHandler) RegisterRoutes(router fiber.Router, authRequired, codeLimit fiber.Handler) {
	passwordRoutes := router.Group("/password")
	passwordRoutes.Post("/reset-request", codeLimit, h.HandleResetRequest)
	passwordRoutes.Post("/verify-code", codeLimit, h.HandleVerifyCode)
	passwordRoutes.Post("/reset", h.HandleReset)
	passwordRoutes.Post("/change", authRequired, h.HandleChange)
}

// ResetRequestRequest represents the request body for a password reset request.
type ResetRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleResetRequest issues a password_reset code. The response is identical
// whether or not the address has an account, so it leaks nothing.
func (h *PasswordHandler) HandleResetRequest(c *fiber.Ctx) error {
	var req ResetRequestRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing reset-request body: %v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFail(c, err)
	}

	if _, err := h.authService.RequestPasswordReset(req.Email); err != nil {
		log.Printf("Error requesting password reset for %s: %v", req.Email, err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"message": "If the email exists, a password reset code has been sent",
	})
}

// VerifyCodeRequest represents the request body for reset-code verification.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// HandleVerifyCode checks a reset code without consuming it and returns the
// capability token for the final reset step.
func (h *PasswordHandler) HandleVerifyCode(c *fiber.Ctx) error {
	var req VerifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing verify-code body: %v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFail(c, err)
	}

	verification, err := h.authService.VerifyResetCode(req.Email, req.Code)
	if err != nil {
		log.Printf("Error verifying reset code for %s: %v", req.Email, err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"message":     "Code verified successfully",
		"reset_token": verification.ID,
	})
}

// ResetRequest represents the request body for the final reset step.
type ResetRequest struct {
	ResetToken      string `json:"reset_token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// HandleReset consumes the capability token, sets the new password and kills
// every open session.
func (h *PasswordHandler) HandleReset(c *fiber.Ctx) error {
	var req ResetRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing reset body: %v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFail(c, err)
	}

	if err := h.authService.ResetPassword(req.ResetToken, req.NewPassword); err != nil {
		log.Printf("Error resetting password: %v", err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"message": "Password has been reset successfully",
	})
}

// ChangeRequest represents the request body for an authenticated password change.
type ChangeRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
}

// HandleChange swaps the password after re-checking the current one.
func (h *PasswordHandler) HandleChange(c *fiber.Ctx) error {
	user, _, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Invalid token", nil)
	}

	var req ChangeRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing change-password body: %v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFail(c, err)
	}

	if err := h.authService.ChangePassword(user, req.OldPassword, req.NewPassword); err != nil {
		log.Printf("Error changing password for user %s: %v", user.ID, err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"message": "Password changed successfully",
	})
}

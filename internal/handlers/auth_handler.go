package handlers

import (
	"log"

	"authapi/internal/middleware"
	"authapi/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles registration, email verification, login and logout.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the account routes. The limiter middlewares come
// from the caller so tests can run without throttling.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired, loginLimit, verifyLimit fiber.Handler) {
	router.Post("/register", h.HandleRegister)
	router.Post("/verify-email", verifyLimit, h.HandleVerifyEmail)
	router.Post("/login", loginLimit, h.HandleLogin)
	router.Post("/logout", authRequired, h.HandleLogout)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

// HandleRegister creates a pending account and emails a verification code.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFail(c, err)
	}

	verification, err := h.authService.Register(req.Email, req.Username, req.Password)
	if err != nil {
		log.Printf("Error registering user %s: %v", req.Email, err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"message":    "Registration successful. Please verify your email",
		"email":      req.Email,
		"expires_at": verification.ExpiresAt,
	})
}

// VerifyEmailRequest represents the request body for email verification.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// HandleVerifyEmail consumes the registration code, activates the account and
// returns the first access token.
func (h *AuthHandler) HandleVerifyEmail(c *fiber.Ctx) error {
	var req VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing verify-email request body: %v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFail(c, err)
	}

	result, err := h.authService.VerifyEmail(req.Email, req.Code)
	if err != nil {
		log.Printf("Error verifying email %s: %v", req.Email, err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"id":       result.User.ID,
		"email":    result.User.Email,
		"username": result.User.Username,
		"profile":  profilePayload(result.Profile),
		"token":    fiber.Map{"accessToken": result.Token},
		"message":  "Email verified successfully",
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates a user and rotates their slot token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return fail(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		// Malformed credentials surface the same generic message the
		// login failure path uses.
		return fail(c, fiber.StatusUnprocessableEntity, "Invalid credentials", map[string]string{
			"email": "These credentials do not match our records",
		})
	}

	result, err := h.authService.Login(req.Email, req.Username, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Email, err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"id":       result.User.ID,
		"email":    result.User.Email,
		"username": result.User.Username,
		"profile":  profilePayload(result.Profile),
		"token":    fiber.Map{"accessToken": result.Token},
	})
}

// HandleLogout retires the account and revokes the presented token.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	user, token, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Invalid token", nil)
	}

	result, err := h.authService.Logout(user, token)
	if err != nil {
		log.Printf("Error during logout for user %s: %v", user.ID, err)
		return serviceError(c, err)
	}

	return success(c, fiber.StatusOK, fiber.Map{
		"id":       result.User.ID,
		"email":    result.User.Email,
		"username": result.User.Username,
		"profile":  profilePayload(result.Profile),
		"status":   result.User.Status,
		"message":  "Successfully logged out",
	})
}

package server

import (
	"atomvideo/internal/auth"
	"atomvideo/internal/models"
	"atomvideo/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account and send a verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body signupRequest true "Signup request"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate with email and password and return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// meResponse is the caller's account plus how they can sign in.
type meResponse struct {
	*models.User
	Providers   []string `json:"providers"`
	HasPassword bool     `json:"has_password"`
}

// GetMe handles GET /api/auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} meResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetAccount(c.UserContext(), currentUserID(c))
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("User no longer exists"))
		}
		return respondError(c, err)
	}
	return c.JSON(meResponse{
		User:        user,
		Providers:   user.LinkedProviders(),
		HasPassword: user.HasPassword(),
	})
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the current session token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("claims").(*auth.Claims)
	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// VerifyEmail handles GET /api/auth/verify?token=
// @Summary Verify email
// @Tags auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/verify [get]
func (s *Server) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("token is required"))
	}
	if err := s.authService.VerifyEmail(c.UserContext(), token); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Email verified"})
}

// ResendVerification handles POST /api/auth/resend-verification
// @Summary Resend verification email
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 202 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /auth/resend-verification [post]
func (s *Server) ResendVerification(c *fiber.Ctx) error {
	if err := s.authService.ResendVerification(c.UserContext(), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Verification email sent"})
}

// ForgotPassword handles POST /api/auth/forgot-password.
// The answer is the same whether or not the address has an account.
// @Summary Request a password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body forgotPasswordRequest true "Account email"
// @Success 202 {object} object{message=string}
// @Router /auth/forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := s.authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "If that address has an account, a reset link is on its way",
	})
}

// ResetPassword handles POST /api/auth/reset-password
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body resetPasswordRequest true "Reset token and new password"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/reset-password [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := s.authService.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	apperrors "storefront/internal/errors"
	"storefront/internal/gate"
	"storefront/internal/model"
	"storefront/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService  service.AuthService
	secureCookie bool
}

// NewAuthHandler creates a new auth handler. secureCookie marks the session
// cookie Secure, which production deployments behind TLS need.
func NewAuthHandler(authService service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookie: secureCookie}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// FederatedRequest carries an identity assertion from the OAuth bridge.
type FederatedRequest struct {
	Assertion string `json:"assertion" validate:"required"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Message string           `json:"message"`
	User    model.PublicUser `json:"user"`
}

// SessionResponse is returned after a successful sign-in.
type SessionResponse struct {
	Message string           `json:"message"`
	User    model.PublicUser `json:"user"`
	Token   string           `json:"token"`
}

// MessageResponse is a bare message body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register godoc
// @Summary Register a new customer
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "email" {
			return apperrors.Validation("Invalid email address")
		}
		return apperrors.Validation("Name, email, and password are required")
	}

	user, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, RegisterResponse{
		Message: "User created successfully",
		User:    user.Public(),
	})
}

// Login godoc
// @Summary Sign in with email and password
// @Description Sets the auth-token cookie and also returns the token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("Email and password are required")
	}

	session, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.startSession(c, session)
}

// Federated godoc
// @Summary Sign in with a federated identity assertion
// @Description Accepts an HS256 assertion signed by the OAuth bridge. Creates the user on first sign-in.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body FederatedRequest true "Identity assertion"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/federated [post]
func (h *AuthHandler) Federated(c echo.Context) error {
	if !h.authService.FederationEnabled() {
		return apperrors.NotFound("Federated sign-in is not enabled")
	}

	var req FederatedRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("Assertion is required")
	}

	session, err := h.authService.SignInFederated(c.Request().Context(), req.Assertion)
	if err != nil {
		return err
	}
	return h.startSession(c, session)
}

// Logout godoc
// @Summary Sign out
// @Description Clears the auth-token cookie. Tokens are not revoked server-side.
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(auth.ExpiredSessionCookie(h.secureCookie))
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security CookieAuth
// @Success 200 {object} model.PublicUser
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := gate.ClaimsFrom(c)
	if !ok {
		return apperrors.Unauthenticated("No authentication token")
	}

	user, err := h.authService.Me(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user.Public())
}

func (h *AuthHandler) startSession(c echo.Context, session *service.Session) error {
	c.SetCookie(auth.NewSessionCookie(session.Token, h.secureCookie))
	return c.JSON(http.StatusOK, SessionResponse{
		Message: "Login successful",
		User:    session.User.Public(),
		Token:   session.Token,
	})
}

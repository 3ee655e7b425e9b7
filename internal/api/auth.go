package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/internal/service"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/middleware"
)

// SignupNotice is returned on sign-up; the account is not signed in
const SignupNotice = "Please check your email to verify your account."

// AuthHandler serves the identity endpoints. Errors are {"error": "<message>"}
// with a message fit to show the user as-is.
type AuthHandler struct {
	users  *service.UserService
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// bindMessage turns a binding failure into a user-facing sentence
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request format"
	}

	fe := verrs[0]
	switch {
	case fe.Field() == "Email" && fe.Tag() == "required":
		return "Email is required"
	case fe.Field() == "Email":
		return "Unable to validate email address: invalid format"
	case fe.Field() == "Password" && fe.Tag() == "min":
		return "Password should be at least 6 characters"
	case fe.Field() == "Password":
		return "Password is required"
	default:
		return "Invalid request format"
	}
}

// Signup handles user registration
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for signup", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}

	user, err := h.users.Signup(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Error creating user", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user account"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":    user.ToResponse(),
		"message": SignupNotice,
	})
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for login", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}

	user, token, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrEmailNotConfirmed):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Error during login", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		}
		return
	}

	h.logger.Info("User logged in successfully", "userID", user.ID, "role", user.Role)

	c.JSON(http.StatusOK, gin.H{
		"user":  user.ToResponse(),
		"token": token,
	})
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			// the account behind a still-valid token is gone
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Error getting user", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}

// Logout revokes the bearer token used for this request
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.users.Logout(c.Request.Context(), claims); err != nil {
		h.logger.Error("Error during logout", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign out"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Verify consumes the link sent after sign-up
func (h *AuthHandler) Verify(c *gin.Context) {
	user, err := h.users.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVerificationToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Error verifying email", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify email"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user.ToResponse(),
		"message": "Email verified. You can now sign in.",
	})
}

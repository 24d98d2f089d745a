// Package handlers contains HTTP request handlers for the auth service.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prian3003/gotchu-auth/internal/middleware"
	"github.com/prian3003/gotchu-auth/internal/response"
	"github.com/prian3003/gotchu-auth/internal/service"
	log "github.com/sirupsen/logrus"
)

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents the registration request payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request payload.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Register godoc
// @Summary Register a new account
// @Description Create an account and start an authenticated session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "MISSING_FIELDS", "username, email and password are required")
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if username == "" || email == "" || req.Password == "" {
		response.Error(c, http.StatusBadRequest, "MISSING_FIELDS", "username, email and password are required")
		return
	}
	if !validUsername(username) {
		response.Error(c, http.StatusBadRequest, "INVALID_USERNAME", "username must be at least 3 characters of letters, numbers or underscores")
		return
	}
	if !validEmail(email) {
		response.Error(c, http.StatusBadRequest, "INVALID_EMAIL", "a valid email address is required")
		return
	}
	if !validPassword(req.Password) {
		response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD", "password must be at least 8 characters")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), username, email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameExists):
			response.Error(c, http.StatusConflict, "USER_EXISTS", service.ErrUsernameExists.Error())
		case errors.Is(err, service.ErrEmailExists):
			response.Error(c, http.StatusConflict, "USER_EXISTS", service.ErrEmailExists.Error())
		default:
			log.WithError(err).Error("registration failed")
			response.Error(c, http.StatusInternalServerError, "REGISTRATION_ERROR", "registration failed")
		}
		return
	}

	// A successful registration should not leave its own attempts counted.
	if err := h.authService.ClearAuthRateLimit(c.Request.Context(), username); err != nil {
		log.WithError(err).Warn("failed to clear auth rate limit")
	}

	response.Success(c, http.StatusCreated, gin.H{
		"user":       result.User,
		"session_id": result.SessionID,
		"token":      result.Token,
	})
}

// Login godoc
// @Summary Log in
// @Description Authenticate by username or email and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "MISSING_CREDENTIALS", "identifier and password are required")
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	if identifier == "" || req.Password == "" {
		response.Error(c, http.StatusBadRequest, "MISSING_CREDENTIALS", "identifier and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
			return
		}
		log.WithError(err).Error("login failed")
		response.Error(c, http.StatusInternalServerError, "LOGIN_ERROR", "login failed")
		return
	}

	if err := h.authService.ClearAuthRateLimit(c.Request.Context(), identifier); err != nil {
		log.WithError(err).Warn("failed to clear auth rate limit")
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":       result.User,
		"session_id": result.SessionID,
		"token":      result.Token,
	})
}

// Logout godoc
// @Summary Log out
// @Description Destroy the current session
// @Tags auth
// @Produce json
// @Param X-Session-ID header string false "Session identifier"
// @Success 200 {object} response.Envelope
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := strings.TrimSpace(c.GetHeader(middleware.SessionHeader))
	if sessionID == "" {
		// Fall back to a session resolved by OptionalAuth from a bearer token
		sessionID = c.GetString(middleware.ContextSessionIDKey)
	}

	if sessionID != "" {
		if err := h.authService.DestroySession(c.Request.Context(), sessionID); err != nil {
			log.WithError(err).Error("logout failed")
			response.Error(c, http.StatusInternalServerError, "LOGOUT_ERROR", "logout failed")
			return
		}
	}

	response.Success(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Me godoc
// @Summary Current user
// @Description Return the authenticated user and session
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "authentication required")
		return
	}
	session, _ := middleware.CurrentSession(c)

	response.Success(c, http.StatusOK, gin.H{
		"user":    user,
		"session": session,
	})
}

// Refresh godoc
// @Summary Refresh bearer token
// @Description Issue a fresh token for a live session and slide its expiry
// @Tags auth
// @Produce json
// @Param X-Session-ID header string true "Session identifier"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	sessionID := strings.TrimSpace(c.GetHeader(middleware.SessionHeader))
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, "MISSING_SESSION_ID", "X-Session-ID header is required")
		return
	}

	session, err := h.authService.ValidateSession(c.Request.Context(), sessionID)
	if err != nil {
		log.WithError(err).Error("refresh failed")
		response.Error(c, http.StatusInternalServerError, "SERVER_ERROR", "token refresh failed")
		return
	}
	if session == nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_SESSION", "session expired or revoked")
		return
	}

	token, err := h.authService.GenerateToken(session.UserID, sessionID)
	if err != nil {
		log.WithError(err).Error("token generation failed")
		response.Error(c, http.StatusInternalServerError, "SERVER_ERROR", "token refresh failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"session": session,
	})
}

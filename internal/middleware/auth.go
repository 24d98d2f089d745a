// Package middleware provides HTTP middleware for the auth service.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prian3003/gotchu-auth/internal/models"
	"github.com/prian3003/gotchu-auth/internal/repository"
	"github.com/prian3003/gotchu-auth/internal/response"
	"github.com/prian3003/gotchu-auth/internal/service"
	log "github.com/sirupsen/logrus"
)

// Context keys populated by the auth middleware.
const (
	ContextUserKey      = "user"
	ContextSessionKey   = "session"
	ContextSessionIDKey = "session_id"

	// SessionHeader is checked before the Authorization header when a
	// client sends both.
	SessionHeader = "X-Session-ID"
)

// AuthMiddleware resolves request caller identity from a session id or a
// bearer token.
type AuthMiddleware struct {
	authService service.AuthService
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth rejects the request unless it resolves to a live session
// backed by an active user. On success the request context carries the
// user snapshot, session record and session id.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, session, err := m.resolve(c)
		if err != nil {
			// A store outage must never masquerade as an auth decision.
			log.WithError(err).Error("identity resolution failed")
			response.AbortError(c, http.StatusInternalServerError, "SERVER_ERROR", "authentication check failed")
			return
		}
		if session == nil {
			response.AbortError(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "authentication required")
			return
		}

		user, err := m.lookupActiveUser(c, session.UserID)
		if err != nil {
			log.WithError(err).Error("user lookup failed")
			response.AbortError(c, http.StatusInternalServerError, "SERVER_ERROR", "authentication check failed")
			return
		}
		if user == nil {
			response.AbortError(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "authentication required")
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextSessionKey, session)
		c.Set(ContextSessionIDKey, sessionID)
		c.Next()
	}
}

// OptionalAuth performs the same resolution as RequireAuth but any failure,
// including store outages, yields an anonymous context instead of an error.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, session, err := m.resolve(c)
		if err != nil || session == nil {
			c.Next()
			return
		}

		user, err := m.lookupActiveUser(c, session.UserID)
		if err != nil || user == nil {
			c.Next()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextSessionKey, session)
		c.Set(ContextSessionIDKey, sessionID)
		c.Next()
	}
}

// RequireAdmin gates on admin-tier plans. Must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.requirePlan(models.IsAdminPlan, "admin access required")
}

// RequirePremium gates on paid-tier plans. Must run after RequireAuth.
func (m *AuthMiddleware) RequirePremium() gin.HandlerFunc {
	return m.requirePlan(models.IsPremiumPlan, "premium plan required")
}

func (m *AuthMiddleware) requirePlan(allowed func(string) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.AbortError(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "authentication required")
			return
		}
		if !allowed(user.Plan) {
			response.AbortError(c, http.StatusForbidden, "INSUFFICIENT_PLAN", message)
			return
		}
		c.Next()
	}
}

// resolve finds a live session for the request. The X-Session-ID header is
// tried first; a bearer token is only consulted when the header resolves to
// nothing. A ("", nil, nil) return means unauthenticated; a non-nil error
// means the store could not answer.
func (m *AuthMiddleware) resolve(c *gin.Context) (string, *models.Session, error) {
	ctx := c.Request.Context()

	if sessionID := strings.TrimSpace(c.GetHeader(SessionHeader)); sessionID != "" {
		session, err := m.authService.ValidateSession(ctx, sessionID)
		if err != nil {
			return "", nil, err
		}
		if session != nil {
			return sessionID, session, nil
		}
	}

	token := bearerToken(c)
	if token == "" {
		return "", nil, nil
	}

	claims, err := m.authService.VerifyToken(token)
	if err != nil {
		// Bad tokens are an auth failure, not a server failure.
		return "", nil, nil
	}

	session, err := m.authService.ValidateSession(ctx, claims.SessionID)
	if err != nil {
		return "", nil, err
	}
	if session == nil || session.UserID != claims.UserID {
		return "", nil, nil
	}
	return claims.SessionID, session, nil
}

// lookupActiveUser returns the user snapshot, or nil when the account is
// gone or deactivated. Store outages surface as errors.
func (m *AuthMiddleware) lookupActiveUser(c *gin.Context, userID int64) (*models.UserSnapshot, error) {
	user, err := m.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}
	return user, nil
}

// CurrentUser returns the authenticated user snapshot from the request
// context, if any.
func CurrentUser(c *gin.Context) (*models.UserSnapshot, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.UserSnapshot)
	return user, ok
}

// CurrentSession returns the resolved session record from the request
// context, if any.
func CurrentSession(c *gin.Context) (*models.Session, bool) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*models.Session)
	return session, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

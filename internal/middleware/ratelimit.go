package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prian3003/gotchu-auth/internal/response"
	"github.com/prian3003/gotchu-auth/internal/service"
)

// maxBodyPeek bounds how much of a request body the limiter will read while
// extracting an identifier.
const maxBodyPeek = 64 * 1024

// RateLimitAuth throttles authentication attempts per identifier before the
// handler runs. The identifier comes from the request body (identifier,
// username or email, in that order) and falls back to the client IP. Rate
// limit metadata is attached to the response either way.
func RateLimitAuth(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := bodyIdentifier(c)
		if identifier == "" {
			identifier = c.ClientIP()
		}

		result, err := authService.CheckAuthRateLimit(c.Request.Context(), identifier)
		if result != nil {
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
			c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		}

		var rateErr *service.RateLimitError
		if errors.As(err, &rateErr) {
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(rateErr.RetryAfter).Unix()))
			c.Header("Retry-After", fmt.Sprintf("%d", int(rateErr.RetryAfter.Seconds())))
			response.AbortError(c, http.StatusTooManyRequests, "RATE_LIMITED", rateErr.Error())
			return
		}

		c.Next()
	}
}

// bodyIdentifier peeks at the JSON body for a throttling key and restores
// the body so the handler can bind it again.
func bodyIdentifier(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyPeek))
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var body struct {
		Identifier string `json:"identifier"`
		Username   string `json:"username"`
		Email      string `json:"email"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	switch {
	case body.Identifier != "":
		return body.Identifier
	case body.Username != "":
		return body.Username
	default:
		return body.Email
	}
}

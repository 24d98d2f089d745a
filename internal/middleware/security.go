package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prian3003/gotchu-auth/internal/response"
)

// Security validates browser origins and answers CORS preflight. Because the
// API accepts credential headers, state-changing requests from browsers must
// carry an allow-listed Origin (or Referer); requests without either header,
// such as server-to-server calls, pass through.
func Security(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[normalizeOrigin(origin)] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[normalizeOrigin(origin)] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Session-ID")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		// Cross-site write protection for the state-changing methods
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		if origin != "" {
			if !allowed[normalizeOrigin(origin)] {
				response.AbortError(c, http.StatusForbidden, "INVALID_ORIGIN", "origin not allowed")
				return
			}
			c.Next()
			return
		}

		if referer := c.GetHeader("Referer"); referer != "" {
			if !allowed[normalizeOrigin(refererOrigin(referer))] {
				response.AbortError(c, http.StatusForbidden, "INVALID_ORIGIN", "referer not allowed")
				return
			}
		}

		c.Next()
	}
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(origin), "/")
}

// refererOrigin reduces a referer URL to scheme://host.
func refererOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

// Package response defines the JSON envelope shared by handlers and
// middleware.
package response

import "github.com/gin-gonic/gin"

// Envelope is the top-level shape of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError carries a stable machine-readable code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes a success envelope.
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Error writes a failure envelope.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{Success: false, Error: &APIError{Code: code, Message: message}})
}

// AbortError writes a failure envelope and stops the handler chain.
func AbortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &APIError{Code: code, Message: message}})
}

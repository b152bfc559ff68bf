package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an API error with the HTTP status it maps to.
// Handlers convert every failure to one of these at their boundary;
// anything else becomes a 500.
type Error struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// NewValidationError creates a 400 error for missing or malformed fields
func NewValidationError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// NewUnauthorized creates a 401 error for requests without a session
func NewUnauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// NewForbidden creates a 403 error for authenticated users lacking a role
func NewForbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

// NewNotFound creates a 404 error for lookup misses
func NewNotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// respondError writes the JSON error shape for err. Unrecognized errors
// are masked as a generic 500; the caller is expected to have logged them.
func respondError(c *gin.Context, err error) {
	if apiErr, ok := err.(*Error); ok {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

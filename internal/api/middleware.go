package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/civichub/civichub/internal/auth"
	"github.com/civichub/civichub/pkg/telemetry"
)

// Context and header keys used by the middleware chain
const (
	ContextKeySession = "session"
	SessionCookieName = "civichub_session"
	HeaderRequestID   = "X-Request-ID"
)

// sessionToken extracts the raw session token from the request:
// Authorization bearer header first, session cookie second.
func sessionToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

// RequireSession rejects requests that do not carry a valid session
func RequireSession(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		session, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(ContextKeySession, session)
		c.Next()
	}
}

// OptionalSession attaches a session when a valid token is present and
// lets anonymous requests through. Used where membership context is
// computed for the response but not required.
func OptionalSession(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := sessionToken(c); token != "" {
			if session, err := verifier.Verify(token); err == nil {
				c.Set(ContextKeySession, session)
			}
		}
		c.Next()
	}
}

// CurrentSession returns the verified session, or nil for anonymous requests
func CurrentSession(c *gin.Context) *auth.Session {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	session, ok := val.(*auth.Session)
	if !ok {
		return nil
	}
	return session
}

// RequestID tags each request with an ID, echoing a client-supplied one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Trace starts a span per request and propagates it through the
// request context so repository calls are traced.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}
		ctx, span := telemetry.StartSpan(c.Request.Context(), c.Request.Method+" "+name)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/civichub/civichub/pkg/config"
)

// Session identifies the user behind a request. Sessions are minted by
// the external auth service; this service only verifies the signature
// and reads the claims back.
type Session struct {
	UserID uuid.UUID
	Email  string
}

// SessionClaims is the JWT payload of a session token. The user ID
// travels in the registered "sub" claim.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates session tokens against the shared auth secret
type Verifier struct {
	secret string
	issuer string
}

// NewVerifier creates a new session verifier
func NewVerifier(cfg *config.AuthConfig) *Verifier {
	return &Verifier{
		secret: cfg.JWTSecret,
		issuer: cfg.Issuer,
	}
}

// Verify validates a session token and returns the session it carries
func (v *Verifier) Verify(tokenString string) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Reject anything but HMAC before checking the signature
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(v.secret), nil
		},
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject in session token: %w", err)
	}

	return &Session{
		UserID: userID,
		Email:  claims.Email,
	}, nil
}

package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingCredentials means no bearer token was presented.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrInvalidToken means the token failed validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator resolves the request's bearer token to a user id. With a
// secret configured, tokens are HS256 JWTs whose subject is the user id.
// Without one, the raw token is taken as an opaque user id (development
// mode).
type Authenticator struct {
	secret []byte
}

// NewAuthenticator builds an authenticator. An empty secret enables the
// opaque-token development mode.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// UserID extracts and validates the caller's identity.
func (a *Authenticator) UserID(r *http.Request) (string, error) {
	token := extractBearer(r)
	if token == "" {
		return "", ErrMissingCredentials
	}

	if len(a.secret) == 0 {
		return token, nil
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/token"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenMiddleware authenticates API requests with the same HS256 tokens the
// gateway accepts on dashboard sockets
type TokenMiddleware struct {
	issuer *token.Issuer
}

func NewTokenMiddleware(issuer *token.Issuer) *TokenMiddleware {
	return &TokenMiddleware{issuer: issuer}
}

// Authenticate validates the bearer token and adds the user id to context
func (m *TokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}

		userID, err := m.issuer.Verify(tokenString)
		if err != nil {
			handleError(w, errors.NewAuthError("invalid token", err))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireInternalKey guards endpoints that only the trusted web tier may
// call, such as token issuance
func RequireInternalKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" || r.Header.Get("X-Internal-Key") != key {
				handleError(w, errors.NewAuthorizationError("invalid internal key", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserID extracts the authenticated user id from the request context
func UserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(userIDKey).(string)
	return userID, ok
}

// Helper functions

func extractToken(r *http.Request) string {
	bearerToken := r.Header.Get("Authorization")
	if len(strings.Split(bearerToken, " ")) == 2 {
		return strings.Split(bearerToken, " ")[1]
	}
	return ""
}

func handleError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		http.Error(w, apiErr.Message, apiErr.Code)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

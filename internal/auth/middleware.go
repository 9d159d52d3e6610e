package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/elskow/assessgate/internal/api"
)

// Define a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key used to store the username in the context
	UserContextKey contextKey = "user"
)

type AuthMiddleware struct {
	tokens *TokenIssuer
	log    *zap.Logger
}

func NewAuthMiddleware(tokens *TokenIssuer, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		log:    log,
	}
}

// Authenticate rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			api.Error(w, http.StatusUnauthorized, ErrTokenInvalid.Error())
			return
		}

		claims, err := m.tokens.Verify(token)
		if err != nil {
			m.log.Debug("bearer token rejected", zap.String("path", r.URL.Path))
			api.Error(w, http.StatusUnauthorized, ErrTokenInvalid.Error())
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Helper function to get username from context
func GetUserFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(UserContextKey).(string)
	if !ok || username == "" {
		return "", errors.New("user not found in context")
	}
	return username, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Package auth authenticates the remote executor. The executor presents an
// HS256 bearer token; the subject claim becomes the executor identity that
// owns task claims.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type executorKey struct{}

// ExecutorFromContext returns the authenticated executor identity, or ""
// for unauthenticated requests.
func ExecutorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(executorKey{}).(string)
	return id
}

func WithExecutor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executorKey{}, id)
}

// ParseExecutorToken validates the bearer token and extracts the executor
// identity from the subject claim.
func ParseExecutorToken(token, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("executor jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("subject claim required")
	}
	return claims.Subject, nil
}

// ExecutorMiddleware rejects requests without a valid executor token.
func ExecutorMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "executor authentication required", http.StatusUnauthorized)
				return
			}
			identity, err := ParseExecutorToken(strings.TrimPrefix(header, "Bearer "), secret)
			if err != nil {
				http.Error(w, "invalid executor token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithExecutor(r.Context(), identity)))
		})
	}
}

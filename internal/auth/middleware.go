package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bher20/billoptimizer/internal/storage"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*storage.User, bool) {
	u, ok := ctx.Value(userContextKey).(*storage.User)
	return u, ok && u != nil
}

// TokenFromContext returns the bearer token the request was authenticated with.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenContextKey).(string)
	return t, ok
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *storage.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// Middleware resolves an optional Bearer token. Requests without one pass
// through anonymously; a malformed or unknown token is rejected.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		u, err := s.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := WithUser(r.Context(), u)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects anonymous requests.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission rejects requests whose user may not perform act on obj.
func (s *Service) RequirePermission(obj, act string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		allowed, err := s.Enforce(u, obj, act)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "status": "error"})
}

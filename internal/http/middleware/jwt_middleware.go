package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/trailhead/tour-bookings/internal/domain"
	"github.com/trailhead/tour-bookings/internal/http/response"
	"github.com/trailhead/tour-bookings/internal/repo/postgres"
	"github.com/trailhead/tour-bookings/pkg/auth"
	"github.com/trailhead/tour-bookings/pkg/logger"
)

type userKey struct{}

// RequireAuth parses the bearer token and loads the authenticated user
// into the request context. Downstream handlers read it back with
// UserFrom; the checkout flow needs the full user (email, name), not
// just the claims.
func RequireAuth(userRepo postgres.UserRepository, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := auth.Parse(token, jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			user, err := userRepo.FindByID(r.Context(), claims.Sub)
			if err != nil {
				response.InternalError(w, "Failed to load user")
				return
			}
			if user == nil {
				response.Unauthorized(w, "Unknown user")
				return
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, user.ID)
			ctx = context.WithValue(ctx, userKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the admin role. Must run inside
// RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFrom(r.Context())
		if user == nil {
			response.Unauthorized(w, "Authentication required")
			return
		}
		if user.Role != domain.RoleAdmin {
			response.Forbidden(w, "Insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFrom returns the authenticated user set by RequireAuth, or nil.
func UserFrom(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(userKey{}).(*domain.User); ok {
		return user
	}
	return nil
}

// WithUser stores a user in the context the same way RequireAuth does.
// Used by tests that exercise handlers without the middleware stack.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

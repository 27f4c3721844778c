package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pollwinner/backend/internal/models"
)

// SessionCookieName is the cookie carrying the end-user session token.
const SessionCookieName = "session_token"

type contextKey string

const (
	ctxUserKey  contextKey = "user"
	ctxAdminKey contextKey = "admin"
)

// SessionValidator resolves an opaque session token to a user.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.User, error)
}

// AdminTokenValidator resolves an admin bearer JWT to an admin.
type AdminTokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.Admin, error)
}

// SessionAuth authenticates end users. The token is read from the
// session cookie first, then from the Authorization bearer header, so
// both browser and native clients work.
func SessionAuth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			user, err := sessions.ValidateSession(r.Context(), token)
			if err != nil {
				http.Error(w, "invalid or expired session", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuth authenticates admins via Authorization: Bearer <jwt>.
func AdminAuth(admins AdminTokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			admin, err := admins.ValidateToken(r.Context(), token)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxAdminKey, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken extracts the session token from cookie or bearer header.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return extractBearer(r)
}

// UserFromCtx returns the authenticated user or nil.
func UserFromCtx(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxUserKey).(*models.User)
	return u
}

// WithUser returns a context carrying the given user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

// AdminFromCtx returns the authenticated admin or nil.
func AdminFromCtx(ctx context.Context) *models.Admin {
	a, _ := ctx.Value(ctxAdminKey).(*models.Admin)
	return a
}

// WithAdmin returns a context carrying the given admin.
func WithAdmin(ctx context.Context, a *models.Admin) context.Context {
	return context.WithValue(ctx, ctxAdminKey, a)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

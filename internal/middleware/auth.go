package middleware

import (
	"net/http"
	"strings"

	"github.com/vikasavnish/stockwatch/internal/services"
	"github.com/vikasavnish/stockwatch/internal/utils"
)

// SessionResolver resolves the caller of a request, or nil when anonymous
type SessionResolver interface {
	GetSession(r *http.Request) *services.Session
}

// WithSession attaches the caller's session, if any, to the request context.
// Anonymous requests pass through unchanged.
func WithSession(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s := sessions.GetSession(r); s != nil {
				ctx := utils.SetUserIDToContext(r.Context(), s.User.ID)
				ctx = utils.SetSessionToContext(ctx, s)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware rejects requests without a valid session. API requests get
// a 401; page requests are redirected to the sign-in page.
func AuthMiddleware(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := sessions.GetSession(r)
			if s == nil {
				if strings.HasPrefix(r.URL.Path, "/api/") {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
				return
			}

			ctx := utils.SetUserIDToContext(r.Context(), s.User.ID)
			ctx = utils.SetSessionToContext(ctx, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentSession returns the session attached by WithSession or
// AuthMiddleware
func CurrentSession(r *http.Request) *services.Session {
	s, _ := utils.SessionFromContext(r.Context()).(*services.Session)
	return s
}

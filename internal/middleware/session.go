package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dukerupert/pawtrack/internal/session"
	"github.com/dukerupert/pawtrack/internal/state"
)

// SessionCookieName names the cookie carrying the session token.
const SessionCookieName = "pawtrack_session"

type sessionHolder struct {
	store *state.Store
}

type holderKey struct{}

func withHolder(ctx context.Context, h *sessionHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

func holderFrom(ctx context.Context) *sessionHolder {
	h, _ := ctx.Value(holderKey{}).(*sessionHolder)
	return h
}

// Registry is the session lookup the middleware needs.
type Registry interface {
	Get(token string) (*state.Store, bool)
	Open() *state.Store
}

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Secure bool
}

// SetSessionCookie writes the session cookie. maxAge zero makes it a
// browser-session cookie.
func SetSessionCookie(w http.ResponseWriter, token string, maxAge int, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Sessions attaches the caller's state store to the request. A missing or
// unknown cookie gets a throwaway store that is neither tracked nor handed
// a cookie; register and login adopt it.
func Sessions(reg Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var s *state.Store
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				s, _ = reg.Get(cookie.Value)
			}
			if s == nil {
				s = reg.Open()
			}
			if h := holderFrom(r.Context()); h != nil {
				h.store = s
			}
			next.ServeHTTP(w, r.WithContext(session.WithStore(r.Context(), s)))
		})
	}
}

// RequireHousehold rejects requests whose session has no household loaded.
func RequireHousehold(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.HouseholdID(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

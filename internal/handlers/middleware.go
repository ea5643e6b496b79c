package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"pickem/internal/models"
	"pickem/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const HostContextKey ContextKey = "host"

// HostSessionCookie is the host's browser session cookie name.
const HostSessionCookie = "host_session"

// PlayerSessionHeader carries a guest's session token. Clients that
// can't set headers fall back to the cookie of the same name.
const PlayerSessionHeader = "X-Session-Token"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService) *Middleware {
	return &Middleware{authService: authService}
}

// RequireHost is middleware that requires a valid host session
func (m *Middleware) RequireHost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(HostSessionCookie)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
			return
		}

		host, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, &http.Cookie{
				Name:     HostSessionCookie,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
			})
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
			return
		}

		ctx := context.WithValue(r.Context(), HostContextKey, host)
		next(w, r.WithContext(ctx))
	}
}

// HostFromContext returns the authenticated host set by RequireHost
func HostFromContext(r *http.Request) *models.Host {
	host, _ := r.Context().Value(HostContextKey).(*models.Host)
	return host
}

// PlayerSessionToken extracts the guest session token from the request
func PlayerSessionToken(r *http.Request) string {
	if token := r.Header.Get(PlayerSessionHeader); token != "" {
		return token
	}
	if cookie, err := r.Cookie("player_session"); err == nil {
		return cookie.Value
	}
	return ""
}

// Logging wraps a handler with request logging
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

package handlers

import (
	"net/http"
	"time"

	"pickem/internal/models"
	"pickem/internal/security"
	"pickem/internal/service"
)

// AuthHandler handles host authentication HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	email       *service.EmailService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, email *service.EmailService) *AuthHandler {
	return &AuthHandler{authService: authService, email: email}
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type hostResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func hostView(host *models.Host) hostResponse {
	return hostResponse{ID: host.ID, Email: host.Email, DisplayName: host.DisplayName}
}

// Register creates a new host account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	host, err := h.authService.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.email != nil && h.email.IsEnabled() {
		// Best effort; registration already succeeded.
		_ = h.email.SendWelcomeEmail(r.Context(), host.Email, host.DisplayName)
	}

	writeJSON(w, http.StatusCreated, hostView(host))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a host and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	session, host, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, HostSessionCookie, session.ID, session.ExpiresAt))
	writeJSON(w, http.StatusOK, hostView(host))
}

// Logout invalidates the host session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(HostSessionCookie); err == nil {
		_ = h.authService.Logout(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     HostSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusNoContent, nil)
}

// Me returns the authenticated host
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hostView(HostFromContext(r)))
}

const oauthStateCookie = "oauth_state"

// StartGoogleAuth redirects to the Google consent page
func (h *AuthHandler) StartGoogleAuth(w http.ResponseWriter, r *http.Request) {
	if !h.authService.GoogleEnabled() {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "google sign-in not configured"})
		return
	}

	state := security.GenerateSessionToken()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.authService.GoogleAuthURL(state), http.StatusSeeOther)
}

// GoogleCallback completes the Google sign-in flow
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid oauth state"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing authorization code"})
		return
	}

	session, _, err := h.authService.GoogleLogin(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, HostSessionCookie, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"pickem/internal/models"
	"pickem/internal/repository"
	"pickem/internal/security"
	"pickem/internal/utils"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService handles host account authentication
type AuthService struct {
	hostRepo        *repository.HostRepository
	sessionDuration time.Duration

	googleOAuth    *oauth2.Config
	googleVerifier *security.IDTokenVerifier
}

// NewAuthService creates a new auth service. Google sign-in is disabled
// when clientID is empty.
func NewAuthService(hostRepo *repository.HostRepository, sessionDuration time.Duration, googleClientID, googleClientSecret, appBaseURL string) *AuthService {
	s := &AuthService{
		hostRepo:        hostRepo,
		sessionDuration: sessionDuration,
	}
	if googleClientID != "" {
		s.googleOAuth = &oauth2.Config{
			ClientID:     googleClientID,
			ClientSecret: googleClientSecret,
			RedirectURL:  strings.TrimRight(appBaseURL, "/") + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
		s.googleVerifier = security.GoogleIDTokenVerifier(googleClientID)
	}
	return s
}

// Register creates a new host account
func (s *AuthService) Register(email, password, displayName string) (*models.Host, error) {
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := utils.ValidateDisplayName(displayName); err != nil {
		return nil, err
	}

	existing, err := s.hostRepo.GetHostByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing host: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	host, err := s.hostRepo.CreateHost(email, passwordHash, displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	return host, nil
}

// Login authenticates a host and creates a session
func (s *AuthService) Login(email, password string) (*models.HostSession, *models.Host, error) {
	host, err := s.hostRepo.GetHostByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get host: %w", err)
	}
	if host == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, host.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(host)
	if err != nil {
		return nil, nil, err
	}
	return session, host, nil
}

// GoogleEnabled reports whether Google sign-in is configured
func (s *AuthService) GoogleEnabled() bool {
	return s.googleOAuth != nil
}

// GoogleAuthURL builds the Google consent page URL for the given state
func (s *AuthService) GoogleAuthURL(state string) string {
	if s.googleOAuth == nil {
		return ""
	}
	return s.googleOAuth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// GoogleLogin completes the Google sign-in flow: exchanges the
// authorization code, verifies the ID token, and logs in the matching
// host, creating or linking the account as needed.
func (s *AuthService) GoogleLogin(ctx context.Context, code string) (*models.HostSession, *models.Host, error) {
	if s.googleOAuth == nil {
		return nil, nil, errors.New("google sign-in not configured")
	}

	token, err := s.googleOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, nil, errors.New("token response missing id_token")
	}

	claims, err := s.googleVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	host, err := s.hostRepo.GetHostByGoogleID(claims.Subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up google host: %w", err)
	}

	if host == nil {
		existing, err := s.hostRepo.GetHostByEmail(claims.Email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing host: %w", err)
		}
		if existing != nil {
			if existing.GoogleID != "" && existing.GoogleID != claims.Subject {
				return nil, nil, ErrEmailTaken
			}
			if err := s.hostRepo.LinkGoogleAccount(existing.ID, claims.Subject); err != nil {
				return nil, nil, err
			}
			host = existing
		} else {
			displayName := claims.Name
			if displayName == "" {
				displayName = strings.Split(claims.Email, "@")[0]
			}
			// Google-only accounts get an unguessable placeholder password.
			randomHash, err := security.HashPassword(security.GenerateSessionToken())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to generate placeholder password: %w", err)
			}
			created, err := s.hostRepo.CreateHost(claims.Email, randomHash, displayName)
			if err != nil {
				return nil, nil, err
			}
			if err := s.hostRepo.LinkGoogleAccount(created.ID, claims.Subject); err != nil {
				return nil, nil, err
			}
			host = created
		}
	}

	session, err := s.createSession(host)
	if err != nil {
		return nil, nil, err
	}
	return session, host, nil
}

func (s *AuthService) createSession(host *models.Host) (*models.HostSession, error) {
	sessionID := security.GenerateSessionToken()
	expiresAt := time.Now().Add(s.sessionDuration)

	session, err := s.hostRepo.CreateSession(sessionID, host.ID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession checks if a session is valid and returns the associated host
func (s *AuthService) ValidateSession(sessionID string) (*models.Host, error) {
	session, err := s.hostRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.hostRepo.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	host, err := s.hostRepo.GetHostByID(session.HostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	if host == nil {
		return nil, ErrSessionNotFound
	}

	return host, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.hostRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() error {
	if err := s.hostRepo.DeleteExpiredSessions(); err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return nil
}

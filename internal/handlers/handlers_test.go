package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pickem/internal/repository"
	"pickem/internal/service"
	"pickem/internal/utils"
)

func TestStatusForOutcome(t *testing.T) {
	tests := []struct {
		outcome service.JoinOutcome
		want    int
	}{
		{service.JoinOK, http.StatusOK},
		{service.JoinPending, http.StatusAccepted},
		{service.JoinRejected, http.StatusForbidden},
		{service.JoinNotFound, http.StatusNotFound},
		{service.JoinEnded, http.StatusGone},
		{service.JoinExpired, http.StatusGone},
		{service.JoinEntryClosed, http.StatusConflict},
		{service.JoinNicknameTaken, http.StatusConflict},
		{service.JoinSessionMismatch, http.StatusConflict},
		{service.JoinNicknameBlocked, http.StatusUnprocessableEntity},
		{service.JoinRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		if got := statusForOutcome(tt.outcome); got != tt.want {
			t.Errorf("statusForOutcome(%q) = %d, want %d", tt.outcome, got, tt.want)
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "1"},
		{100 * time.Millisecond, "1"},
		{time.Second, "1"},
		{1500 * time.Millisecond, "2"},
		{30 * time.Second, "30"},
	}

	for _, tt := range tests {
		if got := retryAfterSeconds(tt.d); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestWriteErrorMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "game not found", err: service.ErrGameNotFound, want: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("loading: %w", service.ErrGameNotFound), want: http.StatusNotFound},
		{name: "not game host", err: service.ErrNotGameHost, want: http.StatusForbidden},
		{name: "not approved", err: service.ErrNotApproved, want: http.StatusForbidden},
		{name: "bad credentials", err: service.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{name: "email taken", err: service.ErrEmailTaken, want: http.StatusConflict},
		{name: "game ended", err: service.ErrGameEnded, want: http.StatusConflict},
		{name: "version conflict", err: repository.ErrVersionConflict, want: http.StatusConflict},
		{name: "validation", err: utils.ValidationError{Field: "nickname", Message: "too short"}, want: http.StatusBadRequest},
		{name: "unknown", err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			writeError(recorder, tt.err)
			if recorder.Code != tt.want {
				t.Errorf("status = %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	recorder := httptest.NewRecorder()
	writeError(recorder, errors.New("dsn=postgres://secret"))

	if strings.Contains(recorder.Body.String(), "secret") {
		t.Errorf("internal error detail leaked: %s", recorder.Body.String())
	}
}

func TestPlayerSessionTokenPrefersHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/games/g1/picks", nil)
	r.Header.Set(PlayerSessionHeader, "header-token")
	r.AddCookie(&http.Cookie{Name: "player_session", Value: "cookie-token"})

	if got := PlayerSessionToken(r); got != "header-token" {
		t.Errorf("PlayerSessionToken = %q, want header value", got)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/api/games/g1/picks", nil)
	r2.AddCookie(&http.Cookie{Name: "player_session", Value: "cookie-token"})
	if got := PlayerSessionToken(r2); got != "cookie-token" {
		t.Errorf("PlayerSessionToken = %q, want cookie value", got)
	}

	r3 := httptest.NewRequest(http.MethodGet, "/api/games/g1/picks", nil)
	if got := PlayerSessionToken(r3); got != "" {
		t.Errorf("PlayerSessionToken = %q, want empty", got)
	}
}

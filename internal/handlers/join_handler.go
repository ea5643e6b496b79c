package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"pickem/internal/models"
	"pickem/internal/security"
	"pickem/internal/service"
)

// JoinHandler handles guest entry: join-code preview and join attempts
type JoinHandler struct {
	admission *service.AdmissionService
	verifier  *security.IDTokenVerifier
}

// NewJoinHandler creates a new join handler. The verifier may be nil
// when linked-account joins are not configured.
func NewJoinHandler(admission *service.AdmissionService, verifier *security.IDTokenVerifier) *JoinHandler {
	return &JoinHandler{admission: admission, verifier: verifier}
}

// Preview returns the public summary for a join code
func (h *JoinHandler) Preview(w http.ResponseWriter, r *http.Request) {
	summary, outcome, err := h.admission.ResolveJoinPreview(r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	if outcome != service.JoinOK {
		writeJSON(w, statusForOutcome(outcome), map[string]interface{}{"outcome": outcome})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type joinRequest struct {
	Nickname     string `json:"nickname"`
	BypassSecret string `json:"bypassSecret,omitempty"`
	IDToken      string `json:"idToken,omitempty"`
	Device       string `json:"device,omitempty"`
}

type joinResponse struct {
	Outcome      service.JoinOutcome `json:"outcome"`
	Game         *models.GameSummary `json:"game,omitempty"`
	PlayerID     int64               `json:"playerId,omitempty"`
	Nickname     string              `json:"nickname,omitempty"`
	JoinStatus   models.JoinStatus   `json:"joinStatus,omitempty"`
	SessionToken string              `json:"sessionToken,omitempty"`
	RetryAfterMs int64               `json:"retryAfterMs,omitempty"`
}

// Join processes a guest join attempt
func (h *JoinHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	authMethod := models.AuthMethodGuest
	if req.IDToken != "" {
		if h.verifier == nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "linked-account joins not configured"})
			return
		}
		claims, err := h.verifier.Verify(r.Context(), req.IDToken)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid id token"})
			return
		}
		authMethod = models.AuthMethodLinked
		if req.Nickname == "" {
			req.Nickname = claims.Name
		}
	}

	result, err := h.admission.Join(service.JoinRequest{
		JoinCode:     r.PathValue("code"),
		Nickname:     req.Nickname,
		SessionToken: PlayerSessionToken(r),
		BypassSecret: req.BypassSecret,
		AuthMethod:   authMethod,
		IP:           security.ClientIP(r),
		Device:       req.Device,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := joinResponse{Outcome: result.Outcome, Game: result.Game}
	if result.Player != nil {
		resp.PlayerID = result.Player.ID
		resp.Nickname = result.Player.Nickname
		resp.JoinStatus = result.Player.JoinStatus
	}
	if result.RetryAfter > 0 {
		resp.RetryAfterMs = result.RetryAfter.Milliseconds()
		w.Header().Set("Retry-After", retryAfterSeconds(result.RetryAfter))
	}
	if result.SessionToken != "" && result.IsNew {
		resp.SessionToken = result.SessionToken
		expires := time.Now().Add(30 * 24 * time.Hour)
		http.SetCookie(w, security.CreateSessionCookie(r, "player_session", result.SessionToken, expires))
	}

	writeJSON(w, statusForOutcome(result.Outcome), resp)

	if result.IsNew && result.Player != nil {
		log.Printf("Player %q joined game %s (%s)", result.Player.Nickname, result.Player.GameID, result.Outcome)
	}
}

func statusForOutcome(outcome service.JoinOutcome) int {
	switch outcome {
	case service.JoinOK:
		return http.StatusOK
	case service.JoinPending:
		return http.StatusAccepted
	case service.JoinRejected:
		return http.StatusForbidden
	case service.JoinNotFound:
		return http.StatusNotFound
	case service.JoinEnded, service.JoinExpired:
		return http.StatusGone
	case service.JoinEntryClosed, service.JoinNicknameTaken, service.JoinSessionMismatch:
		return http.StatusConflict
	case service.JoinNicknameBlocked:
		return http.StatusUnprocessableEntity
	case service.JoinRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusOK
	}
}

// retryAfterSeconds formats a duration as the whole seconds the
// Retry-After header requires, rounding up so clients never retry early.
func retryAfterSeconds(d time.Duration) string {
	seconds := int64((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

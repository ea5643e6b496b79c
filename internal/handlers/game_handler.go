package handlers

import (
	"net/http"
	"strconv"

	"pickem/internal/models"
	"pickem/internal/service"
)

// GameHandler handles game lifecycle and host review HTTP requests
type GameHandler struct {
	games     *service.GameService
	admission *service.AdmissionService
}

// NewGameHandler creates a new game handler
func NewGameHandler(games *service.GameService, admission *service.AdmissionService) *GameHandler {
	return &GameHandler{games: games, admission: admission}
}

type createGameRequest struct {
	CardID           string          `json:"cardId"`
	Mode             models.GameMode `json:"mode,omitempty"`
	AllowLateJoins   bool            `json:"allowLateJoins"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Longitude        *float64        `json:"longitude,omitempty"`
	City             string          `json:"city,omitempty"`
	Country          string          `json:"country,omitempty"`
	RadiusKm         float64         `json:"radiusKm,omitempty"`
	WithBypassSecret bool            `json:"withBypassSecret,omitempty"`
}

type createGameResponse struct {
	Game models.GameSummary `json:"game"`
	// BypassSecret is returned exactly once; it is not recoverable later.
	BypassSecret string `json:"bypassSecret,omitempty"`
}

// Create creates a new game on one of the host's cards
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	host := HostFromContext(r)
	game, bypassSecret, err := h.games.CreateGame(host.ID, service.CreateGameInput{
		CardID:           req.CardID,
		Mode:             req.Mode,
		AllowLateJoins:   req.AllowLateJoins,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		City:             req.City,
		Country:          req.Country,
		RadiusKm:         req.RadiusKm,
		WithBypassSecret: req.WithBypassSecret,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createGameResponse{Game: game.Summary(), BypassSecret: bypassSecret})
}

// List returns all of the host's games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	host := HostFromContext(r)
	games, err := h.games.ListGames(host.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	summaries := make([]models.GameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, g.Summary())
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Start transitions a game from lobby to live
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	host := HostFromContext(r)
	game, err := h.games.StartGame(host.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.Summary())
}

// End transitions a game to ended
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	host := HostFromContext(r)
	game, err := h.games.EndGame(r.Context(), host.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.Summary())
}

// State returns the composed full state of a game
func (h *GameHandler) State(w http.ResponseWriter, r *http.Request) {
	includeEvents := r.URL.Query().Get("events") == "true"
	state, err := h.games.FullState(r.PathValue("id"), includeEvents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type lateJoinsRequest struct {
	Allow bool `json:"allow"`
}

// SetLateJoins toggles late entry for a game
func (h *GameHandler) SetLateJoins(w http.ResponseWriter, r *http.Request) {
	var req lateJoinsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	host := HostFromContext(r)
	if err := h.games.SetAllowLateJoins(host.ID, r.PathValue("id"), req.Allow); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// QRCode renders the game's join link as a PNG QR code
func (h *GameHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	host := HostFromContext(r)

	size := 256
	if s := r.URL.Query().Get("size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 2048 {
			size = n
		}
	}

	png, err := h.games.JoinQRCode(host.ID, r.PathValue("id"), r.URL.Query().Get("bypass"), size)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// OverrideSuggestions lists fuzzy near-miss answers the host may accept
// as overrides
func (h *GameHandler) OverrideSuggestions(w http.ResponseWriter, r *http.Request) {
	host := HostFromContext(r)
	suggestions, err := h.games.SuggestOverrides(host.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []service.OverrideSuggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

type pendingJoinView struct {
	PlayerID int64          `json:"playerId"`
	Nickname string         `json:"nickname"`
	Geo      models.JoinGeo `json:"geo"`
}

// PendingJoins lists join requests waiting for the host's decision
func (h *GameHandler) PendingJoins(w http.ResponseWriter, r *http.Request) {
	host := HostFromContext(r)
	pending, err := h.admission.PendingJoins(host.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]pendingJoinView, 0, len(pending))
	for _, p := range pending {
		views = append(views, pendingJoinView{PlayerID: p.ID, Nickname: p.Nickname, Geo: p.Geo})
	}
	writeJSON(w, http.StatusOK, views)
}

type reviewRequest struct {
	Approve bool `json:"approve"`
}

// ReviewJoin approves or rejects a pending join request
func (h *GameHandler) ReviewJoin(w http.ResponseWriter, r *http.Request) {
	playerID, err := strconv.ParseInt(r.PathValue("playerId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid player id"})
		return
	}

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	host := HostFromContext(r)
	player, err := h.admission.ReviewJoinRequest(host.ID, r.PathValue("id"), playerID, req.Approve)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"playerId":   player.ID,
		"nickname":   player.Nickname,
		"joinStatus": player.JoinStatus,
	})
}

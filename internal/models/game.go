package models

import "time"

// GameStatus tracks the lifecycle of a game. Transitions are host-driven
// (lobby -> live -> ended) and ended is terminal.
type GameStatus string

const (
	GameStatusLobby GameStatus = "lobby"
	GameStatusLive  GameStatus = "live"
	GameStatusEnded GameStatus = "ended"
)

// GameMode selects between a shared room and a single-player game.
type GameMode string

const (
	GameModeRoom GameMode = "room"
	GameModeSolo GameMode = "solo"
)

// AdmissionSettings controls geo-gated admission for a game. A join request
// inside RadiusKm of the host's recorded coordinates is approved without
// review; everything else waits for the host unless it carries the bypass
// secret from the printed QR code.
//
// This struct is the stored shape of the games.admission column. It is never
// serialized into an API response; GameSummary is the public view. The bcrypt
// bypass hash therefore persists here, while the plaintext secret is returned
// exactly once at game creation.
type AdmissionSettings struct {
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	City             string     `json:"city,omitempty"`
	Country          string     `json:"country,omitempty"`
	RadiusKm         float64    `json:"radiusKm"`
	BypassSecretHash string     `json:"bypassSecretHash,omitempty"`
	BypassExpiresAt  *time.Time `json:"bypassExpiresAt,omitempty"`
}

// Game is one live pick'em game run by a host against a card.
type Game struct {
	ID             string
	CardID         string
	HostID         int64
	JoinCode       string
	Mode           GameMode
	Status         GameStatus
	AllowLateJoins bool
	Admission      AdmissionSettings
	Key            KeyPayload
	Locks          LockState
	ExpiresAt      time.Time
	EndedAt        *time.Time
	CreatedAt      time.Time
	// UpdatedAt doubles as the optimistic-concurrency version token for the
	// key payload and lock state. Stored at millisecond precision.
	UpdatedAt time.Time
}

// IsExpired reports whether the game is past its retention expiry.
func (g *Game) IsExpired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// AcceptsJoins reports whether a new guest may still enter the game.
func (g *Game) AcceptsJoins() bool {
	if g.Status == GameStatusEnded {
		return false
	}
	if g.Status != GameStatusLobby && !g.AllowLateJoins {
		return false
	}
	return true
}

// GameSummary is the public preview returned for a join-code lookup, before
// the requester has a session in the game.
type GameSummary struct {
	ID             string     `json:"id"`
	CardID         string     `json:"cardId"`
	JoinCode       string     `json:"joinCode"`
	Mode           GameMode   `json:"mode"`
	Status         GameStatus `json:"status"`
	IsStarted      bool       `json:"isStarted"`
	AllowLateJoins bool       `json:"allowLateJoins"`
}

// Summary builds the join-preview view of the game.
func (g *Game) Summary() GameSummary {
	return GameSummary{
		ID:             g.ID,
		CardID:         g.CardID,
		JoinCode:       g.JoinCode,
		Mode:           g.Mode,
		Status:         g.Status,
		IsStarted:      g.Status != GameStatusLobby,
		AllowLateJoins: g.AllowLateJoins,
	}
}

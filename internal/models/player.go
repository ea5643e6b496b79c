package models

import (
	"strings"
	"time"
)

// JoinStatus tracks a guest's admission state. Rejected is terminal: once a
// host denies a join request the same session can never become approved.
type JoinStatus string

const (
	JoinStatusPending  JoinStatus = "pending"
	JoinStatusApproved JoinStatus = "approved"
	JoinStatusRejected JoinStatus = "rejected"
)

// AuthMethod records how a guest authenticated.
type AuthMethod string

const (
	AuthMethodGuest  AuthMethod = "guest"
	AuthMethodLinked AuthMethod = "linked-account"
)

// JoinGeo captures the best-effort geolocation recorded with a join request.
type JoinGeo struct {
	IP         string   `json:"ip,omitempty"`
	City       string   `json:"city,omitempty"`
	Country    string   `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// Player is one guest's row in a game. Uniqueness is enforced per game both
// on the normalized nickname and on the session-token hash; the raw session
// token never reaches storage.
type Player struct {
	ID               int64
	GameID           string
	Nickname         string
	NicknameKey      string
	SessionTokenHash string
	AuthMethod       AuthMethod
	JoinStatus       JoinStatus
	ApprovedAt       *time.Time
	Geo              JoinGeo
	Picks            PicksPayload
	Submitted        bool
	SubmittedAt      *time.Time
	Device           string
	LastSeenAt       time.Time
	CreatedAt        time.Time
	// UpdatedAt is the optimistic-concurrency version token for the picks
	// payload. Stored at millisecond precision.
	UpdatedAt time.Time
}

// NormalizeNickname produces the uniqueness key for a nickname: trimmed,
// internal whitespace collapsed to single spaces, lowercased.
func NormalizeNickname(nickname string) string {
	return strings.ToLower(strings.Join(strings.Fields(nickname), " "))
}

// NormalizeJoinCode produces the canonical form of a join code for lookup.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

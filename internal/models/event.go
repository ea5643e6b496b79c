package models

import "time"

// EventType names an entry in a game's append-only event log.
type EventType string

const (
	EventGameCreated    EventType = "game_created"
	EventGameStarted    EventType = "game_started"
	EventGameEnded      EventType = "game_ended"
	EventJoinPending    EventType = "join_pending"
	EventJoinApproved   EventType = "join_approved"
	EventJoinRejected   EventType = "join_rejected"
	EventPlayerJoined   EventType = "player_joined"
	EventKeyUpdated     EventType = "key_updated"
	EventLocksChanged   EventType = "locks_changed"
	EventPicksUpdated   EventType = "picks_updated"
	EventPicksSubmitted EventType = "picks_submitted"
)

// GameEvent is one row of a game's event log.
type GameEvent struct {
	ID        int64
	GameID    string
	PlayerID  *int64
	Type      EventType
	Detail    string
	CreatedAt time.Time
}

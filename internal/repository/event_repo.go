package repository

import (
	"database/sql"
	"fmt"

	"pickem/internal/database"
	"pickem/internal/models"
)

// EventRepository handles database operations for the per-game event log
type EventRepository struct {
	db *database.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append records an event in a game's log
func (r *EventRepository) Append(gameID string, playerID *int64, eventType models.EventType, detail string) error {
	var player sql.NullInt64
	if playerID != nil {
		player = sql.NullInt64{Int64: *playerID, Valid: true}
	}

	query := `
		INSERT INTO game_events (game_id, player_id, event_type, detail)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, gameID, player, string(eventType), detail)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ListByGame retrieves the most recent events for a game, newest first
func (r *EventRepository) ListByGame(gameID string, limit int) ([]models.GameEvent, error) {
	query := `
		SELECT id, game_id, player_id, event_type, detail, created_at
		FROM game_events
		WHERE game_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.GameEvent
	for rows.Next() {
		var event models.GameEvent
		var playerID sql.NullInt64
		var eventType string
		if err := rows.Scan(
			&event.ID,
			&event.GameID,
			&playerID,
			&eventType,
			&event.Detail,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if playerID.Valid {
			id := playerID.Int64
			event.PlayerID = &id
		}
		event.Type = models.EventType(eventType)
		events = append(events, event)
	}

	return events, rows.Err()
}

package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pickem/internal/database"
	"pickem/internal/models"
)

// ErrVersionConflict is returned by compare-and-swap updates when the
// stored version token no longer matches the caller's expected one.
var ErrVersionConflict = errors.New("version conflict")

// GameRepository handles database operations for games
type GameRepository struct {
	db *database.DB
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{db: db}
}

// CreateGame inserts a new game. The caller provides the ID and join code;
// the initial version token is set to the current time.
func (r *GameRepository) CreateGame(game *models.Game) error {
	admission, err := json.Marshal(game.Admission)
	if err != nil {
		return fmt.Errorf("failed to marshal admission settings: %w", err)
	}
	key, err := json.Marshal(game.Key)
	if err != nil {
		return fmt.Errorf("failed to marshal key payload: %w", err)
	}
	locks, err := json.Marshal(game.Locks)
	if err != nil {
		return fmt.Errorf("failed to marshal lock state: %w", err)
	}

	game.UpdatedAt = time.Now().Truncate(time.Millisecond)

	query := `
		INSERT INTO games (id, card_id, host_id, join_code, mode, status, allow_late_joins, admission, key_payload, lock_state, expires_at, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		game.ID,
		game.CardID,
		game.HostID,
		game.JoinCode,
		string(game.Mode),
		string(game.Status),
		game.AllowLateJoins,
		string(admission),
		string(key),
		string(locks),
		game.ExpiresAt,
		game.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

const gameColumns = `id, card_id, host_id, join_code, mode, status, allow_late_joins, admission, key_payload, lock_state, expires_at, ended_at, created_at, updated_at_ms`

// GetGameByID retrieves a game by ID
func (r *GameRepository) GetGameByID(id string) (*models.Game, error) {
	query := "SELECT " + gameColumns + " FROM games WHERE id = ?"
	return r.scanGame(r.db.QueryRow(query, id))
}

// GetGameByJoinCode retrieves a game by its normalized join code
func (r *GameRepository) GetGameByJoinCode(code string) (*models.Game, error) {
	query := "SELECT " + gameColumns + " FROM games WHERE join_code = ?"
	return r.scanGame(r.db.QueryRow(query, models.NormalizeJoinCode(code)))
}

func (r *GameRepository) scanGame(row *sql.Row) (*models.Game, error) {
	game := &models.Game{}
	var mode, status, admission, key, locks string
	var endedAt sql.NullTime
	var updatedMs int64

	err := row.Scan(
		&game.ID,
		&game.CardID,
		&game.HostID,
		&game.JoinCode,
		&mode,
		&status,
		&game.AllowLateJoins,
		&admission,
		&key,
		&locks,
		&game.ExpiresAt,
		&endedAt,
		&game.CreatedAt,
		&updatedMs,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	game.Mode = models.GameMode(mode)
	game.Status = models.GameStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		game.EndedAt = &t
	}
	game.UpdatedAt = time.UnixMilli(updatedMs)

	if err := json.Unmarshal([]byte(admission), &game.Admission); err != nil {
		return nil, fmt.Errorf("failed to unmarshal admission settings: %w", err)
	}
	if err := json.Unmarshal([]byte(key), &game.Key); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key payload: %w", err)
	}
	if err := json.Unmarshal([]byte(locks), &game.Locks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock state: %w", err)
	}

	return game, nil
}

// ListGamesByHost retrieves all games run by a host, newest first
func (r *GameRepository) ListGamesByHost(hostID int64) ([]models.Game, error) {
	query := "SELECT " + gameColumns + " FROM games WHERE host_id = ? ORDER BY created_at DESC"
	rows, err := r.db.Query(query, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		game := models.Game{}
		var mode, status, admission, key, locks string
		var endedAt sql.NullTime
		var updatedMs int64

		if err := rows.Scan(
			&game.ID,
			&game.CardID,
			&game.HostID,
			&game.JoinCode,
			&mode,
			&status,
			&game.AllowLateJoins,
			&admission,
			&key,
			&locks,
			&game.ExpiresAt,
			&endedAt,
			&game.CreatedAt,
			&updatedMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}

		game.Mode = models.GameMode(mode)
		game.Status = models.GameStatus(status)
		if endedAt.Valid {
			t := endedAt.Time
			game.EndedAt = &t
		}
		game.UpdatedAt = time.UnixMilli(updatedMs)

		if err := json.Unmarshal([]byte(admission), &game.Admission); err != nil {
			return nil, fmt.Errorf("failed to unmarshal admission settings: %w", err)
		}
		if err := json.Unmarshal([]byte(key), &game.Key); err != nil {
			return nil, fmt.Errorf("failed to unmarshal key payload: %w", err)
		}
		if err := json.Unmarshal([]byte(locks), &game.Locks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lock state: %w", err)
		}

		games = append(games, game)
	}

	return games, rows.Err()
}

// UpdateKeyAndLocks replaces a game's key payload and lock state. When
// expected is non-nil the write only succeeds if the stored version token
// still matches; a nil expected means last-write-wins. The new version
// token is returned on success.
func (r *GameRepository) UpdateKeyAndLocks(gameID string, key models.KeyPayload, locks models.LockState, expected *time.Time) (time.Time, error) {
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to marshal key payload: %w", err)
	}
	locksJSON, err := json.Marshal(locks)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to marshal lock state: %w", err)
	}

	version := nextVersion(expected)

	var result sql.Result
	if expected != nil {
		query := `
			UPDATE games
			SET key_payload = ?, lock_state = ?, updated_at_ms = ?
			WHERE id = ? AND updated_at_ms = ?
		`
		result, err = r.db.Exec(query, string(keyJSON), string(locksJSON), version.UnixMilli(), gameID, expected.UnixMilli())
	} else {
		query := `
			UPDATE games
			SET key_payload = ?, lock_state = ?, updated_at_ms = ?
			WHERE id = ?
		`
		result, err = r.db.Exec(query, string(keyJSON), string(locksJSON), version.UnixMilli(), gameID)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update key payload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return time.Time{}, ErrVersionConflict
	}

	return version, nil
}

// UpdateStatus transitions a game's lifecycle status. An end transition
// also stamps ended_at.
func (r *GameRepository) UpdateStatus(gameID string, status models.GameStatus, endedAt *time.Time) error {
	query := "UPDATE games SET status = ?, ended_at = ? WHERE id = ?"
	var ended sql.NullTime
	if endedAt != nil {
		ended = sql.NullTime{Time: *endedAt, Valid: true}
	}
	_, err := r.db.Exec(query, string(status), ended, gameID)
	if err != nil {
		return fmt.Errorf("failed to update game status: %w", err)
	}
	return nil
}

// UpdateAdmission replaces a game's admission settings
func (r *GameRepository) UpdateAdmission(gameID string, admission models.AdmissionSettings) error {
	admissionJSON, err := json.Marshal(admission)
	if err != nil {
		return fmt.Errorf("failed to marshal admission settings: %w", err)
	}
	query := "UPDATE games SET admission = ? WHERE id = ?"
	_, err = r.db.Exec(query, string(admissionJSON), gameID)
	if err != nil {
		return fmt.Errorf("failed to update admission settings: %w", err)
	}
	return nil
}

// SetAllowLateJoins toggles late-join entry for a game
func (r *GameRepository) SetAllowLateJoins(gameID string, allow bool) error {
	query := "UPDATE games SET allow_late_joins = ? WHERE id = ?"
	_, err := r.db.Exec(query, allow, gameID)
	if err != nil {
		return fmt.Errorf("failed to update late join setting: %w", err)
	}
	return nil
}

// DeleteExpiredGames removes games past their retention expiry and
// returns how many rows were deleted.
func (r *GameRepository) DeleteExpiredGames(now time.Time) (int64, error) {
	query := "DELETE FROM games WHERE expires_at < ?"
	result, err := r.db.Exec(query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired games: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return rows, nil
}

// nextVersion produces a strictly increasing millisecond version token.
// Two writes inside the same millisecond would otherwise mint identical
// tokens and defeat conflict detection.
func nextVersion(expected *time.Time) time.Time {
	version := time.Now().Truncate(time.Millisecond)
	if expected != nil && !version.After(*expected) {
		version = expected.Add(time.Millisecond)
	}
	return version
}

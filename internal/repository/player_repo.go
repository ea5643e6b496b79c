package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pickem/internal/database"
	"pickem/internal/models"
)

// PlayerRepository handles database operations for players
type PlayerRepository struct {
	db *database.DB
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *database.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

const playerColumns = `id, game_id, nickname, nickname_key, session_token_hash, auth_method, join_status, approved_at, geo, picks, submitted, submitted_at, device, last_seen_at, created_at, updated_at_ms`

// CreatePlayer inserts a new player row. The player's ID and version
// token are set on success.
func (r *PlayerRepository) CreatePlayer(player *models.Player) error {
	geo, err := json.Marshal(player.Geo)
	if err != nil {
		return fmt.Errorf("failed to marshal join geo: %w", err)
	}
	picks, err := json.Marshal(player.Picks)
	if err != nil {
		return fmt.Errorf("failed to marshal picks payload: %w", err)
	}

	player.UpdatedAt = time.Now().Truncate(time.Millisecond)
	if player.LastSeenAt.IsZero() {
		player.LastSeenAt = time.Now()
	}

	var approvedAt sql.NullTime
	if player.ApprovedAt != nil {
		approvedAt = sql.NullTime{Time: *player.ApprovedAt, Valid: true}
	}

	query := `
		INSERT INTO players (game_id, nickname, nickname_key, session_token_hash, auth_method, join_status, approved_at, geo, picks, device, last_seen_at, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		player.GameID,
		player.Nickname,
		player.NicknameKey,
		player.SessionTokenHash,
		string(player.AuthMethod),
		string(player.JoinStatus),
		approvedAt,
		string(geo),
		string(picks),
		player.Device,
		player.LastSeenAt,
		player.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	player.ID = id
	return nil
}

// GetPlayerByID retrieves a player by ID
func (r *PlayerRepository) GetPlayerByID(id int64) (*models.Player, error) {
	query := "SELECT " + playerColumns + " FROM players WHERE id = ?"
	return scanPlayerRow(r.db.QueryRow(query, id))
}

// GetPlayerBySession retrieves a player in a game by session-token hash
func (r *PlayerRepository) GetPlayerBySession(gameID, sessionTokenHash string) (*models.Player, error) {
	query := "SELECT " + playerColumns + " FROM players WHERE game_id = ? AND session_token_hash = ?"
	return scanPlayerRow(r.db.QueryRow(query, gameID, sessionTokenHash))
}

// GetPlayerByNickname retrieves a player in a game by normalized nickname
func (r *PlayerRepository) GetPlayerByNickname(gameID, nicknameKey string) (*models.Player, error) {
	query := "SELECT " + playerColumns + " FROM players WHERE game_id = ? AND nickname_key = ?"
	return scanPlayerRow(r.db.QueryRow(query, gameID, nicknameKey))
}

// ListPlayersByGame retrieves all players in a game in join order. Join
// order is the tie-break of last resort for closest-answer bonuses, so
// the ordering here is load-bearing.
func (r *PlayerRepository) ListPlayersByGame(gameID string) ([]models.Player, error) {
	query := "SELECT " + playerColumns + " FROM players WHERE game_id = ? ORDER BY id ASC"
	rows, err := r.db.Query(query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *player)
	}

	return players, rows.Err()
}

// CountPendingByGame counts join requests waiting for host review
func (r *PlayerRepository) CountPendingByGame(gameID string) (int, error) {
	query := "SELECT COUNT(*) FROM players WHERE game_id = ? AND join_status = ?"
	var count int
	err := r.db.QueryRow(query, gameID, string(models.JoinStatusPending)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending players: %w", err)
	}
	return count, nil
}

// UpdateJoinStatus transitions a player's admission state
func (r *PlayerRepository) UpdateJoinStatus(playerID int64, status models.JoinStatus, approvedAt *time.Time) error {
	var approved sql.NullTime
	if approvedAt != nil {
		approved = sql.NullTime{Time: *approvedAt, Valid: true}
	}
	query := "UPDATE players SET join_status = ?, approved_at = ? WHERE id = ?"
	_, err := r.db.Exec(query, string(status), approved, playerID)
	if err != nil {
		return fmt.Errorf("failed to update join status: %w", err)
	}
	return nil
}

// UpdateSessionToken replaces a player's session-token hash. Used when a
// returning guest re-claims a nickname and the host allows it.
func (r *PlayerRepository) UpdateSessionToken(playerID int64, sessionTokenHash string) error {
	query := "UPDATE players SET session_token_hash = ? WHERE id = ?"
	_, err := r.db.Exec(query, sessionTokenHash, playerID)
	if err != nil {
		return fmt.Errorf("failed to update session token: %w", err)
	}
	return nil
}

// UpdatePicks replaces a player's picks payload. When expected is non-nil
// the write only succeeds if the stored version token still matches; a
// nil expected means last-write-wins. The new version token is returned
// on success.
func (r *PlayerRepository) UpdatePicks(playerID int64, picks models.PicksPayload, submitted bool, submittedAt *time.Time, expected *time.Time) (time.Time, error) {
	picksJSON, err := json.Marshal(picks)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to marshal picks payload: %w", err)
	}

	var submittedTime sql.NullTime
	if submittedAt != nil {
		submittedTime = sql.NullTime{Time: *submittedAt, Valid: true}
	}

	version := nextVersion(expected)

	var result sql.Result
	if expected != nil {
		query := `
			UPDATE players
			SET picks = ?, submitted = ?, submitted_at = ?, updated_at_ms = ?
			WHERE id = ? AND updated_at_ms = ?
		`
		result, err = r.db.Exec(query, string(picksJSON), submitted, submittedTime, version.UnixMilli(), playerID, expected.UnixMilli())
	} else {
		query := `
			UPDATE players
			SET picks = ?, submitted = ?, submitted_at = ?, updated_at_ms = ?
			WHERE id = ?
		`
		result, err = r.db.Exec(query, string(picksJSON), submitted, submittedTime, version.UnixMilli(), playerID)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update picks: %w", err)
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

// TouchLastSeen records guest activity for presence display
func (r *PlayerRepository) TouchLastSeen(playerID int64, device string) error {
	query := "UPDATE players SET last_seen_at = ?, device = ? WHERE id = ?"
	_, err := r.db.Exec(query, time.Now(), device, playerID)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

// DeletePlayer removes a player from a game
func (r *PlayerRepository) DeletePlayer(playerID int64) error {
	query := "DELETE FROM players WHERE id = ?"
	_, err := r.db.Exec(query, playerID)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPlayerRow(row *sql.Row) (*models.Player, error) {
	player, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return player, err
}

func scanPlayer(s scanner) (*models.Player, error) {
	player := &models.Player{}
	var authMethod, joinStatus, geo, picks string
	var approvedAt, submittedAt, lastSeenAt sql.NullTime
	var updatedMs int64

	err := s.Scan(
		&player.ID,
		&player.GameID,
		&player.Nickname,
		&player.NicknameKey,
		&player.SessionTokenHash,
		&authMethod,
		&joinStatus,
		&approvedAt,
		&geo,
		&picks,
		&player.Submitted,
		&submittedAt,
		&player.Device,
		&lastSeenAt,
		&player.CreatedAt,
		&updatedMs,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}

	player.AuthMethod = models.AuthMethod(authMethod)
	player.JoinStatus = models.JoinStatus(joinStatus)
	if approvedAt.Valid {
		t := approvedAt.Time
		player.ApprovedAt = &t
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		player.SubmittedAt = &t
	}
	if lastSeenAt.Valid {
		player.LastSeenAt = lastSeenAt.Time
	}
	player.UpdatedAt = time.UnixMilli(updatedMs)

	if err := json.Unmarshal([]byte(geo), &player.Geo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal join geo: %w", err)
	}
	if err := json.Unmarshal([]byte(picks), &player.Picks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal picks payload: %w", err)
	}

	return player, nil
}

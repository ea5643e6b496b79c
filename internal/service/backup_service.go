package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"pickem/internal/database"
)

// BackupData represents the complete database backup structure. Host
// sessions and the blocked-word list are deliberately absent: sessions are
// ephemeral and the word list reseeds itself on startup.
type BackupData struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Hosts      []HostBackup   `json:"hosts"`
	Cards      []CardBackup   `json:"cards"`
	Games      []GameBackup   `json:"games"`
	Players    []PlayerBackup `json:"players"`
	Events     []EventBackup  `json:"events"`
}

// HostBackup represents a host record for backup
type HostBackup struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"password_hash"`
	GoogleID     string    `json:"google_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CardBackup represents a prediction card for backup
type CardBackup struct {
	ID        string    `json:"id"`
	HostID    int64     `json:"host_id"`
	Title     string    `json:"title"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameBackup represents a game record for backup
type GameBackup struct {
	ID             string     `json:"id"`
	CardID         string     `json:"card_id"`
	HostID         int64      `json:"host_id"`
	JoinCode       string     `json:"join_code"`
	Mode           string     `json:"mode"`
	Status         string     `json:"status"`
	AllowLateJoins bool       `json:"allow_late_joins"`
	Admission      string     `json:"admission"`
	KeyPayload     string     `json:"key_payload"`
	LockState      string     `json:"lock_state"`
	ExpiresAt      time.Time  `json:"expires_at"`
	EndedAt        *time.Time `json:"ended_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAtMs    int64      `json:"updated_at_ms"`
}

// PlayerBackup represents a player record for backup
type PlayerBackup struct {
	ID               int64      `json:"id"`
	GameID           string     `json:"game_id"`
	Nickname         string     `json:"nickname"`
	NicknameKey      string     `json:"nickname_key"`
	SessionTokenHash string     `json:"session_token_hash"`
	AuthMethod       string     `json:"auth_method"`
	JoinStatus       string     `json:"join_status"`
	ApprovedAt       *time.Time `json:"approved_at"`
	Geo              string     `json:"geo"`
	Picks            string     `json:"picks"`
	Submitted        bool       `json:"submitted"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	Device           string     `json:"device"`
	LastSeenAt       *time.Time `json:"last_seen_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAtMs      int64      `json:"updated_at_ms"`
}

// EventBackup represents a game event for backup
type EventBackup struct {
	ID        int64     `json:"id"`
	GameID    string    `json:"game_id"`
	PlayerID  *int64    `json:"player_id"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportToWriter(file)
}

// ExportToWriter exports the database to an io.Writer
func (s *BackupService) ExportToWriter(w io.Writer) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportHosts(backup); err != nil {
		return fmt.Errorf("failed to export hosts: %w", err)
	}
	if err := s.exportCards(backup); err != nil {
		return fmt.Errorf("failed to export cards: %w", err)
	}
	if err := s.exportGames(backup); err != nil {
		return fmt.Errorf("failed to export games: %w", err)
	}
	if err := s.exportPlayers(backup); err != nil {
		return fmt.Errorf("failed to export players: %w", err)
	}
	if err := s.exportEvents(backup); err != nil {
		return fmt.Errorf("failed to export events: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d hosts, %d cards, %d games, %d players, %d events",
		len(backup.Hosts), len(backup.Cards), len(backup.Games),
		len(backup.Players), len(backup.Events))

	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	// Import in order of dependencies
	if err := s.importHosts(backup.Hosts); err != nil {
		return fmt.Errorf("failed to import hosts: %w", err)
	}
	if err := s.importCards(backup.Cards); err != nil {
		return fmt.Errorf("failed to import cards: %w", err)
	}
	if err := s.importGames(backup.Games); err != nil {
		return fmt.Errorf("failed to import games: %w", err)
	}
	if err := s.importPlayers(backup.Players); err != nil {
		return fmt.Errorf("failed to import players: %w", err)
	}
	if err := s.importEvents(backup.Events); err != nil {
		return fmt.Errorf("failed to import events: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportHosts(backup *BackupData) error {
	query := "SELECT id, email, display_name, password_hash, COALESCE(google_id, ''), created_at, updated_at FROM hosts ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var h HostBackup
		if err := rows.Scan(&h.ID, &h.Email, &h.DisplayName, &h.PasswordHash, &h.GoogleID, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return err
		}
		backup.Hosts = append(backup.Hosts, h)
	}
	return rows.Err()
}

func (s *BackupService) exportCards(backup *BackupData) error {
	query := "SELECT id, host_id, title, payload, created_at, updated_at FROM cards ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c CardBackup
		if err := rows.Scan(&c.ID, &c.HostID, &c.Title, &c.Payload, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		backup.Cards = append(backup.Cards, c)
	}
	return rows.Err()
}

func (s *BackupService) exportGames(backup *BackupData) error {
	query := "SELECT id, card_id, host_id, join_code, mode, status, allow_late_joins, admission, key_payload, lock_state, expires_at, ended_at, created_at, updated_at_ms FROM games ORDER BY created_at"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var g GameBackup
		var endedAt sql.NullTime
		if err := rows.Scan(&g.ID, &g.CardID, &g.HostID, &g.JoinCode, &g.Mode, &g.Status, &g.AllowLateJoins,
			&g.Admission, &g.KeyPayload, &g.LockState, &g.ExpiresAt, &endedAt, &g.CreatedAt, &g.UpdatedAtMs); err != nil {
			return err
		}
		if endedAt.Valid {
			g.EndedAt = &endedAt.Time
		}
		backup.Games = append(backup.Games, g)
	}
	return rows.Err()
}

func (s *BackupService) exportPlayers(backup *BackupData) error {
	query := "SELECT id, game_id, nickname, nickname_key, session_token_hash, auth_method, join_status, approved_at, geo, picks, submitted, submitted_at, device, last_seen_at, created_at, updated_at_ms FROM players ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p PlayerBackup
		var approvedAt, submittedAt, lastSeenAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.GameID, &p.Nickname, &p.NicknameKey, &p.SessionTokenHash, &p.AuthMethod,
			&p.JoinStatus, &approvedAt, &p.Geo, &p.Picks, &p.Submitted, &submittedAt, &p.Device, &lastSeenAt,
			&p.CreatedAt, &p.UpdatedAtMs); err != nil {
			return err
		}
		if approvedAt.Valid {
			p.ApprovedAt = &approvedAt.Time
		}
		if submittedAt.Valid {
			p.SubmittedAt = &submittedAt.Time
		}
		if lastSeenAt.Valid {
			p.LastSeenAt = &lastSeenAt.Time
		}
		backup.Players = append(backup.Players, p)
	}
	return rows.Err()
}

func (s *BackupService) exportEvents(backup *BackupData) error {
	query := "SELECT id, game_id, player_id, event_type, detail, created_at FROM game_events ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e EventBackup
		var playerID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.GameID, &playerID, &e.EventType, &e.Detail, &e.CreatedAt); err != nil {
			return err
		}
		if playerID.Valid {
			e.PlayerID = &playerID.Int64
		}
		backup.Events = append(backup.Events, e)
	}
	return rows.Err()
}

func (s *BackupService) importHosts(hosts []HostBackup) error {
	log.Printf("Importing %d hosts...", len(hosts))
	for _, h := range hosts {
		query := "INSERT INTO hosts (id, email, display_name, password_hash, google_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, h.ID, h.Email, h.DisplayName, h.PasswordHash, nullIfEmpty(h.GoogleID), h.CreatedAt, h.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import host %d: %w", h.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importCards(cards []CardBackup) error {
	log.Printf("Importing %d cards...", len(cards))
	for _, c := range cards {
		query := "INSERT INTO cards (id, host_id, title, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, c.ID, c.HostID, c.Title, c.Payload, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import card %s: %w", c.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importGames(games []GameBackup) error {
	log.Printf("Importing %d games...", len(games))
	for _, g := range games {
		var endedAt interface{}
		if g.EndedAt != nil {
			endedAt = *g.EndedAt
		}
		query := "INSERT INTO games (id, card_id, host_id, join_code, mode, status, allow_late_joins, admission, key_payload, lock_state, expires_at, ended_at, created_at, updated_at_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, g.ID, g.CardID, g.HostID, g.JoinCode, g.Mode, g.Status, g.AllowLateJoins,
			g.Admission, g.KeyPayload, g.LockState, g.ExpiresAt, endedAt, g.CreatedAt, g.UpdatedAtMs)
		if err != nil {
			return fmt.Errorf("failed to import game %s: %w", g.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importPlayers(players []PlayerBackup) error {
	log.Printf("Importing %d players...", len(players))
	for _, p := range players {
		var approvedAt, submittedAt, lastSeenAt interface{}
		if p.ApprovedAt != nil {
			approvedAt = *p.ApprovedAt
		}
		if p.SubmittedAt != nil {
			submittedAt = *p.SubmittedAt
		}
		if p.LastSeenAt != nil {
			lastSeenAt = *p.LastSeenAt
		}
		query := "INSERT INTO players (id, game_id, nickname, nickname_key, session_token_hash, auth_method, join_status, approved_at, geo, picks, submitted, submitted_at, device, last_seen_at, created_at, updated_at_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, p.ID, p.GameID, p.Nickname, p.NicknameKey, p.SessionTokenHash, p.AuthMethod,
			p.JoinStatus, approvedAt, p.Geo, p.Picks, p.Submitted, submittedAt, p.Device, lastSeenAt,
			p.CreatedAt, p.UpdatedAtMs)
		if err != nil {
			return fmt.Errorf("failed to import player %d: %w", p.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importEvents(events []EventBackup) error {
	log.Printf("Importing %d events...", len(events))
	for _, e := range events {
		var playerID interface{}
		if e.PlayerID != nil {
			playerID = *e.PlayerID
		}
		query := "INSERT INTO game_events (id, game_id, player_id, event_type, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, e.ID, e.GameID, playerID, e.EventType, e.Detail, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import event %d: %w", e.ID, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

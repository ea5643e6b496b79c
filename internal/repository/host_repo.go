package repository

import (
	"database/sql"
	"fmt"
	"time"

	"pickem/internal/database"
	"pickem/internal/models"
)

// HostRepository handles database operations for host accounts and sessions
type HostRepository struct {
	db *database.DB
}

// NewHostRepository creates a new host repository
func NewHostRepository(db *database.DB) *HostRepository {
	return &HostRepository{db: db}
}

// CreateHost inserts a new host account into the database
func (r *HostRepository) CreateHost(email, passwordHash, displayName string) (*models.Host, error) {
	query := `
		INSERT INTO hosts (email, password_hash, display_name)
		VALUES (?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, email, passwordHash, displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	host := &models.Host{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	return host, nil
}

// GetHostByEmail retrieves a host by email address
func (r *HostRepository) GetHostByEmail(email string) (*models.Host, error) {
	query := `
		SELECT id, email, display_name, password_hash, COALESCE(google_id, ''), created_at, updated_at
		FROM hosts
		WHERE email = ?
	`
	return r.scanHost(r.db.QueryRow(query, email))
}

// GetHostByID retrieves a host by ID
func (r *HostRepository) GetHostByID(id int64) (*models.Host, error) {
	query := `
		SELECT id, email, display_name, password_hash, COALESCE(google_id, ''), created_at, updated_at
		FROM hosts
		WHERE id = ?
	`
	return r.scanHost(r.db.QueryRow(query, id))
}

// GetHostByGoogleID retrieves a host by linked Google account subject
func (r *HostRepository) GetHostByGoogleID(googleID string) (*models.Host, error) {
	query := `
		SELECT id, email, display_name, password_hash, COALESCE(google_id, ''), created_at, updated_at
		FROM hosts
		WHERE google_id = ?
	`
	return r.scanHost(r.db.QueryRow(query, googleID))
}

func (r *HostRepository) scanHost(row *sql.Row) (*models.Host, error) {
	host := &models.Host{}
	err := row.Scan(
		&host.ID,
		&host.Email,
		&host.DisplayName,
		&host.PasswordHash,
		&host.GoogleID,
		&host.CreatedAt,
		&host.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get host: %w", err)
	}

	return host, nil
}

// LinkGoogleAccount links an existing host to a Google account
func (r *HostRepository) LinkGoogleAccount(hostID int64, googleID string) error {
	query := `
		UPDATE hosts
		SET google_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		AND (google_id IS NULL OR google_id = '')
	`
	result, err := r.db.Exec(query, googleID, hostID)
	if err != nil {
		return fmt.Errorf("failed to link google account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read link result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("google account already linked")
	}

	return nil
}

// CreateSession creates a new session for a host
func (r *HostRepository) CreateSession(sessionID string, hostID int64, expiresAt time.Time) (*models.HostSession, error) {
	query := `
		INSERT INTO host_sessions (id, host_id, expires_at)
		VALUES (?, ?, ?)
	`
	_, err := r.db.Exec(query, sessionID, hostID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	session := &models.HostSession{
		ID:        sessionID,
		HostID:    hostID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	return session, nil
}

// GetSession retrieves a session by ID
func (r *HostRepository) GetSession(sessionID string) (*models.HostSession, error) {
	query := `
		SELECT id, host_id, expires_at, created_at
		FROM host_sessions
		WHERE id = ?
	`
	session := &models.HostSession{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.HostID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session from the database
func (r *HostRepository) DeleteSession(sessionID string) error {
	query := "DELETE FROM host_sessions WHERE id = ?"
	_, err := r.db.Exec(query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions
func (r *HostRepository) DeleteExpiredSessions() error {
	query := "DELETE FROM host_sessions WHERE expires_at < ?"
	_, err := r.db.Exec(query, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}

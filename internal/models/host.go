package models

import "time"

// Host represents a host account in the system
type Host struct {
	ID           int64
	Email        string
	DisplayName  string
	PasswordHash string
	GoogleID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HostSession represents an authenticated host session
type HostSession struct {
	ID        string
	HostID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *HostSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pickem/internal/database"
	"pickem/internal/models"
)

// CardRepository handles database operations for prediction cards.
// The card body (matches, questions, tiebreaker) is stored as a single
// JSON document; only the fields needed for listing live in columns.
type CardRepository struct {
	db *database.DB
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *database.DB) *CardRepository {
	return &CardRepository{db: db}
}

// CreateCard inserts a new card owned by the given host
func (r *CardRepository) CreateCard(hostID int64, card *models.Card) error {
	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal card: %w", err)
	}

	query := `
		INSERT INTO cards (id, host_id, title, payload)
		VALUES (?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, card.ID, hostID, card.Title, string(payload))
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// GetCardByID retrieves a card by ID
func (r *CardRepository) GetCardByID(id string) (*models.Card, error) {
	query := "SELECT payload FROM cards WHERE id = ?"

	var payload string
	err := r.db.QueryRow(query, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	card := &models.Card{}
	if err := json.Unmarshal([]byte(payload), card); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card: %w", err)
	}
	return card, nil
}

// GetCardOwner returns the host ID that owns the card, or 0 when the card
// does not exist.
func (r *CardRepository) GetCardOwner(id string) (int64, error) {
	query := "SELECT host_id FROM cards WHERE id = ?"

	var hostID int64
	err := r.db.QueryRow(query, id).Scan(&hostID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get card owner: %w", err)
	}
	return hostID, nil
}

// ListCardsByHost retrieves all cards owned by a host, newest first
func (r *CardRepository) ListCardsByHost(hostID int64) ([]models.Card, error) {
	query := `
		SELECT payload
		FROM cards
		WHERE host_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		var card models.Card
		if err := json.Unmarshal([]byte(payload), &card); err != nil {
			return nil, fmt.Errorf("failed to unmarshal card: %w", err)
		}
		cards = append(cards, card)
	}

	return cards, rows.Err()
}

// UpdateCard replaces a card's title and body
func (r *CardRepository) UpdateCard(card *models.Card) error {
	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal card: %w", err)
	}

	query := `
		UPDATE cards
		SET title = ?, payload = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.Exec(query, card.Title, string(payload), time.Now(), card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return nil
}

// DeleteCard deletes a card and cascades to its games
func (r *CardRepository) DeleteCard(id string) error {
	query := "DELETE FROM cards WHERE id = ?"
	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return nil
}

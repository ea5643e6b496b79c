package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pickem/internal/models"
	"pickem/internal/repository"
)

// CardService handles prediction card management
type CardService struct {
	cardRepo *repository.CardRepository
}

// NewCardService creates a new card service
func NewCardService(cardRepo *repository.CardRepository) *CardService {
	return &CardService{cardRepo: cardRepo}
}

// CreateCard validates and stores a new card for a host. Missing match
// and question IDs are assigned.
func (s *CardService) CreateCard(hostID int64, card *models.Card) (*models.Card, error) {
	if err := validateCard(card); err != nil {
		return nil, err
	}

	card.ID = uuid.New().String()
	assignCardIDs(card)

	if err := s.cardRepo.CreateCard(hostID, card); err != nil {
		return nil, err
	}
	return card, nil
}

// GetCard retrieves one of the host's cards
func (s *CardService) GetCard(hostID int64, cardID string) (*models.Card, error) {
	owner, err := s.cardRepo.GetCardOwner(cardID)
	if err != nil {
		return nil, err
	}
	if owner == 0 {
		return nil, ErrCardNotFound
	}
	if owner != hostID {
		return nil, ErrNotCardOwner
	}
	return s.cardRepo.GetCardByID(cardID)
}

// ListCards retrieves all of a host's cards
func (s *CardService) ListCards(hostID int64) ([]models.Card, error) {
	return s.cardRepo.ListCardsByHost(hostID)
}

// UpdateCard replaces one of the host's cards
func (s *CardService) UpdateCard(hostID int64, card *models.Card) error {
	owner, err := s.cardRepo.GetCardOwner(card.ID)
	if err != nil {
		return err
	}
	if owner == 0 {
		return ErrCardNotFound
	}
	if owner != hostID {
		return ErrNotCardOwner
	}
	if err := validateCard(card); err != nil {
		return err
	}
	assignCardIDs(card)
	return s.cardRepo.UpdateCard(card)
}

// DeleteCard removes one of the host's cards and its games
func (s *CardService) DeleteCard(hostID int64, cardID string) error {
	owner, err := s.cardRepo.GetCardOwner(cardID)
	if err != nil {
		return err
	}
	if owner == 0 {
		return ErrCardNotFound
	}
	if owner != hostID {
		return ErrNotCardOwner
	}
	return s.cardRepo.DeleteCard(cardID)
}

func validateCard(card *models.Card) error {
	if card.Title == "" {
		return errors.New("card title is required")
	}
	if len(card.Matches) == 0 && len(card.EventQuestions) == 0 {
		return errors.New("card needs at least one match or event question")
	}
	for i, match := range card.Matches {
		if match.Title == "" {
			return fmt.Errorf("match %d: title is required", i)
		}
	}
	return nil
}

// assignCardIDs fills in any missing match and question IDs so picks and
// key entries always have stable targets to reference.
func assignCardIDs(card *models.Card) {
	for i := range card.Matches {
		if card.Matches[i].ID == "" {
			card.Matches[i].ID = uuid.New().String()
		}
		for j := range card.Matches[i].Questions {
			if card.Matches[i].Questions[j].ID == "" {
				card.Matches[i].Questions[j].ID = uuid.New().String()
			}
		}
	}
	for i := range card.EventQuestions {
		if card.EventQuestions[i].ID == "" {
			card.EventQuestions[i].ID = uuid.New().String()
		}
	}
	if card.Tiebreaker != nil && card.Tiebreaker.ID == "" {
		card.Tiebreaker.ID = uuid.New().String()
	}
}

package handlers

import (
	"net/http"

	"pickem/internal/models"
	"pickem/internal/service"
)

// CardHandler handles prediction card HTTP requests
type CardHandler struct {
	cards *service.CardService
}

// NewCardHandler creates a new card handler
func NewCardHandler(cards *service.CardService) *CardHandler {
	return &CardHandler{cards: cards}
}

// Create stores a new card for the host
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var card models.Card
	if err := decodeJSON(r, &card); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	host := HostFromContext(r)
	created, err := h.cards.CreateCard(host.ID, &card)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get returns one of the host's cards
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	host := HostFromContext(r)
	card, err := h.cards.GetCard(host.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// List returns all of the host's cards
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	host := HostFromContext(r)
	cards, err := h.cards.ListCards(host.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// Update replaces one of the host's cards
func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	var card models.Card
	if err := decodeJSON(r, &card); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	card.ID = r.PathValue("id")

	host := HostFromContext(r)
	if err := h.cards.UpdateCard(host.ID, &card); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// Delete removes one of the host's cards
func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	host := HostFromContext(r)
	if err := h.cards.DeleteCard(host.ID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"pickem/internal/models"
	"pickem/internal/repository"
	"pickem/internal/service"
)

// SyncHandler handles key and picks payload synchronization
type SyncHandler struct {
	sync *service.SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(sync *service.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

type keyStateResponse struct {
	Key      models.KeyPayload `json:"key"`
	Locks    models.LockState  `json:"locks"`
	Version  time.Time         `json:"version"`
	Conflict bool              `json:"conflict,omitempty"`
}

func keyStateView(state *service.KeyState, conflict bool) keyStateResponse {
	return keyStateResponse{Key: state.Key, Locks: state.Locks, Version: state.Version, Conflict: conflict}
}

// ReadKey returns the current key snapshot for a game
func (h *SyncHandler) ReadKey(w http.ResponseWriter, r *http.Request) {
	state, err := h.sync.ReadKey(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keyStateView(state, false))
}

type writeKeyRequest struct {
	Key   models.KeyPayload `json:"key"`
	Locks models.LockState  `json:"locks"`
	// ExpectedVersion is the version token the writer last read. Omitted
	// means last-write-wins.
	ExpectedVersion *time.Time `json:"expectedVersion,omitempty"`
}

// WriteKey replaces the key payload and lock state (host only). A stale
// expected version yields 409 with the current state so the client can
// rebase.
func (h *SyncHandler) WriteKey(w http.ResponseWriter, r *http.Request) {
	var req writeKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	host := HostFromContext(r)
	state, err := h.sync.WriteKey(host.ID, r.PathValue("id"), req.Key, req.Locks, req.ExpectedVersion)
	if errors.Is(err, repository.ErrVersionConflict) {
		writeJSON(w, http.StatusConflict, keyStateView(state, true))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keyStateView(state, false))
}

type picksStateResponse struct {
	Picks       models.PicksPayload `json:"picks"`
	Submitted   bool                `json:"submitted"`
	SubmittedAt *time.Time          `json:"submittedAt,omitempty"`
	Version     time.Time           `json:"version"`
	Conflict    bool                `json:"conflict,omitempty"`
}

func picksStateView(state *service.PicksState, conflict bool) picksStateResponse {
	return picksStateResponse{
		Picks:       state.Picks,
		Submitted:   state.Submitted,
		SubmittedAt: state.SubmittedAt,
		Version:     state.Version,
		Conflict:    conflict,
	}
}

// ReadPicks returns the calling guest's picks snapshot
func (h *SyncHandler) ReadPicks(w http.ResponseWriter, r *http.Request) {
	token := PlayerSessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "session token required"})
		return
	}

	state, err := h.sync.ReadPicks(r.PathValue("id"), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, picksStateView(state, false))
}

type writePicksRequest struct {
	Picks           models.PicksPayload `json:"picks"`
	Submit          bool                `json:"submit,omitempty"`
	ExpectedVersion *time.Time          `json:"expectedVersion,omitempty"`
}

// WritePicks merges the calling guest's picks over their stored payload
func (h *SyncHandler) WritePicks(w http.ResponseWriter, r *http.Request) {
	token := PlayerSessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "session token required"})
		return
	}

	var req writePicksRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	state, err := h.sync.WritePicks(r.PathValue("id"), token, req.Picks, req.Submit, req.ExpectedVersion)
	if errors.Is(err, repository.ErrVersionConflict) {
		writeJSON(w, http.StatusConflict, picksStateView(state, true))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, picksStateView(state, false))
}

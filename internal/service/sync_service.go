package service

import (
	"errors"
	"fmt"
	"time"

	"pickem/internal/models"
	"pickem/internal/payload"
	"pickem/internal/repository"
	"pickem/internal/security"
)

var (
	ErrNotApproved = errors.New("player not approved")
	ErrGameEnded   = errors.New("game has ended")
)

// KeyState is one consistent snapshot of a game's host-owned state: the
// answer key, the lock state and the version token that covers both.
type KeyState struct {
	Key     models.KeyPayload
	Locks   models.LockState
	Version time.Time
}

// PicksState is one consistent snapshot of a guest's picks.
type PicksState struct {
	Picks       models.PicksPayload
	Submitted   bool
	SubmittedAt *time.Time
	Version     time.Time
}

// SyncService coordinates concurrent edits to key and picks payloads.
// Every write carries the version token the writer last read; a stale
// token yields repository.ErrVersionConflict together with the current
// state so the client can rebase and retry. A nil token means
// last-write-wins.
type SyncService struct {
	gameRepo   *repository.GameRepository
	playerRepo *repository.PlayerRepository
	eventRepo  *repository.EventRepository
}

// NewSyncService creates a new sync service
func NewSyncService(gameRepo *repository.GameRepository, playerRepo *repository.PlayerRepository, eventRepo *repository.EventRepository) *SyncService {
	return &SyncService{
		gameRepo:   gameRepo,
		playerRepo: playerRepo,
		eventRepo:  eventRepo,
	}
}

// ReadKey returns the current key snapshot for a game.
func (s *SyncService) ReadKey(gameID string) (*KeyState, error) {
	game, err := s.gameRepo.GetGameByID(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return &KeyState{Key: game.Key, Locks: game.Locks, Version: game.UpdatedAt}, nil
}

// WriteKey replaces a game's key payload and lock state. Only the game's
// host may write. On a version conflict the returned state is the
// current stored snapshot and the error is repository.ErrVersionConflict.
func (s *SyncService) WriteKey(hostID int64, gameID string, key models.KeyPayload, locks models.LockState, expected *time.Time) (*KeyState, error) {
	game, err := s.gameRepo.GetGameByID(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if game.HostID != hostID {
		return nil, ErrNotGameHost
	}

	version, err := s.gameRepo.UpdateKeyAndLocks(gameID, key, locks, expected)
	if errors.Is(err, repository.ErrVersionConflict) {
		current, readErr := s.ReadKey(gameID)
		if readErr != nil {
			return nil, readErr
		}
		return current, repository.ErrVersionConflict
	}
	if err != nil {
		return nil, err
	}

	if err := s.eventRepo.Append(gameID, nil, models.EventKeyUpdated, ""); err != nil {
		return nil, err
	}

	return &KeyState{Key: key, Locks: locks, Version: version}, nil
}

// ReadPicks returns the caller's picks snapshot, identified by session
// token. Pending and rejected guests cannot read picks.
func (s *SyncService) ReadPicks(gameID, sessionToken string) (*PicksState, error) {
	player, err := s.approvedPlayer(gameID, sessionToken)
	if err != nil {
		return nil, err
	}
	return &PicksState{
		Picks:       player.Picks,
		Submitted:   player.Submitted,
		SubmittedAt: player.SubmittedAt,
		Version:     player.UpdatedAt,
	}, nil
}

// WritePicks merges a guest's incoming picks over their stored payload.
// Locked targets keep their stored values; the write itself still
// succeeds so unlocked edits are never thrown away. Submission is
// one-way: once submitted, later writes keep the original timestamp.
func (s *SyncService) WritePicks(gameID, sessionToken string, incoming models.PicksPayload, submit bool, expected *time.Time) (*PicksState, error) {
	game, err := s.gameRepo.GetGameByID(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if game.Status == models.GameStatusEnded {
		return nil, ErrGameEnded
	}

	player, err := s.approvedPlayerIn(game, sessionToken)
	if err != nil {
		return nil, err
	}

	merged := payload.ApplyLocks(player.Picks, incoming, game.Locks)

	submitted := player.Submitted || submit
	submittedAt := player.SubmittedAt
	if submitted && submittedAt == nil {
		now := time.Now()
		submittedAt = &now
	}

	version, err := s.playerRepo.UpdatePicks(player.ID, merged, submitted, submittedAt, expected)
	if errors.Is(err, repository.ErrVersionConflict) {
		current, readErr := s.playerRepo.GetPlayerByID(player.ID)
		if readErr != nil {
			return nil, readErr
		}
		if current == nil {
			return nil, ErrPlayerNotFound
		}
		return &PicksState{
			Picks:       current.Picks,
			Submitted:   current.Submitted,
			SubmittedAt: current.SubmittedAt,
			Version:     current.UpdatedAt,
		}, repository.ErrVersionConflict
	}
	if err != nil {
		return nil, err
	}

	eventType := models.EventPicksUpdated
	if submit && !player.Submitted {
		eventType = models.EventPicksSubmitted
	}
	if err := s.eventRepo.Append(gameID, &player.ID, eventType, player.Nickname); err != nil {
		return nil, err
	}

	return &PicksState{
		Picks:       merged,
		Submitted:   submitted,
		SubmittedAt: submittedAt,
		Version:     version,
	}, nil
}

func (s *SyncService) approvedPlayer(gameID, sessionToken string) (*models.Player, error) {
	game, err := s.gameRepo.GetGameByID(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return s.approvedPlayerIn(game, sessionToken)
}

func (s *SyncService) approvedPlayerIn(game *models.Game, sessionToken string) (*models.Player, error) {
	player, err := s.playerRepo.GetPlayerBySession(game.ID, security.HashSessionToken(sessionToken))
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	if player.JoinStatus != models.JoinStatusApproved {
		return nil, ErrNotApproved
	}
	return player, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"pickem/internal/grading"
	"pickem/internal/leaderboard"
	"pickem/internal/models"
	"pickem/internal/repository"
	"pickem/internal/security"
	"pickem/internal/utils"
)

var (
	ErrCardNotFound      = errors.New("card not found")
	ErrNotCardOwner      = errors.New("not the card owner")
	ErrInvalidTransition = errors.New("invalid game status transition")
)

const eventLogLimit = 50

// GameService handles game lifecycle: creation, start/end transitions,
// the composed full-state view and retention cleanup.
type GameService struct {
	gameRepo   *repository.GameRepository
	cardRepo   *repository.CardRepository
	playerRepo *repository.PlayerRepository
	eventRepo  *repository.EventRepository
	hostRepo   *repository.HostRepository
	email      *EmailService

	appBaseURL      string
	retention       time.Duration
	bypassTTL       time.Duration
	defaultRadiusKm float64
}

// NewGameService creates a new game service
func NewGameService(
	gameRepo *repository.GameRepository,
	cardRepo *repository.CardRepository,
	playerRepo *repository.PlayerRepository,
	eventRepo *repository.EventRepository,
	hostRepo *repository.HostRepository,
	email *EmailService,
	appBaseURL string,
	retention time.Duration,
	bypassTTL time.Duration,
	defaultRadiusKm float64,
) *GameService {
	return &GameService{
		gameRepo:        gameRepo,
		cardRepo:        cardRepo,
		playerRepo:      playerRepo,
		eventRepo:       eventRepo,
		hostRepo:        hostRepo,
		email:           email,
		appBaseURL:      appBaseURL,
		retention:       retention,
		bypassTTL:       bypassTTL,
		defaultRadiusKm: defaultRadiusKm,
	}
}

// CreateGameInput carries the host's settings for a new game.
type CreateGameInput struct {
	CardID         string
	Mode           models.GameMode
	AllowLateJoins bool

	// Host location for geo-gated admission; nil coordinates disable the
	// gate entirely.
	Latitude  *float64
	Longitude *float64
	City      string
	Country   string
	RadiusKm  float64

	// WithBypassSecret mints a QR bypass secret for guests outside the
	// admission radius.
	WithBypassSecret bool
}

// CreateGame creates a new game on one of the host's cards. The raw
// bypass secret is returned exactly once; only its hash is stored.
func (s *GameService) CreateGame(hostID int64, input CreateGameInput) (*models.Game, string, error) {
	owner, err := s.cardRepo.GetCardOwner(input.CardID)
	if err != nil {
		return nil, "", err
	}
	if owner == 0 {
		return nil, "", ErrCardNotFound
	}
	if owner != hostID {
		return nil, "", ErrNotCardOwner
	}

	joinCode, err := s.freshJoinCode()
	if err != nil {
		return nil, "", err
	}

	mode := input.Mode
	if mode == "" {
		mode = models.GameModeRoom
	}

	radius := input.RadiusKm
	if radius <= 0 {
		radius = s.defaultRadiusKm
	}

	admission := models.AdmissionSettings{
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		City:      input.City,
		Country:   input.Country,
		RadiusKm:  radius,
	}

	var bypassSecret string
	if input.WithBypassSecret {
		bypassSecret = uuid.New().String()
		hash, err := security.HashBypassSecret(bypassSecret)
		if err != nil {
			return nil, "", fmt.Errorf("failed to hash bypass secret: %w", err)
		}
		admission.BypassSecretHash = hash
		expires := time.Now().Add(s.bypassTTL)
		admission.BypassExpiresAt = &expires
	}

	game := &models.Game{
		ID:             uuid.New().String(),
		CardID:         input.CardID,
		HostID:         hostID,
		JoinCode:       joinCode,
		Mode:           mode,
		Status:         models.GameStatusLobby,
		AllowLateJoins: input.AllowLateJoins,
		Admission:      admission,
		ExpiresAt:      time.Now().Add(s.retention),
	}

	if err := s.gameRepo.CreateGame(game); err != nil {
		return nil, "", err
	}
	if err := s.eventRepo.Append(game.ID, nil, models.EventGameCreated, joinCode); err != nil {
		return nil, "", err
	}

	return game, bypassSecret, nil
}

// freshJoinCode generates a join code not already in use.
func (s *GameService) freshJoinCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateJoinCode(utils.JoinCodeLength)
		if err != nil {
			return "", err
		}
		existing, err := s.gameRepo.GetGameByJoinCode(code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", errors.New("failed to generate unique join code")
}

// StartGame transitions a game from lobby to live.
func (s *GameService) StartGame(hostID int64, gameID string) (*models.Game, error) {
	game, err := s.hostGame(hostID, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusLobby {
		return nil, ErrInvalidTransition
	}

	if err := s.gameRepo.UpdateStatus(gameID, models.GameStatusLive, nil); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Append(gameID, nil, models.EventGameStarted, ""); err != nil {
		return nil, err
	}

	game.Status = models.GameStatusLive
	return game, nil
}

// EndGame transitions a game to ended and emails the host the final
// standings. Ended is terminal.
func (s *GameService) EndGame(ctx context.Context, hostID int64, gameID string) (*models.Game, error) {
	game, err := s.hostGame(hostID, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status == models.GameStatusEnded {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	if err := s.gameRepo.UpdateStatus(gameID, models.GameStatusEnded, &now); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Append(gameID, nil, models.EventGameEnded, ""); err != nil {
		return nil, err
	}

	game.Status = models.GameStatusEnded
	game.EndedAt = &now

	if s.email != nil && s.email.IsEnabled() {
		if err := s.sendFinalStandings(ctx, game); err != nil {
			// The game is already ended; a failed email is not worth
			// surfacing to the host as an error.
			log.Printf("Failed to send final standings for game %s: %v", gameID, err)
		}
	}

	return game, nil
}

func (s *GameService) sendFinalStandings(ctx context.Context, game *models.Game) error {
	host, err := s.hostRepo.GetHostByID(game.HostID)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}
	if host == nil {
		return errors.New("host not found")
	}
	card, err := s.cardRepo.GetCardByID(game.CardID)
	if err != nil {
		return fmt.Errorf("failed to get card: %w", err)
	}
	if card == nil {
		return ErrCardNotFound
	}
	players, err := s.playerRepo.ListPlayersByGame(game.ID)
	if err != nil {
		return err
	}
	entries := leaderboard.Rank(card, game.Key, approvedOnly(players))
	return s.email.SendFinalStandingsEmail(ctx, host.Email, host.DisplayName, card.Title, entries)
}

// PlayerPresence is the public per-player view inside a game's full
// state. Picks are deliberately absent: guests only ever see their own.
type PlayerPresence struct {
	ID          int64             `json:"id"`
	Nickname    string            `json:"nickname"`
	JoinStatus  models.JoinStatus `json:"joinStatus"`
	Submitted   bool              `json:"submitted"`
	SubmittedAt *time.Time        `json:"submittedAt,omitempty"`
	LastSeenAt  time.Time         `json:"lastSeenAt"`
}

// GameState is the composed snapshot a client renders from: game
// summary, card, key, locks, presence, standings and the recent event
// log, all read at one version.
type GameState struct {
	Game         models.GameSummary        `json:"game"`
	Status       models.GameStatus         `json:"status"`
	Card         *models.Card              `json:"card"`
	Key          models.KeyPayload         `json:"key"`
	Locks        models.LockState          `json:"locks"`
	Version      time.Time                 `json:"version"`
	Players      []PlayerPresence          `json:"players"`
	Leaderboard  []models.LeaderboardEntry `json:"leaderboard"`
	PendingJoins int                       `json:"pendingJoins"`
	Events       []models.GameEvent        `json:"events,omitempty"`
}

// FullState composes the complete view of a game.
func (s *GameService) FullState(gameID string, includeEvents bool) (*GameState, error) {
	game, err := s.gameRepo.GetGameByID(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	card, err := s.cardRepo.GetCardByID(game.CardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	players, err := s.playerRepo.ListPlayersByGame(gameID)
	if err != nil {
		return nil, err
	}

	approved := approvedOnly(players)

	state := &GameState{
		Game:        game.Summary(),
		Status:      game.Status,
		Card:        card,
		Key:         game.Key,
		Locks:       game.Locks,
		Version:     game.UpdatedAt,
		Leaderboard: leaderboard.Rank(card, game.Key, approved),
	}

	for _, p := range approved {
		state.Players = append(state.Players, PlayerPresence{
			ID:          p.ID,
			Nickname:    p.Nickname,
			JoinStatus:  p.JoinStatus,
			Submitted:   p.Submitted,
			SubmittedAt: p.SubmittedAt,
			LastSeenAt:  p.LastSeenAt,
		})
	}
	for _, p := range players {
		if p.JoinStatus == models.JoinStatusPending {
			state.PendingJoins++
		}
	}

	if includeEvents {
		events, err := s.eventRepo.ListByGame(gameID, eventLogLimit)
		if err != nil {
			return nil, err
		}
		state.Events = events
	}

	return state, nil
}

// JoinQRCode renders the game's join link as a PNG QR code. The caller
// supplies the raw bypass secret if one should be embedded; it is not
// recoverable from storage.
func (s *GameService) JoinQRCode(hostID int64, gameID, bypassSecret string, size int) ([]byte, error) {
	game, err := s.hostGame(hostID, gameID)
	if err != nil {
		return nil, err
	}
	return utils.JoinQRCodePNG(s.appBaseURL, game.JoinCode, bypassSecret, size)
}

// SetAllowLateJoins toggles late entry for a game.
func (s *GameService) SetAllowLateJoins(hostID int64, gameID string, allow bool) error {
	if _, err := s.hostGame(hostID, gameID); err != nil {
		return err
	}
	return s.gameRepo.SetAllowLateJoins(gameID, allow)
}

// ListGames returns all of a host's games, newest first.
func (s *GameService) ListGames(hostID int64) ([]models.Game, error) {
	return s.gameRepo.ListGamesByHost(hostID)
}

// CleanupExpired removes games past their retention expiry.
func (s *GameService) CleanupExpired() error {
	deleted, err := s.gameRepo.DeleteExpiredGames(time.Now())
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("Removed %d expired games", deleted)
	}
	return nil
}

// suggestionThreshold is the minimum fuzzy confidence worth showing the
// host. Below this, near-misses are indistinguishable from wrong answers.
const suggestionThreshold = 0.6

// OverrideSuggestion is a fuzzy near-miss the host may accept as an
// override: the guest's free-text answer disagrees with the key literally
// but looks like the same answer.
type OverrideSuggestion struct {
	TargetID    string  `json:"targetId"`
	Nickname    string  `json:"nickname"`
	KeyAnswer   string  `json:"keyAnswer"`
	GuestAnswer string  `json:"guestAnswer"`
	Winner      bool    `json:"winner,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// SuggestOverrides scans every guest's free-text answers against the key
// and returns the near-misses worth the host's attention. Targets that
// already carry an override are skipped. Suggestions never award points
// by themselves.
func (s *GameService) SuggestOverrides(hostID int64, gameID string) ([]OverrideSuggestion, error) {
	game, err := s.hostGame(hostID, gameID)
	if err != nil {
		return nil, err
	}
	card, err := s.cardRepo.GetCardByID(game.CardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	players, err := s.playerRepo.ListPlayersByGame(gameID)
	if err != nil {
		return nil, err
	}

	var suggestions []OverrideSuggestion
	for _, player := range approvedOnly(players) {
		for _, match := range card.Matches {
			result := game.Key.MatchResultByID(match.ID)
			picks := player.Picks.MatchPicksByID(match.ID)
			if result != nil && picks != nil {
				if s := suggestFor(match.ID, player.Nickname, result.Winner, picks.Winner, game.Key.WinnerOverrides); s != nil {
					s.Winner = true
					suggestions = append(suggestions, *s)
				}
			}
			for _, q := range match.Questions {
				if !freeTextQuestion(q) || result == nil || picks == nil {
					continue
				}
				keyValue := answerValue(result.Answers, q.ID)
				guestValue := answerValue(picks.Answers, q.ID)
				if s := suggestFor(q.ID, player.Nickname, keyValue, guestValue, game.Key.ScoreOverrides); s != nil {
					suggestions = append(suggestions, *s)
				}
			}
		}
		for _, q := range card.EventQuestions {
			if !freeTextQuestion(q) {
				continue
			}
			keyValue := answerValue(game.Key.EventAnswers, q.ID)
			guestValue := answerValue(player.Picks.EventAnswers, q.ID)
			if s := suggestFor(q.ID, player.Nickname, keyValue, guestValue, game.Key.ScoreOverrides); s != nil {
				suggestions = append(suggestions, *s)
			}
		}
	}
	return suggestions, nil
}

// suggestFor evaluates one guest/target pair. A suggestion is only worth
// raising when both answers exist, they disagree after normalization, no
// override has been decided yet, and the confidence clears the threshold.
func suggestFor(targetID, nickname, keyAnswer, guestAnswer string, decided []models.Override) *OverrideSuggestion {
	if keyAnswer == "" || guestAnswer == "" {
		return nil
	}
	if grading.NormalizeText(keyAnswer) == grading.NormalizeText(guestAnswer) {
		return nil
	}
	if models.FindOverride(decided, targetID, nickname) != nil {
		return nil
	}
	confidence := grading.Confidence(guestAnswer, keyAnswer)
	if confidence < suggestionThreshold {
		return nil
	}
	return &OverrideSuggestion{
		TargetID:    targetID,
		Nickname:    nickname,
		KeyAnswer:   keyAnswer,
		GuestAnswer: guestAnswer,
		Confidence:  confidence,
	}
}

// freeTextQuestion reports whether a question is graded by literal text
// comparison, the only case fuzzy suggestions apply to.
func freeTextQuestion(q models.Question) bool {
	return q.Type != models.QuestionThreshold &&
		(q.ValueType == "" || q.ValueType == models.ValueTypeText)
}

func answerValue(answers []models.Answer, questionID string) string {
	if a := models.FindAnswer(answers, questionID); a != nil {
		return a.Value
	}
	return ""
}

func (s *GameService) hostGame(hostID int64, gameID string) (*models.Game, error) {
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
	return game, nil
}

func approvedOnly(players []models.Player) []models.Player {
	var approved []models.Player
	for _, p := range players {
		if p.JoinStatus == models.JoinStatusApproved {
			approved = append(approved, p)
		}
	}
	return approved
}

package service

import (
	"errors"
	"fmt"
	"time"

	"pickem/internal/geo"
	"pickem/internal/models"
	"pickem/internal/repository"
	"pickem/internal/security"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrNotGameHost    = errors.New("not the game host")
)

// JoinOutcome classifies the result of a join attempt.
type JoinOutcome string

const (
	JoinOK              JoinOutcome = "ok"
	JoinPending         JoinOutcome = "pending"
	JoinRejected        JoinOutcome = "rejected"
	JoinNotFound        JoinOutcome = "not-found"
	JoinEnded           JoinOutcome = "ended"
	JoinEntryClosed     JoinOutcome = "entry-closed"
	JoinExpired         JoinOutcome = "expired"
	JoinNicknameTaken   JoinOutcome = "nickname-taken"
	JoinNicknameBlocked JoinOutcome = "nickname-blocked"
	JoinSessionMismatch JoinOutcome = "session-mismatch"
	JoinRateLimited     JoinOutcome = "rate-limited"
)

// JoinRequest carries one guest join attempt.
type JoinRequest struct {
	JoinCode     string
	Nickname     string
	SessionToken string
	BypassSecret string
	AuthMethod   models.AuthMethod
	IP           string
	Device       string
}

// JoinResult reports what happened to a join attempt. SessionToken is
// only set when a new session was minted for this request; it is never
// recoverable later.
type JoinResult struct {
	Outcome      JoinOutcome
	Game         *models.GameSummary
	Player       *models.Player
	SessionToken string
	IsNew        bool
	RetryAfter   time.Duration
}

// NicknameScreen checks nicknames against the blocked words list.
type NicknameScreen interface {
	NicknameAllowed(nickname string) (bool, error)
}

// AdmissionService handles guest entry into games: join-code lookup,
// geo-gated approval, bypass secrets and host review of pending joins.
type AdmissionService struct {
	gameRepo        *repository.GameRepository
	playerRepo      *repository.PlayerRepository
	eventRepo       *repository.EventRepository
	screen          NicknameScreen
	locator         geo.Locator
	limiter         *security.RateLimiter
	defaultRadiusKm float64
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(
	gameRepo *repository.GameRepository,
	playerRepo *repository.PlayerRepository,
	eventRepo *repository.EventRepository,
	screen NicknameScreen,
	locator geo.Locator,
	limiter *security.RateLimiter,
	defaultRadiusKm float64,
) *AdmissionService {
	return &AdmissionService{
		gameRepo:        gameRepo,
		playerRepo:      playerRepo,
		eventRepo:       eventRepo,
		screen:          screen,
		locator:         locator,
		limiter:         limiter,
		defaultRadiusKm: defaultRadiusKm,
	}
}

// ResolveJoinPreview looks up the public summary for a join code, for
// display before the guest commits to a nickname.
func (s *AdmissionService) ResolveJoinPreview(joinCode string) (*models.GameSummary, JoinOutcome, error) {
	game, err := s.gameRepo.GetGameByJoinCode(joinCode)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up join code: %w", err)
	}
	if game == nil {
		return nil, JoinNotFound, nil
	}
	if game.IsExpired(time.Now()) {
		return nil, JoinExpired, nil
	}
	summary := game.Summary()
	return &summary, JoinOK, nil
}

// Join processes a guest join attempt end to end. Re-joining with the
// same session and nickname is idempotent; the same session presenting a
// different nickname is reported as a mismatch so the client can mint a
// fresh session and retry once.
func (s *AdmissionService) Join(req JoinRequest) (*JoinResult, error) {
	token := req.SessionToken
	isNew := token == ""
	if isNew {
		token = security.GenerateSessionToken()
	}
	tokenHash := security.HashSessionToken(token)

	if s.limiter != nil {
		allowed, retryAfter := s.limiter.Allow(security.RequesterKey(req.IP, tokenHash))
		if !allowed {
			return &JoinResult{Outcome: JoinRateLimited, RetryAfter: retryAfter}, nil
		}
	}

	game, err := s.gameRepo.GetGameByJoinCode(req.JoinCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up join code: %w", err)
	}
	if game == nil {
		return &JoinResult{Outcome: JoinNotFound}, nil
	}

	summary := game.Summary()
	result := &JoinResult{Game: &summary}

	now := time.Now()
	if game.IsExpired(now) {
		result.Outcome = JoinExpired
		return result, nil
	}

	nicknameKey := models.NormalizeNickname(req.Nickname)
	if nicknameKey == "" {
		result.Outcome = JoinNicknameBlocked
		return result, nil
	}

	// An existing session re-joins regardless of entry being closed; only
	// genuinely new guests are turned away.
	if !isNew {
		existing, err := s.playerRepo.GetPlayerBySession(game.ID, tokenHash)
		if err != nil {
			return nil, fmt.Errorf("failed to look up session: %w", err)
		}
		if existing != nil {
			if existing.NicknameKey != nicknameKey {
				result.Outcome = JoinSessionMismatch
				return result, nil
			}
			if err := s.playerRepo.TouchLastSeen(existing.ID, req.Device); err != nil {
				return nil, err
			}
			result.Player = existing
			result.Outcome = outcomeForStatus(existing.JoinStatus)
			return result, nil
		}
	}

	if game.Status == models.GameStatusEnded {
		result.Outcome = JoinEnded
		return result, nil
	}
	if !game.AcceptsJoins() {
		result.Outcome = JoinEntryClosed
		return result, nil
	}

	if s.screen != nil {
		allowed, err := s.screen.NicknameAllowed(nicknameKey)
		if err != nil {
			return nil, fmt.Errorf("failed to screen nickname: %w", err)
		}
		if !allowed {
			result.Outcome = JoinNicknameBlocked
			return result, nil
		}
	}

	holder, err := s.playerRepo.GetPlayerByNickname(game.ID, nicknameKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check nickname: %w", err)
	}
	if holder != nil {
		result.Outcome = JoinNicknameTaken
		return result, nil
	}

	status, joinGeo := s.admit(game, req, now)

	authMethod := req.AuthMethod
	if authMethod == "" {
		authMethod = models.AuthMethodGuest
	}

	player := &models.Player{
		GameID:           game.ID,
		Nickname:         req.Nickname,
		NicknameKey:      nicknameKey,
		SessionTokenHash: tokenHash,
		AuthMethod:       authMethod,
		JoinStatus:       status,
		Geo:              joinGeo,
		Device:           req.Device,
	}
	if status == models.JoinStatusApproved {
		approvedAt := now
		player.ApprovedAt = &approvedAt
	}

	if err := s.playerRepo.CreatePlayer(player); err != nil {
		// A concurrent join may have claimed the nickname between the
		// check and the insert. One re-read settles it.
		holder, lookupErr := s.playerRepo.GetPlayerByNickname(game.ID, nicknameKey)
		if lookupErr == nil && holder != nil {
			result.Outcome = JoinNicknameTaken
			return result, nil
		}
		return nil, err
	}

	eventType := models.EventPlayerJoined
	if status == models.JoinStatusPending {
		eventType = models.EventJoinPending
	}
	if err := s.eventRepo.Append(game.ID, &player.ID, eventType, player.Nickname); err != nil {
		return nil, err
	}

	result.Player = player
	result.SessionToken = token
	result.IsNew = true
	result.Outcome = outcomeForStatus(status)
	return result, nil
}

// admit decides the initial join status for a new guest and records the
// geolocation evidence the decision was based on.
func (s *AdmissionService) admit(game *models.Game, req JoinRequest, now time.Time) (models.JoinStatus, models.JoinGeo) {
	joinGeo := models.JoinGeo{IP: req.IP}

	if req.BypassSecret != "" && security.CheckBypassSecret(req.BypassSecret, game.Admission.BypassSecretHash) {
		expires := game.Admission.BypassExpiresAt
		if expires == nil || now.Before(*expires) {
			return models.JoinStatusApproved, joinGeo
		}
	}

	if game.Mode == models.GameModeSolo {
		return models.JoinStatusApproved, joinGeo
	}

	// Without host coordinates the distance check is impossible, so new
	// guests wait for the host rather than slipping in.
	if game.Admission.Latitude == nil || game.Admission.Longitude == nil {
		return models.JoinStatusPending, joinGeo
	}

	location, err := s.locator.Locate(req.IP)
	if err != nil || location == nil {
		// Unlocatable guests wait for the host rather than slipping in.
		return models.JoinStatusPending, joinGeo
	}

	joinGeo.City = location.City
	joinGeo.Country = location.Country
	joinGeo.Latitude = &location.Latitude
	joinGeo.Longitude = &location.Longitude

	radius := game.Admission.RadiusKm
	if radius <= 0 {
		radius = s.defaultRadiusKm
	}

	distance := geo.DistanceKm(
		geo.Point{Latitude: *game.Admission.Latitude, Longitude: *game.Admission.Longitude},
		location.Point,
	)
	joinGeo.DistanceKm = &distance

	if distance <= radius {
		return models.JoinStatusApproved, joinGeo
	}
	return models.JoinStatusPending, joinGeo
}

// ReviewJoinRequest lets the game's host approve or reject a pending
// join. Rejection is terminal; an already-decided request cannot be
// re-decided.
func (s *AdmissionService) ReviewJoinRequest(hostID int64, gameID string, playerID int64, approve bool) (*models.Player, error) {
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

	player, err := s.playerRepo.GetPlayerByID(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil || player.GameID != gameID {
		return nil, ErrPlayerNotFound
	}
	if player.JoinStatus != models.JoinStatusPending {
		return nil, fmt.Errorf("join request already %s", player.JoinStatus)
	}

	status := models.JoinStatusRejected
	eventType := models.EventJoinRejected
	var approvedAt *time.Time
	if approve {
		status = models.JoinStatusApproved
		eventType = models.EventJoinApproved
		now := time.Now()
		approvedAt = &now
	}

	if err := s.playerRepo.UpdateJoinStatus(player.ID, status, approvedAt); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Append(gameID, &player.ID, eventType, player.Nickname); err != nil {
		return nil, err
	}

	player.JoinStatus = status
	player.ApprovedAt = approvedAt
	return player, nil
}

// PendingJoins lists the join requests waiting for the host's decision.
func (s *AdmissionService) PendingJoins(hostID int64, gameID string) ([]models.Player, error) {
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

	players, err := s.playerRepo.ListPlayersByGame(gameID)
	if err != nil {
		return nil, err
	}

	var pending []models.Player
	for _, p := range players {
		if p.JoinStatus == models.JoinStatusPending {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

func outcomeForStatus(status models.JoinStatus) JoinOutcome {
	switch status {
	case models.JoinStatusPending:
		return JoinPending
	case models.JoinStatusRejected:
		return JoinRejected
	default:
		return JoinOK
	}
}

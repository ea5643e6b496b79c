package service

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pickem/internal/database"
	"pickem/internal/geo"
	"pickem/internal/models"
	"pickem/internal/repository"
	"pickem/internal/security"
)

// Host coordinates every seeded game is gated on.
const (
	hostLat = 40.7128
	hostLon = -74.0060
)

type testEnv struct {
	db        *database.DB
	hosts     *repository.HostRepository
	cards     *repository.CardRepository
	games     *repository.GameRepository
	players   *repository.PlayerRepository
	events    *repository.EventRepository
	locator   *stubLocator
	admission *AdmissionService
	sync      *SyncService
}

// stubLocator resolves every requester to one fixed location. A nil
// location means the requester cannot be placed.
type stubLocator struct {
	location *geo.Location
}

func (l *stubLocator) Locate(string) (*geo.Location, error) { return l.location, nil }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database-backed test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	env := &testEnv{
		db:      db,
		hosts:   repository.NewHostRepository(db),
		cards:   repository.NewCardRepository(db),
		games:   repository.NewGameRepository(db),
		players: repository.NewPlayerRepository(db),
		events:  repository.NewEventRepository(db),
	}
	env.locator = &stubLocator{}
	env.admission = NewAdmissionService(env.games, env.players, env.events, db, env.locator, nil, 0.5)
	env.sync = NewSyncService(env.games, env.players, env.events)
	return env
}

// createGame seeds a host, a card and a game in one step.
func (env *testEnv) createGame(t *testing.T, mutate func(*models.Game)) (*models.Host, *models.Game) {
	t.Helper()

	host, err := env.hosts.CreateHost("host@example.com", "hash", "Host")
	if err != nil {
		t.Fatalf("failed to create host: %v", err)
	}

	card := &models.Card{ID: "card-1", Title: "Season Finale"}
	if err := env.cards.CreateCard(host.ID, card); err != nil {
		t.Fatalf("failed to create card: %v", err)
	}

	lat, lon := hostLat, hostLon
	game := &models.Game{
		ID:             "game-1",
		CardID:         card.ID,
		HostID:         host.ID,
		JoinCode:       "ABC234",
		Mode:           models.GameModeRoom,
		Status:         models.GameStatusLobby,
		AllowLateJoins: true,
		Admission:      models.AdmissionSettings{Latitude: &lat, Longitude: &lon, RadiusKm: 0.5},
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	if mutate != nil {
		mutate(game)
	}
	if err := env.games.CreateGame(game); err != nil {
		t.Fatalf("failed to create game: %v", err)
	}
	return host, game
}

// placeGuestAt points the stub locator at fixed coordinates for all
// subsequent joins.
func (env *testEnv) placeGuestAt(lat, lon float64) {
	env.locator.location = &geo.Location{Point: geo.Point{Latitude: lat, Longitude: lon}}
}

func (env *testEnv) join(t *testing.T, req JoinRequest) *JoinResult {
	t.Helper()
	result, err := env.admission.Join(req)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	return result
}

func TestJoinNewGuestAndRejoin(t *testing.T) {
	env := newTestEnv(t)
	_, game := env.createGame(t, nil)
	env.placeGuestAt(hostLat, hostLon)

	result := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Cody"})
	if result.Outcome != JoinOK {
		t.Fatalf("outcome = %q, want %q", result.Outcome, JoinOK)
	}
	if !result.IsNew || result.SessionToken == "" {
		t.Fatal("expected a freshly minted session token")
	}
	if result.Player.JoinStatus != models.JoinStatusApproved {
		t.Errorf("join status = %q, want approved", result.Player.JoinStatus)
	}

	// Same session, same nickname: idempotent re-join without a new token.
	again := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "cody", SessionToken: result.SessionToken})
	if again.Outcome != JoinOK {
		t.Fatalf("re-join outcome = %q, want %q", again.Outcome, JoinOK)
	}
	if again.IsNew || again.SessionToken != "" {
		t.Error("re-join should not mint a new session token")
	}
	if again.Player.ID != result.Player.ID {
		t.Errorf("re-join player ID = %d, want %d", again.Player.ID, result.Player.ID)
	}

	// Same session, different nickname: mismatch, so the client can retry
	// with a fresh session.
	mismatch := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Riley", SessionToken: result.SessionToken})
	if mismatch.Outcome != JoinSessionMismatch {
		t.Errorf("outcome = %q, want %q", mismatch.Outcome, JoinSessionMismatch)
	}

	// New session claiming a normalized-equal nickname: taken.
	taken := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "  CODY "})
	if taken.Outcome != JoinNicknameTaken {
		t.Errorf("outcome = %q, want %q", taken.Outcome, JoinNicknameTaken)
	}
}

func TestJoinClosedStates(t *testing.T) {
	env := newTestEnv(t)
	_, game := env.createGame(t, nil)

	unknown := env.join(t, JoinRequest{JoinCode: "ZZZZZZ", Nickname: "Cody"})
	if unknown.Outcome != JoinNotFound {
		t.Errorf("outcome = %q, want %q", unknown.Outcome, JoinNotFound)
	}

	blank := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "   "})
	if blank.Outcome != JoinNicknameBlocked {
		t.Errorf("outcome = %q, want %q", blank.Outcome, JoinNicknameBlocked)
	}

	// Live game with late joins disabled turns new guests away.
	if err := env.games.UpdateStatus(game.ID, models.GameStatusLive, nil); err != nil {
		t.Fatalf("failed to start game: %v", err)
	}
	if err := env.games.SetAllowLateJoins(game.ID, false); err != nil {
		t.Fatalf("failed to close entry: %v", err)
	}
	closed := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Cody"})
	if closed.Outcome != JoinEntryClosed {
		t.Errorf("outcome = %q, want %q", closed.Outcome, JoinEntryClosed)
	}

	now := time.Now()
	if err := env.games.UpdateStatus(game.ID, models.GameStatusEnded, &now); err != nil {
		t.Fatalf("failed to end game: %v", err)
	}
	ended := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Cody"})
	if ended.Outcome != JoinEnded {
		t.Errorf("outcome = %q, want %q", ended.Outcome, JoinEnded)
	}
}

func TestJoinGeoGatedPendingAndReview(t *testing.T) {
	env := newTestEnv(t)
	host, game := env.createGame(t, nil)

	// The locator cannot place the guest, so the join waits for the host
	// instead of slipping past the geo gate.
	result := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Cody"})
	if result.Outcome != JoinPending {
		t.Fatalf("outcome = %q, want %q", result.Outcome, JoinPending)
	}

	pending, err := env.admission.PendingJoins(host.ID, game.ID)
	if err != nil {
		t.Fatalf("PendingJoins failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != result.Player.ID {
		t.Fatalf("pending = %+v, want the one joined player", pending)
	}

	player, err := env.admission.ReviewJoinRequest(host.ID, game.ID, result.Player.ID, true)
	if err != nil {
		t.Fatalf("ReviewJoinRequest failed: %v", err)
	}
	if player.JoinStatus != models.JoinStatusApproved || player.ApprovedAt == nil {
		t.Errorf("player after approval = %+v, want approved with timestamp", player)
	}

	// A decided request cannot be re-decided.
	if _, err := env.admission.ReviewJoinRequest(host.ID, game.ID, result.Player.ID, false); err == nil {
		t.Error("expected error reviewing an already-approved join")
	}

	// Wrong host cannot review.
	if _, err := env.admission.PendingJoins(host.ID+1, game.ID); !errors.Is(err, ErrNotGameHost) {
		t.Errorf("PendingJoins with wrong host = %v, want ErrNotGameHost", err)
	}
}

func TestJoinBypassSecret(t *testing.T) {
	env := newTestEnv(t)
	hash, err := security.HashBypassSecret("door-secret")
	if err != nil {
		t.Fatalf("failed to hash bypass secret: %v", err)
	}
	_, game := env.createGame(t, func(g *models.Game) {
		g.Admission.BypassSecretHash = hash
	})

	// The hash round-trips through storage; the secret from the printed QR
	// code must still open the door on a fresh read of the game.
	result := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Cody", BypassSecret: "door-secret"})
	if result.Outcome != JoinOK {
		t.Errorf("outcome with valid bypass = %q, want %q", result.Outcome, JoinOK)
	}

	wrong := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Riley", BypassSecret: "guess"})
	if wrong.Outcome != JoinPending {
		t.Errorf("outcome with bad bypass = %q, want %q", wrong.Outcome, JoinPending)
	}
}

func TestJoinWithoutHostLocationRequiresReview(t *testing.T) {
	env := newTestEnv(t)
	_, game := env.createGame(t, func(g *models.Game) {
		g.Admission = models.AdmissionSettings{RadiusKm: 0.5}
	})

	// Even a locatable guest waits for the host when the game has no
	// coordinates to measure against.
	env.placeGuestAt(hostLat, hostLon)

	result := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Cody"})
	if result.Outcome != JoinPending {
		t.Fatalf("outcome = %q, want %q", result.Outcome, JoinPending)
	}
	if result.Player.JoinStatus != models.JoinStatusPending {
		t.Errorf("join status = %q, want pending", result.Player.JoinStatus)
	}
}

func TestWriteKeyVersionConflict(t *testing.T) {
	env := newTestEnv(t)
	host, game := env.createGame(t, nil)

	key := models.KeyPayload{
		Matches: []models.MatchResult{{MatchID: "m1", Winner: "Team A"}},
	}
	state, err := env.sync.WriteKey(host.ID, game.ID, key, models.LockState{}, nil)
	if err != nil {
		t.Fatalf("WriteKey failed: %v", err)
	}

	// A stale token yields the current state plus the conflict error.
	stale := state.Version.Add(-time.Minute)
	conflicted, err := env.sync.WriteKey(host.ID, game.ID, models.KeyPayload{}, models.LockState{}, &stale)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("WriteKey with stale token = %v, want ErrVersionConflict", err)
	}
	if len(conflicted.Key.Matches) != 1 || conflicted.Key.Matches[0].Winner != "Team A" {
		t.Errorf("conflict state carries %+v, want the stored key", conflicted.Key)
	}
	if !conflicted.Version.Equal(state.Version) {
		t.Errorf("conflict version = %v, want %v", conflicted.Version, state.Version)
	}

	// The matching token wins and bumps the version.
	next, err := env.sync.WriteKey(host.ID, game.ID, key, models.LockState{Global: true}, &state.Version)
	if err != nil {
		t.Fatalf("WriteKey with current token failed: %v", err)
	}
	if !next.Version.After(state.Version) {
		t.Errorf("version %v not after %v", next.Version, state.Version)
	}

	if _, err := env.sync.WriteKey(host.ID+1, game.ID, key, models.LockState{}, nil); !errors.Is(err, ErrNotGameHost) {
		t.Errorf("WriteKey as wrong host = %v, want ErrNotGameHost", err)
	}
}

func TestWritePicksLockMergeAndSubmit(t *testing.T) {
	env := newTestEnv(t)
	host, game := env.createGame(t, nil)
	env.placeGuestAt(hostLat, hostLon)

	joined := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Cody"})
	if joined.Outcome != JoinOK {
		t.Fatalf("join outcome = %q, want %q", joined.Outcome, JoinOK)
	}
	token := joined.SessionToken

	locks := models.LockState{Matches: map[string]models.Lock{"m1": {Locked: true, Source: models.LockSourceHost}}}
	if _, err := env.sync.WriteKey(host.ID, game.ID, models.KeyPayload{}, locks, nil); err != nil {
		t.Fatalf("WriteKey failed: %v", err)
	}

	incoming := models.PicksPayload{
		Matches: []models.MatchPicks{
			{MatchID: "m1", Winner: "Team A"},
			{MatchID: "m2", Winner: "Team B"},
		},
	}
	state, err := env.sync.WritePicks(game.ID, token, incoming, false, nil)
	if err != nil {
		t.Fatalf("WritePicks failed: %v", err)
	}

	// The locked match keeps its stored (empty) value; the unlocked edit
	// still lands.
	m1 := state.Picks.MatchPicksByID("m1")
	if m1 == nil || m1.Winner != "" {
		t.Errorf("locked match picks = %+v, want empty winner", m1)
	}
	m2 := state.Picks.MatchPicksByID("m2")
	if m2 == nil || m2.Winner != "Team B" {
		t.Errorf("unlocked match picks = %+v, want winner Team B", m2)
	}

	// Submission is one-way and keeps its original timestamp.
	submitted, err := env.sync.WritePicks(game.ID, token, incoming, true, &state.Version)
	if err != nil {
		t.Fatalf("WritePicks submit failed: %v", err)
	}
	if !submitted.Submitted || submitted.SubmittedAt == nil {
		t.Fatal("expected submitted state with timestamp")
	}
	later, err := env.sync.WritePicks(game.ID, token, incoming, false, &submitted.Version)
	if err != nil {
		t.Fatalf("WritePicks after submit failed: %v", err)
	}
	if !later.Submitted {
		t.Error("submitted flag dropped by a later write")
	}
	if later.SubmittedAt == nil || !later.SubmittedAt.Equal(*submitted.SubmittedAt) {
		t.Errorf("submitted at = %v, want %v", later.SubmittedAt, submitted.SubmittedAt)
	}

	// A stale token is a conflict carrying the current stored state.
	stale := state.Version.Add(-time.Minute)
	conflicted, err := env.sync.WritePicks(game.ID, token, incoming, false, &stale)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("WritePicks with stale token = %v, want ErrVersionConflict", err)
	}
	if !conflicted.Version.Equal(later.Version) {
		t.Errorf("conflict version = %v, want %v", conflicted.Version, later.Version)
	}

	now := time.Now()
	if err := env.games.UpdateStatus(game.ID, models.GameStatusEnded, &now); err != nil {
		t.Fatalf("failed to end game: %v", err)
	}
	if _, err := env.sync.WritePicks(game.ID, token, incoming, false, nil); !errors.Is(err, ErrGameEnded) {
		t.Errorf("WritePicks on ended game = %v, want ErrGameEnded", err)
	}
}

func TestSuggestOverrides(t *testing.T) {
	env := newTestEnv(t)
	host, game := env.createGame(t, nil)
	env.placeGuestAt(hostLat, hostLon)

	card := &models.Card{
		ID:            "card-1",
		Title:         "Season Finale",
		DefaultPoints: 1,
		Matches: []models.Match{
			{ID: "m1", Title: "Main Event", Questions: []models.Question{
				{ID: "q1", Text: "Who interferes?"},
			}},
		},
	}
	if err := env.cards.UpdateCard(card); err != nil {
		t.Fatalf("failed to update card: %v", err)
	}

	joined := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Cody"})
	if joined.Outcome != JoinOK {
		t.Fatalf("join outcome = %q, want %q", joined.Outcome, JoinOK)
	}

	key := models.KeyPayload{
		Matches: []models.MatchResult{{
			MatchID: "m1",
			Winner:  "Cody Rhodes",
			Answers: []models.Answer{{QuestionID: "q1", Value: "Undertaker"}},
		}},
	}
	if _, err := env.sync.WriteKey(host.ID, game.ID, key, models.LockState{}, nil); err != nil {
		t.Fatalf("WriteKey failed: %v", err)
	}

	picks := models.PicksPayload{
		Matches: []models.MatchPicks{{
			MatchID: "m1",
			Winner:  "Rhodes",
			Answers: []models.Answer{{QuestionID: "q1", Value: "Undertakr"}},
		}},
	}
	if _, err := env.sync.WritePicks(game.ID, joined.SessionToken, picks, false, nil); err != nil {
		t.Fatalf("WritePicks failed: %v", err)
	}

	games := NewGameService(env.games, env.cards, env.players, env.events, env.hosts, nil, "http://localhost", time.Hour, time.Hour, 0.5)
	suggestions, err := games.SuggestOverrides(host.ID, game.ID)
	if err != nil {
		t.Fatalf("SuggestOverrides failed: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("got %d suggestions, want 2: %+v", len(suggestions), suggestions)
	}

	byTarget := make(map[string]OverrideSuggestion)
	for _, s := range suggestions {
		byTarget[s.TargetID] = s
	}
	winner, ok := byTarget["m1"]
	if !ok || !winner.Winner || winner.Confidence < suggestionThreshold {
		t.Errorf("winner suggestion = %+v, want near-miss for m1", winner)
	}
	bonus, ok := byTarget["q1"]
	if !ok || bonus.Winner || bonus.GuestAnswer != "Undertakr" {
		t.Errorf("bonus suggestion = %+v, want near-miss for q1", bonus)
	}

	// A decided override suppresses its suggestion.
	key.ScoreOverrides = []models.Override{{TargetID: "q1", Nickname: "Cody", Accepted: true, Source: models.OverrideSourceHost}}
	if _, err := env.sync.WriteKey(host.ID, game.ID, key, models.LockState{}, nil); err != nil {
		t.Fatalf("WriteKey failed: %v", err)
	}
	suggestions, err = games.SuggestOverrides(host.ID, game.ID)
	if err != nil {
		t.Fatalf("SuggestOverrides failed: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].TargetID != "m1" {
		t.Errorf("suggestions after override = %+v, want only m1", suggestions)
	}
}

func TestReadPicksRequiresApproval(t *testing.T) {
	env := newTestEnv(t)
	_, game := env.createGame(t, nil)

	joined := env.join(t, JoinRequest{JoinCode: game.JoinCode, Nickname: "Cody"})
	if joined.Outcome != JoinPending {
		t.Fatalf("join outcome = %q, want %q", joined.Outcome, JoinPending)
	}

	if _, err := env.sync.ReadPicks(game.ID, joined.SessionToken); !errors.Is(err, ErrNotApproved) {
		t.Errorf("ReadPicks while pending = %v, want ErrNotApproved", err)
	}
	if _, err := env.sync.ReadPicks(game.ID, "no-such-token"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("ReadPicks with unknown token = %v, want ErrPlayerNotFound", err)
	}
}

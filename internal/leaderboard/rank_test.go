package leaderboard

import (
	"testing"
	"time"

	"pickem/internal/models"
)

func testCard() *models.Card {
	return &models.Card{
		ID:            "card-1",
		Title:         "Season Finale",
		DefaultPoints: 2,
		Matches: []models.Match{
			{ID: "m1", Title: "Main Event"},
			{
				ID:             "m2",
				Title:          "Battle Royal",
				IsBattleRoyal:  true,
				SurprisePoints: 3,
				Questions: []models.Question{
					{ID: "q1", Text: "Who eliminates last?", ValueType: models.ValueTypeText},
				},
			},
		},
		EventQuestions: []models.Question{
			{ID: "e1", Text: "Total falls", ValueType: models.ValueTypeNumerical},
		},
		Tiebreaker: &models.Question{
			ID: "tb", Text: "Main event length", ValueType: models.ValueTypeTime, Rule: models.RuleClosest,
		},
	}
}

func testKey() models.KeyPayload {
	return models.KeyPayload{
		Matches: []models.MatchResult{
			{MatchID: "m1", Winner: "Cody Rhodes"},
			{
				MatchID:  "m2",
				Winner:   "Bianca Belair",
				Entrants: []string{"Surprise One", "Surprise Two"},
				Answers:  []models.Answer{{QuestionID: "q1", Value: "Bianca Belair"}},
			},
		},
		EventAnswers: []models.Answer{{QuestionID: "e1", Value: "4"}},
		Tiebreaker:   &models.TiebreakerAnswer{Value: "17:32"},
	}
}

func player(id int64, nickname string, picks models.PicksPayload) models.Player {
	return models.Player{
		ID:       id,
		Nickname: nickname,
		Picks:    picks,
	}
}

func TestRankScoringAndOrder(t *testing.T) {
	card := testCard()
	key := testKey()

	players := []models.Player{
		player(1, "alice", models.PicksPayload{
			Matches: []models.MatchPicks{
				{MatchID: "m1", Winner: "Cody Rhodes"},
				{MatchID: "m2", Winner: "Bianca Belair", Entrants: []string{"surprise one", "Nobody"},
					Answers: []models.Answer{{QuestionID: "q1", Value: "Bianca Belair"}}},
			},
			EventAnswers: []models.Answer{{QuestionID: "e1", Value: "4"}},
		}),
		player(2, "bob", models.PicksPayload{
			Matches: []models.MatchPicks{{MatchID: "m1", Winner: "Roman Reigns"}},
		}),
	}

	entries := Rank(card, key, players)

	if entries[0].Nickname != "alice" {
		t.Fatalf("top entry = %q, want alice", entries[0].Nickname)
	}
	got := entries[0].Breakdown
	// Two winner picks at the card default, one bonus answer at default,
	// one event answer at default, one surprise entrant at three.
	want := models.ScoreBreakdown{WinnerPoints: 4, BonusPoints: 4, SurprisePoints: 3}
	if got != want {
		t.Errorf("alice breakdown = %+v, want %+v", got, want)
	}
	if entries[0].Total != 11 {
		t.Errorf("alice total = %d, want 11", entries[0].Total)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Errorf("ranks = %d, %d, want 1, 2", entries[0].Rank, entries[1].Rank)
	}

	if entries[1].Nickname != "bob" || entries[1].Total != 0 {
		t.Errorf("bob entry = %+v, want zero total", entries[1])
	}
}

func TestRankStableTies(t *testing.T) {
	card := &models.Card{ID: "c", DefaultPoints: 2, Matches: []models.Match{{ID: "m1"}}}
	key := models.KeyPayload{Matches: []models.MatchResult{{MatchID: "m1", Winner: "X"}}}

	picks := models.PicksPayload{Matches: []models.MatchPicks{{MatchID: "m1", Winner: "X"}}}
	players := []models.Player{
		player(1, "first", picks),
		player(2, "second", picks),
		player(3, "third", models.PicksPayload{}),
	}

	entries := Rank(card, key, players)

	if entries[0].Nickname != "first" || entries[1].Nickname != "second" {
		t.Errorf("tied entries reordered: %q, %q", entries[0].Nickname, entries[1].Nickname)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 1 {
		t.Errorf("tied ranks = %d, %d, want shared rank 1", entries[0].Rank, entries[1].Rank)
	}
	if entries[2].Rank != 3 {
		t.Errorf("rank after tie = %d, want 3", entries[2].Rank)
	}
}

func TestRankOverridesApply(t *testing.T) {
	card := &models.Card{
		ID:            "c",
		DefaultPoints: 2,
		Matches: []models.Match{
			{ID: "m1", Questions: []models.Question{{ID: "q1", ValueType: models.ValueTypeText}}},
		},
	}
	key := models.KeyPayload{
		Matches: []models.MatchResult{
			{MatchID: "m1", Answers: []models.Answer{{QuestionID: "q1", Value: "Cody Rhodes"}}},
		},
		ScoreOverrides: []models.Override{
			{TargetID: "q1", Nickname: "alice", Accepted: true, Source: models.OverrideSourceHost},
		},
	}
	players := []models.Player{
		player(1, "Alice", models.PicksPayload{
			Matches: []models.MatchPicks{
				{MatchID: "m1", Answers: []models.Answer{{QuestionID: "q1", Value: "Rhodes"}}},
			},
		}),
	}

	entries := Rank(card, key, players)
	if entries[0].Breakdown.BonusPoints != 2 {
		t.Errorf("BonusPoints = %d, want 2 via accepted override", entries[0].Breakdown.BonusPoints)
	}
}

func TestRankClosestBonus(t *testing.T) {
	card := &models.Card{
		ID:            "c",
		DefaultPoints: 2,
		Tiebreaker:    &models.Question{ID: "tb", ValueType: models.ValueTypeTime, Rule: models.RuleClosest, Points: 5},
	}
	key := models.KeyPayload{Tiebreaker: &models.TiebreakerAnswer{Value: "17:32"}}

	early := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)

	t.Run("closest guess wins the bonus", func(t *testing.T) {
		players := []models.Player{
			player(1, "near", models.PicksPayload{Tiebreaker: "17:30"}),
			player(2, "far", models.PicksPayload{Tiebreaker: "15:00"}),
		}
		entries := Rank(card, key, players)
		if entries[0].Nickname != "near" || entries[0].Total != 5 {
			t.Errorf("top = %q with %d, want near with 5", entries[0].Nickname, entries[0].Total)
		}
		if entries[1].Total != 0 {
			t.Errorf("far total = %d, want 0", entries[1].Total)
		}
	})

	t.Run("distance tie goes to the earliest submission", func(t *testing.T) {
		a := player(1, "slow", models.PicksPayload{Tiebreaker: "17:30"})
		a.SubmittedAt = &late
		b := player(2, "fast", models.PicksPayload{Tiebreaker: "17:34"})
		b.SubmittedAt = &early

		entries := Rank(card, key, []models.Player{a, b})
		if entries[0].Nickname != "fast" || entries[0].Total != 5 {
			t.Errorf("top = %q with %d, want fast with 5", entries[0].Nickname, entries[0].Total)
		}
	})

	t.Run("full tie goes to the earlier player row", func(t *testing.T) {
		players := []models.Player{
			player(1, "one", models.PicksPayload{Tiebreaker: "17:30"}),
			player(2, "two", models.PicksPayload{Tiebreaker: "17:34"}),
		}
		entries := Rank(card, key, players)
		if entries[0].Nickname != "one" {
			t.Errorf("top = %q, want one", entries[0].Nickname)
		}
	})
}

func TestRankUnsubmittedStillScored(t *testing.T) {
	card := &models.Card{ID: "c", DefaultPoints: 2, Matches: []models.Match{{ID: "m1"}}}
	key := models.KeyPayload{Matches: []models.MatchResult{{MatchID: "m1", Winner: "X"}}}

	p := player(1, "partial", models.PicksPayload{Matches: []models.MatchPicks{{MatchID: "m1", Winner: "X"}}})
	p.Submitted = false

	entries := Rank(card, key, []models.Player{p})
	if entries[0].Total != 2 {
		t.Errorf("Total = %d, want 2 for unsubmitted guest", entries[0].Total)
	}
	if entries[0].Submitted {
		t.Error("Submitted = true, want false")
	}
}

package payload

import (
	"testing"

	"pickem/internal/models"
)

func TestApplyLocksMixedWrite(t *testing.T) {
	stored := models.PicksPayload{
		Matches: []models.MatchPicks{
			{MatchID: "m1", Winner: "Cody Rhodes"},
			{MatchID: "m2", Winner: "Bianca Belair"},
		},
	}
	incoming := models.PicksPayload{
		Matches: []models.MatchPicks{
			{MatchID: "m1", Winner: "Roman Reigns"},
			{MatchID: "m2", Winner: "Rhea Ripley"},
		},
	}
	locks := models.LockState{
		Matches: map[string]models.Lock{"m1": {Locked: true, Source: models.LockSourceTimer}},
	}

	got := ApplyLocks(stored, incoming, locks)

	if winner := got.MatchPicksByID("m1").Winner; winner != "Cody Rhodes" {
		t.Errorf("locked match winner = %q, want stored value kept", winner)
	}
	if winner := got.MatchPicksByID("m2").Winner; winner != "Rhea Ripley" {
		t.Errorf("unlocked match winner = %q, want incoming value", winner)
	}
}

func TestApplyLocksQuestionGranularity(t *testing.T) {
	stored := models.PicksPayload{
		Matches: []models.MatchPicks{
			{MatchID: "m1", Answers: []models.Answer{
				{QuestionID: "q1", Value: "old"},
				{QuestionID: "q2", Value: "old"},
			}},
		},
		EventAnswers: []models.Answer{{QuestionID: "e1", Value: "old"}},
	}
	incoming := models.PicksPayload{
		Matches: []models.MatchPicks{
			{MatchID: "m1", Answers: []models.Answer{
				{QuestionID: "q1", Value: "new"},
				{QuestionID: "q2", Value: "new"},
			}},
		},
		EventAnswers: []models.Answer{{QuestionID: "e1", Value: "new"}},
	}
	locks := models.LockState{
		MatchQuestions: map[string]models.Lock{"q1": {Locked: true, Source: models.LockSourceHost}},
		EventQuestions: map[string]models.Lock{"e1": {Locked: true, Source: models.LockSourceHost}},
	}

	got := ApplyLocks(stored, incoming, locks)

	answers := got.MatchPicksByID("m1").Answers
	if a := models.FindAnswer(answers, "q1"); a.Value != "old" {
		t.Errorf("locked question answer = %q, want old", a.Value)
	}
	if a := models.FindAnswer(answers, "q2"); a.Value != "new" {
		t.Errorf("unlocked question answer = %q, want new", a.Value)
	}
	if a := models.FindAnswer(got.EventAnswers, "e1"); a.Value != "old" {
		t.Errorf("locked event answer = %q, want old", a.Value)
	}
}

func TestApplyLocksGlobal(t *testing.T) {
	stored := models.PicksPayload{Tiebreaker: "900"}
	incoming := models.PicksPayload{
		Tiebreaker: "1000",
		Matches:    []models.MatchPicks{{MatchID: "m1", Winner: "anyone"}},
	}

	got := ApplyLocks(stored, incoming, models.LockState{Global: true})

	if got.Tiebreaker != "900" {
		t.Errorf("Tiebreaker = %q, want stored value under global lock", got.Tiebreaker)
	}
	if len(got.Matches) != 0 {
		t.Error("new match picks applied under global lock")
	}
}

func TestApplyLocksDroppedMatchKeepsLockedParts(t *testing.T) {
	stored := models.PicksPayload{
		Matches: []models.MatchPicks{
			{MatchID: "m1", Winner: "Cody Rhodes", Answers: []models.Answer{{QuestionID: "q1", Value: "kept"}}},
		},
	}
	// Incoming payload omits m1 entirely.
	incoming := models.PicksPayload{}
	locks := models.LockState{
		Matches:        map[string]models.Lock{"m1": {Locked: true, Source: models.LockSourceHost}},
		MatchQuestions: map[string]models.Lock{"q1": {Locked: true, Source: models.LockSourceHost}},
	}

	got := ApplyLocks(stored, incoming, locks)

	kept := got.MatchPicksByID("m1")
	if kept == nil {
		t.Fatal("locked match dropped from payload")
	}
	if kept.Winner != "Cody Rhodes" {
		t.Errorf("Winner = %q, want kept", kept.Winner)
	}
	if a := models.FindAnswer(kept.Answers, "q1"); a == nil || a.Value != "kept" {
		t.Error("locked answer not retained")
	}
}

func TestApplyLocksUnlockedTiebreaker(t *testing.T) {
	stored := models.PicksPayload{Tiebreaker: "900"}
	incoming := models.PicksPayload{Tiebreaker: "950"}

	got := ApplyLocks(stored, incoming, models.LockState{})
	if got.Tiebreaker != "950" {
		t.Errorf("Tiebreaker = %q, want incoming value", got.Tiebreaker)
	}
}

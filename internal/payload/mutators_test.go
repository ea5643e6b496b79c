package payload

import (
	"testing"
	"time"

	"pickem/internal/models"
)

var now = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func TestSetMatchWinner(t *testing.T) {
	t.Run("stamps recorded-at when set", func(t *testing.T) {
		key := models.KeyPayload{}
		got := SetMatchWinner(key, "m1", "Cody Rhodes", now)

		result := got.MatchResultByID("m1")
		if result == nil {
			t.Fatal("match result not created")
		}
		if result.Winner != "Cody Rhodes" {
			t.Errorf("Winner = %q, want %q", result.Winner, "Cody Rhodes")
		}
		if result.WinnerRecordedAt == nil || !result.WinnerRecordedAt.Equal(now) {
			t.Errorf("WinnerRecordedAt = %v, want %v", result.WinnerRecordedAt, now)
		}
	})

	t.Run("clears stamp when emptied", func(t *testing.T) {
		key := SetMatchWinner(models.KeyPayload{}, "m1", "Cody Rhodes", now)
		got := SetMatchWinner(key, "m1", "", now)

		result := got.MatchResultByID("m1")
		if result.Winner != "" {
			t.Errorf("Winner = %q, want empty", result.Winner)
		}
		if result.WinnerRecordedAt != nil {
			t.Errorf("WinnerRecordedAt = %v, want nil", result.WinnerRecordedAt)
		}
	})

	t.Run("does not modify the input payload", func(t *testing.T) {
		key := SetMatchWinner(models.KeyPayload{}, "m1", "Cody Rhodes", now)
		SetMatchWinner(key, "m1", "Roman Reigns", now)

		if key.MatchResultByID("m1").Winner != "Cody Rhodes" {
			t.Error("input payload was mutated")
		}
	})
}

func TestEntrantOrder(t *testing.T) {
	key := models.KeyPayload{}
	key = AppendEntrant(key, "m1", "first")
	key = AppendEntrant(key, "m1", "second")
	key = AppendEntrant(key, "m1", "third")

	key = MoveEntrant(key, "m1", 2, 0)
	got := key.MatchResultByID("m1").Entrants
	want := []string{"third", "first", "second"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("after move, entrants = %v, want %v", got, want)
		}
	}

	key = RemoveEntrant(key, "m1", 1)
	got = key.MatchResultByID("m1").Entrants
	if len(got) != 2 || got[0] != "third" || got[1] != "second" {
		t.Errorf("after remove, entrants = %v, want [third second]", got)
	}

	// Out-of-range positions are no-ops.
	key = MoveEntrant(key, "m1", 5, 0)
	key = RemoveEntrant(key, "m1", -1)
	if len(key.MatchResultByID("m1").Entrants) != 2 {
		t.Error("out-of-range edit changed the list")
	}
}

func TestUpsertAnswerTimerHandling(t *testing.T) {
	timed := models.Question{ID: "q1", ValueType: models.ValueTypeTime, TimeBased: true}
	plain := models.Question{ID: "q2", ValueType: models.ValueTypeText}

	t.Run("time-based question gets a derived timer id", func(t *testing.T) {
		key := SetMatchAnswer(models.KeyPayload{}, "m1", timed, "12:30")
		answer := models.FindAnswer(key.MatchResultByID("m1").Answers, "q1")
		if answer.TimerID != DerivedTimerID("q1") {
			t.Errorf("TimerID = %q, want %q", answer.TimerID, DerivedTimerID("q1"))
		}
	})

	t.Run("plain question gets no timer id", func(t *testing.T) {
		key := SetEventAnswer(models.KeyPayload{}, plain, "yes")
		answer := models.FindAnswer(key.EventAnswers, "q2")
		if answer.TimerID != "" {
			t.Errorf("TimerID = %q, want empty", answer.TimerID)
		}
	})

	t.Run("existing timer association survives edits", func(t *testing.T) {
		key := models.KeyPayload{
			EventAnswers: []models.Answer{{QuestionID: "q1", Value: "10:00", TimerID: "custom-timer"}},
		}
		key = SetEventAnswer(key, timed, "12:30")
		answer := models.FindAnswer(key.EventAnswers, "q1")
		if answer.TimerID != "custom-timer" {
			t.Errorf("TimerID = %q, want custom-timer", answer.TimerID)
		}
	})

	t.Run("empty value removes the answer", func(t *testing.T) {
		key := SetEventAnswer(models.KeyPayload{}, plain, "yes")
		key = SetEventAnswer(key, plain, "")
		if models.FindAnswer(key.EventAnswers, "q2") != nil {
			t.Error("answer still present after clearing")
		}
	})
}

func TestRemoveTimerCascades(t *testing.T) {
	key := models.KeyPayload{
		Timers: []models.Timer{{ID: "t1", Label: "Main event"}},
		Matches: []models.MatchResult{
			{MatchID: "m1", Answers: []models.Answer{{QuestionID: "q1", Value: "17:32", TimerID: "t1"}}},
		},
		EventAnswers: []models.Answer{{QuestionID: "q2", Value: "3", TimerID: "t1"}},
		Tiebreaker:   &models.TiebreakerAnswer{Value: "21:05", TimerID: "t1"},
	}

	got := RemoveTimer(key, "t1")

	if got.TimerByID("t1") != nil {
		t.Error("timer still present")
	}
	matchAnswer := models.FindAnswer(got.MatchResultByID("m1").Answers, "q1")
	if matchAnswer.TimerID != "" {
		t.Errorf("match answer TimerID = %q, want cleared", matchAnswer.TimerID)
	}
	if matchAnswer.Value != "17:32" {
		t.Errorf("match answer Value = %q, want untouched", matchAnswer.Value)
	}
	if got.EventAnswers[0].TimerID != "" {
		t.Error("event answer timer reference not cleared")
	}
	if got.Tiebreaker.TimerID != "" {
		t.Error("tiebreaker timer reference not cleared")
	}
	if got.Tiebreaker.Value != "21:05" {
		t.Error("tiebreaker value changed")
	}
}

func TestTimerStartStop(t *testing.T) {
	key := UpsertTimer(models.KeyPayload{}, models.Timer{ID: "t1", Label: "Main event"})

	key = StartTimer(key, "t1", now)
	timer := key.TimerByID("t1")
	if !timer.Running || timer.StartedAt == nil {
		t.Fatal("timer not running after start")
	}

	later := now.Add(90 * time.Second)
	if got := timer.ElapsedAt(later); got != 90_000 {
		t.Errorf("ElapsedAt = %d, want 90000", got)
	}

	key = StopTimer(key, "t1", later)
	timer = key.TimerByID("t1")
	if timer.Running || timer.StartedAt != nil {
		t.Fatal("timer still running after stop")
	}
	if timer.ElapsedMs != 90_000 {
		t.Errorf("ElapsedMs = %d, want 90000", timer.ElapsedMs)
	}
}

func TestSetTiebreaker(t *testing.T) {
	q := models.Question{ID: "tb", ValueType: models.ValueTypeTime, TimeBased: true}

	key := SetTiebreaker(models.KeyPayload{}, q, "21:05", now)
	if key.Tiebreaker == nil || key.Tiebreaker.Value != "21:05" {
		t.Fatalf("Tiebreaker = %+v, want value 21:05", key.Tiebreaker)
	}
	if key.Tiebreaker.RecordedAt == nil || !key.Tiebreaker.RecordedAt.Equal(now) {
		t.Error("RecordedAt not stamped")
	}
	if key.Tiebreaker.TimerID != DerivedTimerID("tb") {
		t.Errorf("TimerID = %q, want derived", key.Tiebreaker.TimerID)
	}

	key = SetTiebreaker(key, q, "", now)
	if key.Tiebreaker != nil {
		t.Error("tiebreaker not cleared")
	}
}

func TestOverrideUpsert(t *testing.T) {
	key := SetScoreOverride(models.KeyPayload{}, models.Override{
		TargetID: "q1", Nickname: "Sam", Accepted: true, Source: models.OverrideSourceAuto, Confidence: 0.9,
	})
	// Same guest/question pair replaces rather than duplicates; nickname
	// matching is normalized.
	key = SetScoreOverride(key, models.Override{
		TargetID: "q1", Nickname: " sam ", Accepted: false, Source: models.OverrideSourceHost,
	})

	if len(key.ScoreOverrides) != 1 {
		t.Fatalf("len(ScoreOverrides) = %d, want 1", len(key.ScoreOverrides))
	}
	if key.ScoreOverrides[0].Accepted || key.ScoreOverrides[0].Source != models.OverrideSourceHost {
		t.Errorf("override not replaced: %+v", key.ScoreOverrides[0])
	}
}

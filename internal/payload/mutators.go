// Package payload provides the pure mutation functions over key and picks
// payloads. Every mutator copies its input and returns the updated payload;
// callers hand the result to the synchronization layer, which owns
// persistence and conflict detection.
package payload

import (
	"time"

	"pickem/internal/models"
)

// CloneKey deep-copies a key payload.
func CloneKey(k models.KeyPayload) models.KeyPayload {
	out := models.KeyPayload{
		Timers:          append([]models.Timer(nil), k.Timers...),
		Matches:         make([]models.MatchResult, len(k.Matches)),
		EventAnswers:    append([]models.Answer(nil), k.EventAnswers...),
		ScoreOverrides:  append([]models.Override(nil), k.ScoreOverrides...),
		WinnerOverrides: append([]models.Override(nil), k.WinnerOverrides...),
	}
	for i, m := range k.Matches {
		out.Matches[i] = cloneMatchResult(m)
	}
	if k.Tiebreaker != nil {
		tb := *k.Tiebreaker
		out.Tiebreaker = &tb
	}
	return out
}

// ClonePicks deep-copies a picks payload.
func ClonePicks(p models.PicksPayload) models.PicksPayload {
	out := models.PicksPayload{
		Matches:      make([]models.MatchPicks, len(p.Matches)),
		EventAnswers: append([]models.Answer(nil), p.EventAnswers...),
		Tiebreaker:   p.Tiebreaker,
	}
	for i, m := range p.Matches {
		out.Matches[i] = models.MatchPicks{
			MatchID:  m.MatchID,
			Winner:   m.Winner,
			Entrants: append([]string(nil), m.Entrants...),
			Answers:  append([]models.Answer(nil), m.Answers...),
		}
	}
	return out
}

func cloneMatchResult(m models.MatchResult) models.MatchResult {
	out := models.MatchResult{
		MatchID:  m.MatchID,
		Winner:   m.Winner,
		Entrants: append([]string(nil), m.Entrants...),
		Answers:  append([]models.Answer(nil), m.Answers...),
	}
	if m.WinnerRecordedAt != nil {
		at := *m.WinnerRecordedAt
		out.WinnerRecordedAt = &at
	}
	return out
}

func ensureMatchResult(k *models.KeyPayload, matchID string) *models.MatchResult {
	if m := k.MatchResultByID(matchID); m != nil {
		return m
	}
	k.Matches = append(k.Matches, models.MatchResult{MatchID: matchID})
	return &k.Matches[len(k.Matches)-1]
}

func ensureMatchPicks(p *models.PicksPayload, matchID string) *models.MatchPicks {
	if m := p.MatchPicksByID(matchID); m != nil {
		return m
	}
	p.Matches = append(p.Matches, models.MatchPicks{MatchID: matchID})
	return &p.Matches[len(p.Matches)-1]
}

// SetMatchWinner records (or clears) a match winner on the key. Setting a
// non-empty winner stamps the recorded-at time; clearing it clears the stamp.
func SetMatchWinner(k models.KeyPayload, matchID, winner string, now time.Time) models.KeyPayload {
	out := CloneKey(k)
	result := ensureMatchResult(&out, matchID)
	result.Winner = winner
	if winner == "" {
		result.WinnerRecordedAt = nil
	} else {
		at := now
		result.WinnerRecordedAt = &at
	}
	return out
}

// AppendEntrant appends a battle-royal entrant to a match's recorded entry
// order.
func AppendEntrant(k models.KeyPayload, matchID, name string) models.KeyPayload {
	out := CloneKey(k)
	result := ensureMatchResult(&out, matchID)
	result.Entrants = append(result.Entrants, name)
	return out
}

// RemoveEntrant removes an entrant by position. Out-of-range positions are a
// no-op.
func RemoveEntrant(k models.KeyPayload, matchID string, index int) models.KeyPayload {
	out := CloneKey(k)
	result := out.MatchResultByID(matchID)
	if result == nil || index < 0 || index >= len(result.Entrants) {
		return out
	}
	result.Entrants = append(result.Entrants[:index], result.Entrants[index+1:]...)
	return out
}

// MoveEntrant moves an entrant from one position to another, preserving the
// order of everything else. Out-of-range positions are a no-op.
func MoveEntrant(k models.KeyPayload, matchID string, from, to int) models.KeyPayload {
	out := CloneKey(k)
	result := out.MatchResultByID(matchID)
	if result == nil {
		return out
	}
	result.Entrants = moveString(result.Entrants, from, to)
	return out
}

func moveString(list []string, from, to int) []string {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) || from == to {
		return list
	}
	value := list[from]
	list = append(list[:from], list[from+1:]...)
	list = append(list[:to], append([]string{value}, list[to:]...)...)
	return list
}

// upsertAnswer records a value for a question in an answer list, preserving
// an already-attached timer id across edits. Time-based questions get a
// derived timer id attached on first record. An empty value removes the
// answer.
func upsertAnswer(answers []models.Answer, q models.Question, value string) []models.Answer {
	for i := range answers {
		if answers[i].QuestionID == q.ID {
			if value == "" {
				return append(answers[:i], answers[i+1:]...)
			}
			answers[i].Value = value
			if answers[i].TimerID == "" && q.TimeBased {
				answers[i].TimerID = DerivedTimerID(q.ID)
			}
			return answers
		}
	}
	if value == "" {
		return answers
	}
	answer := models.Answer{QuestionID: q.ID, Value: value}
	if q.TimeBased {
		answer.TimerID = DerivedTimerID(q.ID)
	}
	return append(answers, answer)
}

// DerivedTimerID is the timer id implicitly associated with a time-based
// question's answer.
func DerivedTimerID(questionID string) string {
	return "question-" + questionID
}

// SetMatchAnswer upserts a match bonus answer on the key.
func SetMatchAnswer(k models.KeyPayload, matchID string, q models.Question, value string) models.KeyPayload {
	out := CloneKey(k)
	result := ensureMatchResult(&out, matchID)
	result.Answers = upsertAnswer(result.Answers, q, value)
	return out
}

// SetEventAnswer upserts an event-level bonus answer on the key.
func SetEventAnswer(k models.KeyPayload, q models.Question, value string) models.KeyPayload {
	out := CloneKey(k)
	out.EventAnswers = upsertAnswer(out.EventAnswers, q, value)
	return out
}

// SetTiebreaker records the tiebreaker answer, stamping the recorded-at time
// and preserving any timer already associated with it. Clearing the value
// clears the whole tiebreaker.
func SetTiebreaker(k models.KeyPayload, q models.Question, value string, now time.Time) models.KeyPayload {
	out := CloneKey(k)
	if value == "" {
		out.Tiebreaker = nil
		return out
	}
	at := now
	tb := models.TiebreakerAnswer{Value: value, RecordedAt: &at}
	if out.Tiebreaker != nil {
		tb.TimerID = out.Tiebreaker.TimerID
	}
	if tb.TimerID == "" && q.TimeBased {
		tb.TimerID = DerivedTimerID(q.ID)
	}
	out.Tiebreaker = &tb
	return out
}

// UpsertTimer adds a timer or replaces the one with the same id.
func UpsertTimer(k models.KeyPayload, timer models.Timer) models.KeyPayload {
	out := CloneKey(k)
	for i := range out.Timers {
		if out.Timers[i].ID == timer.ID {
			out.Timers[i] = timer
			return out
		}
	}
	out.Timers = append(out.Timers, timer)
	return out
}

// StartTimer marks a timer running from now. Already-running timers are
// untouched.
func StartTimer(k models.KeyPayload, timerID string, now time.Time) models.KeyPayload {
	out := CloneKey(k)
	timer := out.TimerByID(timerID)
	if timer == nil || timer.Running {
		return out
	}
	at := now
	timer.Running = true
	timer.StartedAt = &at
	return out
}

// StopTimer pauses a running timer, folding the running stretch into the
// stored elapsed time.
func StopTimer(k models.KeyPayload, timerID string, now time.Time) models.KeyPayload {
	out := CloneKey(k)
	timer := out.TimerByID(timerID)
	if timer == nil || !timer.Running {
		return out
	}
	timer.ElapsedMs = timer.ElapsedAt(now)
	timer.Running = false
	timer.StartedAt = nil
	return out
}

// RemoveTimer deletes a timer and cascades: any answer or tiebreaker
// referencing it has its timer reference cleared rather than left dangling.
// Answer values are untouched.
func RemoveTimer(k models.KeyPayload, timerID string) models.KeyPayload {
	out := CloneKey(k)
	for i := range out.Timers {
		if out.Timers[i].ID == timerID {
			out.Timers = append(out.Timers[:i], out.Timers[i+1:]...)
			break
		}
	}
	for i := range out.Matches {
		for j := range out.Matches[i].Answers {
			if out.Matches[i].Answers[j].TimerID == timerID {
				out.Matches[i].Answers[j].TimerID = ""
			}
		}
	}
	for i := range out.EventAnswers {
		if out.EventAnswers[i].TimerID == timerID {
			out.EventAnswers[i].TimerID = ""
		}
	}
	if out.Tiebreaker != nil && out.Tiebreaker.TimerID == timerID {
		out.Tiebreaker.TimerID = ""
	}
	return out
}

// SetScoreOverride upserts a score override for a guest/question pair.
func SetScoreOverride(k models.KeyPayload, override models.Override) models.KeyPayload {
	out := CloneKey(k)
	out.ScoreOverrides = upsertOverride(out.ScoreOverrides, override)
	return out
}

// SetWinnerOverride upserts a winner override for a guest/match pair.
func SetWinnerOverride(k models.KeyPayload, override models.Override) models.KeyPayload {
	out := CloneKey(k)
	out.WinnerOverrides = upsertOverride(out.WinnerOverrides, override)
	return out
}

func upsertOverride(overrides []models.Override, override models.Override) []models.Override {
	key := models.NormalizeNickname(override.Nickname)
	for i := range overrides {
		if overrides[i].TargetID == override.TargetID && models.NormalizeNickname(overrides[i].Nickname) == key {
			overrides[i] = override
			return overrides
		}
	}
	return append(overrides, override)
}

// SetPickWinner records (or clears) a guest's winner pick for a match.
func SetPickWinner(p models.PicksPayload, matchID, winner string) models.PicksPayload {
	out := ClonePicks(p)
	picks := ensureMatchPicks(&out, matchID)
	picks.Winner = winner
	return out
}

// AppendPickEntrant appends to a guest's predicted entrant order.
func AppendPickEntrant(p models.PicksPayload, matchID, name string) models.PicksPayload {
	out := ClonePicks(p)
	picks := ensureMatchPicks(&out, matchID)
	picks.Entrants = append(picks.Entrants, name)
	return out
}

// RemovePickEntrant removes a predicted entrant by position.
func RemovePickEntrant(p models.PicksPayload, matchID string, index int) models.PicksPayload {
	out := ClonePicks(p)
	picks := out.MatchPicksByID(matchID)
	if picks == nil || index < 0 || index >= len(picks.Entrants) {
		return out
	}
	picks.Entrants = append(picks.Entrants[:index], picks.Entrants[index+1:]...)
	return out
}

// MovePickEntrant reorders a guest's predicted entrants.
func MovePickEntrant(p models.PicksPayload, matchID string, from, to int) models.PicksPayload {
	out := ClonePicks(p)
	picks := out.MatchPicksByID(matchID)
	if picks == nil {
		return out
	}
	picks.Entrants = moveString(picks.Entrants, from, to)
	return out
}

// SetPickMatchAnswer upserts a guest's match bonus answer.
func SetPickMatchAnswer(p models.PicksPayload, matchID string, q models.Question, value string) models.PicksPayload {
	out := ClonePicks(p)
	picks := ensureMatchPicks(&out, matchID)
	picks.Answers = upsertAnswer(picks.Answers, q, value)
	return out
}

// SetPickEventAnswer upserts a guest's event-level bonus answer.
func SetPickEventAnswer(p models.PicksPayload, q models.Question, value string) models.PicksPayload {
	out := ClonePicks(p)
	out.EventAnswers = upsertAnswer(out.EventAnswers, q, value)
	return out
}

// SetPickTiebreaker records a guest's tiebreaker answer.
func SetPickTiebreaker(p models.PicksPayload, value string) models.PicksPayload {
	out := ClonePicks(p)
	out.Tiebreaker = value
	return out
}

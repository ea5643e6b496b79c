package payload

import "pickem/internal/models"

// ApplyLocks merges an incoming picks payload against the stored one under
// the game's lock state. Locked targets keep their stored value (including
// stored absence); unlocked targets take the incoming value. The write as a
// whole always survives: a single locked field never rejects the payload.
//
// A per-match lock covers the winner pick and entrant order; bonus questions
// are governed by their own per-question maps. The tiebreaker is only closed
// by the global lock.
func ApplyLocks(stored, incoming models.PicksPayload, locks models.LockState) models.PicksPayload {
	if locks.Global {
		return ClonePicks(stored)
	}

	out := models.PicksPayload{Tiebreaker: incoming.Tiebreaker}

	seen := make(map[string]bool, len(incoming.Matches))
	for _, in := range incoming.Matches {
		seen[in.MatchID] = true
		out.Matches = append(out.Matches, mergeMatchPicks(stored.MatchPicksByID(in.MatchID), in, locks))
	}
	// Matches the incoming payload dropped entirely still keep their locked
	// parts.
	for _, st := range stored.Matches {
		if seen[st.MatchID] {
			continue
		}
		if kept, any := retainLockedMatchPicks(st, locks); any {
			out.Matches = append(out.Matches, kept)
		}
	}

	out.EventAnswers = mergeAnswers(stored.EventAnswers, incoming.EventAnswers, locks.EventQuestionLocked)
	return out
}

func mergeMatchPicks(stored *models.MatchPicks, incoming models.MatchPicks, locks models.LockState) models.MatchPicks {
	out := models.MatchPicks{MatchID: incoming.MatchID}

	if locks.MatchLocked(incoming.MatchID) {
		if stored != nil {
			out.Winner = stored.Winner
			out.Entrants = append([]string(nil), stored.Entrants...)
		}
	} else {
		out.Winner = incoming.Winner
		out.Entrants = append([]string(nil), incoming.Entrants...)
	}

	var storedAnswers []models.Answer
	if stored != nil {
		storedAnswers = stored.Answers
	}
	out.Answers = mergeAnswers(storedAnswers, incoming.Answers, locks.MatchQuestionLocked)
	return out
}

func mergeAnswers(stored, incoming []models.Answer, locked func(questionID string) bool) []models.Answer {
	var out []models.Answer
	seen := make(map[string]bool, len(incoming))
	for _, in := range incoming {
		seen[in.QuestionID] = true
		if !locked(in.QuestionID) {
			out = append(out, in)
			continue
		}
		if st := models.FindAnswer(stored, in.QuestionID); st != nil {
			out = append(out, *st)
		}
	}
	for _, st := range stored {
		if !seen[st.QuestionID] && locked(st.QuestionID) {
			out = append(out, st)
		}
	}
	return out
}

func retainLockedMatchPicks(stored models.MatchPicks, locks models.LockState) (models.MatchPicks, bool) {
	out := models.MatchPicks{MatchID: stored.MatchID}
	any := false
	if locks.MatchLocked(stored.MatchID) {
		out.Winner = stored.Winner
		out.Entrants = append([]string(nil), stored.Entrants...)
		any = out.Winner != "" || len(out.Entrants) > 0
	}
	for _, answer := range stored.Answers {
		if locks.MatchQuestionLocked(answer.QuestionID) {
			out.Answers = append(out.Answers, answer)
			any = true
		}
	}
	return out, any
}

// Package leaderboard recomputes the ranked standings for a game from the
// current key payload and every guest's picks. Nothing here is persisted;
// rankings are derived on every read.
package leaderboard

import (
	"sort"
	"time"

	"pickem/internal/grading"
	"pickem/internal/models"
)

// closestCandidate is one guest's entry in the race for a closest-rule
// question's bonus.
type closestCandidate struct {
	playerIndex int
	distance    float64
	submittedAt *time.Time
}

// Rank grades every guest against the key and returns the standings in
// descending total order. Equal totals share a rank and keep their relative
// insertion order. Guests who have not submitted are still scored from
// whatever picks they have saved; the submitted flag is display only.
func Rank(card *models.Card, key models.KeyPayload, players []models.Player) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, len(players))
	candidates := make(map[string][]closestCandidate)

	for i, player := range players {
		breakdown := models.ScoreBreakdown{}

		for _, match := range card.Matches {
			result := key.MatchResultByID(match.ID)
			picks := player.Picks.MatchPicksByID(match.ID)

			keyWinner := ""
			var keyAnswers []models.Answer
			var keyEntrants []string
			if result != nil {
				keyWinner = result.Winner
				keyAnswers = result.Answers
				keyEntrants = result.Entrants
			}
			pickWinner := ""
			var pickAnswers []models.Answer
			var pickEntrants []string
			if picks != nil {
				pickWinner = picks.Winner
				pickAnswers = picks.Answers
				pickEntrants = picks.Entrants
			}

			winnerQuestion := models.Question{ID: match.ID, ValueType: models.ValueTypeText, Points: match.WinnerPoints}
			winnerOverride := models.FindOverride(key.WinnerOverrides, match.ID, player.Nickname)
			breakdown.WinnerPoints += grading.Score(winnerQuestion, card.DefaultPoints, keyWinner, pickWinner, winnerOverride).Score

			for _, q := range match.Questions {
				keyValue := answerValue(keyAnswers, q.ID)
				pickValue := answerValue(pickAnswers, q.ID)
				override := models.FindOverride(key.ScoreOverrides, q.ID, player.Nickname)
				graded := grading.Score(q, card.DefaultPoints, keyValue, pickValue, override)
				breakdown.BonusPoints += graded.Score
				if graded.IsClosestCandidate {
					candidates[q.ID] = append(candidates[q.ID], closestCandidate{
						playerIndex: i,
						distance:    graded.Distance,
						submittedAt: player.SubmittedAt,
					})
				}
			}

			if match.IsBattleRoyal && match.SurprisePoints > 0 {
				breakdown.SurprisePoints += match.SurprisePoints * surpriseHits(pickEntrants, keyEntrants)
			}
		}

		for _, q := range card.EventQuestions {
			keyValue := answerValue(key.EventAnswers, q.ID)
			pickValue := answerValue(player.Picks.EventAnswers, q.ID)
			override := models.FindOverride(key.ScoreOverrides, q.ID, player.Nickname)
			graded := grading.Score(q, card.DefaultPoints, keyValue, pickValue, override)
			breakdown.BonusPoints += graded.Score
			if graded.IsClosestCandidate {
				candidates[q.ID] = append(candidates[q.ID], closestCandidate{
					playerIndex: i,
					distance:    graded.Distance,
					submittedAt: player.SubmittedAt,
				})
			}
		}

		if card.Tiebreaker != nil {
			keyValue := ""
			if key.Tiebreaker != nil {
				keyValue = key.Tiebreaker.Value
			}
			override := models.FindOverride(key.ScoreOverrides, card.Tiebreaker.ID, player.Nickname)
			graded := grading.Score(*card.Tiebreaker, card.DefaultPoints, keyValue, player.Picks.Tiebreaker, override)
			breakdown.BonusPoints += graded.Score
			if graded.IsClosestCandidate {
				candidates[card.Tiebreaker.ID] = append(candidates[card.Tiebreaker.ID], closestCandidate{
					playerIndex: i,
					distance:    graded.Distance,
					submittedAt: player.SubmittedAt,
				})
			}
		}

		entries[i] = models.LeaderboardEntry{
			PlayerID:    player.ID,
			Nickname:    player.Nickname,
			Breakdown:   breakdown,
			Submitted:   player.Submitted,
			LastUpdated: player.UpdatedAt,
			LastSeen:    player.LastSeenAt,
		}
	}

	// Closest-rule questions award one best-guess bonus across all guests.
	// Ties on distance go to the earliest submission, then to the earlier
	// player row, so the outcome is deterministic.
	for questionID, list := range candidates {
		winner := bestCandidate(list)
		q := card.QuestionByID(questionID)
		if q == nil {
			continue
		}
		entries[winner.playerIndex].Breakdown.BonusPoints += q.EffectivePoints(card.DefaultPoints)
	}

	for i := range entries {
		entries[i].Total = entries[i].Breakdown.WinnerPoints +
			entries[i].Breakdown.BonusPoints +
			entries[i].Breakdown.SurprisePoints
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})
	for i := range entries {
		if i > 0 && entries[i].Total == entries[i-1].Total {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
	return entries
}

func answerValue(answers []models.Answer, questionID string) string {
	if a := models.FindAnswer(answers, questionID); a != nil {
		return a.Value
	}
	return ""
}

// surpriseHits counts the guest's distinct predicted entrants that appear in
// the key's recorded entry order, compared case- and whitespace-insensitively.
func surpriseHits(predicted, recorded []string) int {
	if len(predicted) == 0 || len(recorded) == 0 {
		return 0
	}
	entered := make(map[string]bool, len(recorded))
	for _, name := range recorded {
		entered[grading.NormalizeText(name)] = true
	}
	counted := make(map[string]bool, len(predicted))
	hits := 0
	for _, name := range predicted {
		k := grading.NormalizeText(name)
		if k == "" || counted[k] {
			continue
		}
		counted[k] = true
		if entered[k] {
			hits++
		}
	}
	return hits
}

func bestCandidate(list []closestCandidate) closestCandidate {
	best := list[0]
	for _, c := range list[1:] {
		if c.distance < best.distance {
			best = c
			continue
		}
		if c.distance > best.distance {
			continue
		}
		if earlier(c.submittedAt, best.submittedAt) {
			best = c
			continue
		}
		if sameTime(c.submittedAt, best.submittedAt) && c.playerIndex < best.playerIndex {
			best = c
		}
	}
	return best
}

// earlier reports whether a sorts strictly before b; a missing submission
// time sorts last.
func earlier(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Before(*b)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

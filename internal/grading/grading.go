package grading

import (
	"math"
	"strings"

	"pickem/internal/models"
)

// floatTolerance is the near-equality window for numeric exact grading.
const floatTolerance = 1e-4

// Result is the outcome of grading one guest answer against the key.
// Closest-rule questions never score directly; they surface a candidate
// distance for the cross-guest aggregation step instead.
type Result struct {
	Score              int
	IsClosestCandidate bool
	Distance           float64
}

// Score grades one guest answer. It is pure and never fails: unparsable or
// missing input degrades to a zero score so one bad answer cannot abort
// grading the rest of the card.
//
// Overrides short-circuit everything: an accepted override awards full
// points even when the raw answers disagree, a declined one awards zero even
// when they match.
func Score(q models.Question, defaultPoints int, keyAnswer, guestAnswer string, override *models.Override) Result {
	points := q.EffectivePoints(defaultPoints)
	if points <= 0 {
		return Result{}
	}

	if override != nil {
		if override.Accepted {
			return Result{Score: points}
		}
		return Result{}
	}

	keyAnswer = strings.TrimSpace(keyAnswer)
	guestAnswer = strings.TrimSpace(guestAnswer)
	if keyAnswer == "" || guestAnswer == "" {
		return Result{}
	}

	if q.Type == models.QuestionThreshold {
		return scoreThreshold(q, points, keyAnswer, guestAnswer)
	}

	switch q.EffectiveRule() {
	case models.RuleAtOrAbove, models.RuleAtOrBelow:
		keyVal, keyOK := ParseValue(keyAnswer)
		guestVal, guestOK := ParseValue(guestAnswer)
		if !keyOK || !guestOK {
			return Result{}
		}
		if q.EffectiveRule() == models.RuleAtOrAbove && guestVal >= keyVal {
			return Result{Score: points}
		}
		if q.EffectiveRule() == models.RuleAtOrBelow && guestVal <= keyVal {
			return Result{Score: points}
		}
		return Result{}

	case models.RuleClosest:
		keyVal, keyOK := ParseValue(keyAnswer)
		guestVal, guestOK := ParseValue(guestAnswer)
		if !keyOK || !guestOK {
			return Result{}
		}
		return Result{IsClosestCandidate: true, Distance: math.Abs(guestVal - keyVal)}

	default: // exact
		if q.ValueType == models.ValueTypeNumerical || q.ValueType == models.ValueTypeTime {
			keyVal, keyOK := ParseValue(keyAnswer)
			guestVal, guestOK := ParseValue(guestAnswer)
			if !keyOK || !guestOK {
				return Result{}
			}
			if math.Abs(guestVal-keyVal) <= floatTolerance {
				return Result{Score: points}
			}
			return Result{}
		}
		if NormalizeText(keyAnswer) == NormalizeText(guestAnswer) {
			return Result{Score: points}
		}
		return Result{}
	}
}

// scoreThreshold grades an over/under question. The key holds the actual
// observed value; the correct label is derived by comparing it to the
// question's threshold. Exactly equal counts as the under label.
func scoreThreshold(q models.Question, points int, keyAnswer, guestAnswer string) Result {
	actual, ok := ParseValue(keyAnswer)
	if !ok {
		return Result{}
	}
	over, under := q.Labels()
	correct := under
	if actual > q.Threshold {
		correct = over
	}
	if NormalizeText(guestAnswer) == NormalizeText(correct) {
		return Result{Score: points}
	}
	return Result{}
}

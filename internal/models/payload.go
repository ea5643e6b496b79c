package models

import "time"

// Timer is a host-controlled stopwatch. Elapsed time is derived from the
// stored state plus wall-clock now at read time; nothing ticks in the
// background.
type Timer struct {
	ID        string     `json:"id"`
	Label     string     `json:"label,omitempty"`
	ElapsedMs int64      `json:"elapsedMs"`
	Running   bool       `json:"running"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// ElapsedAt returns the timer's total elapsed milliseconds as of now.
func (t Timer) ElapsedAt(now time.Time) int64 {
	elapsed := t.ElapsedMs
	if t.Running && t.StartedAt != nil {
		elapsed += now.Sub(*t.StartedAt).Milliseconds()
	}
	return elapsed
}

// Answer is a recorded value for one bonus question. TimerID links the
// answer to the stopwatch it was measured with, for time-based questions.
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
	TimerID    string `json:"timerId,omitempty"`
}

// MatchResult is the host's recorded outcome for one match.
type MatchResult struct {
	MatchID          string     `json:"matchId"`
	Winner           string     `json:"winner,omitempty"`
	WinnerRecordedAt *time.Time `json:"winnerRecordedAt,omitempty"`
	// Entrants is the recorded entry order for a battle royal.
	Entrants []string `json:"entrants,omitempty"`
	Answers  []Answer `json:"answers,omitempty"`
}

// TiebreakerAnswer is the recorded tiebreaker value.
type TiebreakerAnswer struct {
	Value      string     `json:"value"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
	TimerID    string     `json:"timerId,omitempty"`
}

// OverrideSource records who decided an override.
type OverrideSource string

const (
	OverrideSourceAuto OverrideSource = "auto"
	OverrideSourceHost OverrideSource = "host"
)

// Override forces the score outcome for one guest on one question or match,
// bypassing normal comparison. Auto overrides come from fuzzy-match
// suggestions; host overrides are manual decisions.
type Override struct {
	TargetID   string         `json:"targetId"`
	Nickname   string         `json:"nickname"`
	Accepted   bool           `json:"accepted"`
	Source     OverrideSource `json:"source"`
	Confidence float64        `json:"confidence,omitempty"`
}

// KeyPayload is the host's authoritative answer key for a game.
type KeyPayload struct {
	Timers          []Timer           `json:"timers,omitempty"`
	Matches         []MatchResult     `json:"matches,omitempty"`
	EventAnswers    []Answer          `json:"eventAnswers,omitempty"`
	Tiebreaker      *TiebreakerAnswer `json:"tiebreaker,omitempty"`
	ScoreOverrides  []Override        `json:"scoreOverrides,omitempty"`
	WinnerOverrides []Override        `json:"winnerOverrides,omitempty"`
}

// MatchPicks is one guest's predictions for a single match.
type MatchPicks struct {
	MatchID string `json:"matchId"`
	Winner  string `json:"winner,omitempty"`
	// Entrants is the guest's predicted surprise-entrant order for a battle
	// royal.
	Entrants []string `json:"entrants,omitempty"`
	Answers  []Answer `json:"answers,omitempty"`
}

// PicksPayload is one guest's predictions. It mirrors the answer shape of
// the key payload but carries no timers or overrides.
type PicksPayload struct {
	Matches      []MatchPicks `json:"matches,omitempty"`
	EventAnswers []Answer     `json:"eventAnswers,omitempty"`
	Tiebreaker   string       `json:"tiebreaker,omitempty"`
}

// LockSource records what closed a lock: a manual host action or a timer
// completing.
type LockSource string

const (
	LockSourceHost  LockSource = "host"
	LockSourceTimer LockSource = "timer"
)

// Lock is one closed target in the lock state.
type Lock struct {
	Locked bool       `json:"locked"`
	Source LockSource `json:"source,omitempty"`
}

// LockState gates guest edits per game. A locked target causes the guest's
// write to that target to be dropped while the rest of the payload still
// applies.
type LockState struct {
	Global         bool            `json:"global"`
	Matches        map[string]Lock `json:"matches,omitempty"`
	MatchQuestions map[string]Lock `json:"matchQuestions,omitempty"`
	EventQuestions map[string]Lock `json:"eventQuestions,omitempty"`
}

// MatchLocked reports whether guest edits to a match's winner and entrants
// are closed.
func (l LockState) MatchLocked(matchID string) bool {
	if l.Global {
		return true
	}
	return l.Matches[matchID].Locked
}

// MatchQuestionLocked reports whether guest edits to a match bonus question
// are closed.
func (l LockState) MatchQuestionLocked(questionID string) bool {
	if l.Global {
		return true
	}
	return l.MatchQuestions[questionID].Locked
}

// EventQuestionLocked reports whether guest edits to an event-level bonus
// question are closed.
func (l LockState) EventQuestionLocked(questionID string) bool {
	if l.Global {
		return true
	}
	return l.EventQuestions[questionID].Locked
}

// MatchResultByID finds the recorded result for a match.
func (k *KeyPayload) MatchResultByID(matchID string) *MatchResult {
	for i := range k.Matches {
		if k.Matches[i].MatchID == matchID {
			return &k.Matches[i]
		}
	}
	return nil
}

// TimerByID finds a timer on the key payload.
func (k *KeyPayload) TimerByID(id string) *Timer {
	for i := range k.Timers {
		if k.Timers[i].ID == id {
			return &k.Timers[i]
		}
	}
	return nil
}

// MatchPicksByID finds the guest's picks for a match.
func (p *PicksPayload) MatchPicksByID(matchID string) *MatchPicks {
	for i := range p.Matches {
		if p.Matches[i].MatchID == matchID {
			return &p.Matches[i]
		}
	}
	return nil
}

// FindOverride looks up an override for a guest/target pair.
func FindOverride(overrides []Override, targetID, nickname string) *Override {
	key := NormalizeNickname(nickname)
	for i := range overrides {
		if overrides[i].TargetID == targetID && NormalizeNickname(overrides[i].Nickname) == key {
			return &overrides[i]
		}
	}
	return nil
}

// FindAnswer looks up an answer by question ID.
func FindAnswer(answers []Answer, questionID string) *Answer {
	for i := range answers {
		if answers[i].QuestionID == questionID {
			return &answers[i]
		}
	}
	return nil
}

package models

import (
	"encoding/json"
	"sort"
	"time"
)

// Payloads written by older clients used looser shapes: a match winner could
// be a bare string instead of an object with a recorded-at stamp, bonus
// answers could be a question-id keyed object instead of a list, entrants
// could be objects with a name field, and the tiebreaker could be a bare
// string. Everything is normalized to the one canonical shape here, at the
// decoding boundary, so nothing downstream ever branches on which legacy
// variant it was handed.

type winnerObject struct {
	Name       string     `json:"name"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
}

func decodeWinner(raw json.RawMessage) (string, *time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil, nil
	}
	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return "", nil, err
		}
		return name, nil, nil
	}
	var obj winnerObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil, err
	}
	return obj.Name, obj.RecordedAt, nil
}

func decodeEntrants(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names, nil
	}
	var objs []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, err
	}
	names = make([]string, len(objs))
	for i, o := range objs {
		names[i] = o.Name
	}
	return names, nil
}

func decodeAnswers(raw json.RawMessage) ([]Answer, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '[' {
		var answers []Answer
		if err := json.Unmarshal(raw, &answers); err != nil {
			return nil, err
		}
		return answers, nil
	}
	// Legacy object form: question id -> answer text. Keys are sorted so
	// the normalized list is deterministic.
	var byID map[string]string
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	answers := make([]Answer, 0, len(ids))
	for _, id := range ids {
		answers = append(answers, Answer{QuestionID: id, Value: byID[id]})
	}
	return answers, nil
}

// UnmarshalJSON accepts both the canonical match-result shape and the legacy
// variants.
func (m *MatchResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		MatchID          string          `json:"matchId"`
		Winner           json.RawMessage `json:"winner"`
		WinnerRecordedAt *time.Time      `json:"winnerRecordedAt"`
		Entrants         json.RawMessage `json:"entrants"`
		Answers          json.RawMessage `json:"answers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	winner, recordedAt, err := decodeWinner(raw.Winner)
	if err != nil {
		return err
	}
	if recordedAt == nil {
		recordedAt = raw.WinnerRecordedAt
	}
	entrants, err := decodeEntrants(raw.Entrants)
	if err != nil {
		return err
	}
	answers, err := decodeAnswers(raw.Answers)
	if err != nil {
		return err
	}
	*m = MatchResult{
		MatchID:          raw.MatchID,
		Winner:           winner,
		WinnerRecordedAt: recordedAt,
		Entrants:         entrants,
		Answers:          answers,
	}
	return nil
}

// UnmarshalJSON accepts both the canonical match-picks shape and the legacy
// variants.
func (m *MatchPicks) UnmarshalJSON(data []byte) error {
	var raw struct {
		MatchID  string          `json:"matchId"`
		Winner   json.RawMessage `json:"winner"`
		Entrants json.RawMessage `json:"entrants"`
		Answers  json.RawMessage `json:"answers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	winner, _, err := decodeWinner(raw.Winner)
	if err != nil {
		return err
	}
	entrants, err := decodeEntrants(raw.Entrants)
	if err != nil {
		return err
	}
	answers, err := decodeAnswers(raw.Answers)
	if err != nil {
		return err
	}
	*m = MatchPicks{
		MatchID:  raw.MatchID,
		Winner:   winner,
		Entrants: entrants,
		Answers:  answers,
	}
	return nil
}

// UnmarshalJSON accepts the canonical tiebreaker object or a legacy bare
// string.
func (t *TiebreakerAnswer) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*t = TiebreakerAnswer{Value: value}
		return nil
	}
	var raw struct {
		Value      string     `json:"value"`
		RecordedAt *time.Time `json:"recordedAt"`
		TimerID    string     `json:"timerId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = TiebreakerAnswer{Value: raw.Value, RecordedAt: raw.RecordedAt, TimerID: raw.TimerID}
	return nil
}

// UnmarshalJSON accepts the canonical picks shape plus a legacy tiebreaker
// object in place of the bare string.
func (p *PicksPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Matches      []MatchPicks    `json:"matches"`
		EventAnswers json.RawMessage `json:"eventAnswers"`
		Tiebreaker   json.RawMessage `json:"tiebreaker"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	eventAnswers, err := decodeAnswers(raw.EventAnswers)
	if err != nil {
		return err
	}
	tiebreaker := ""
	if len(raw.Tiebreaker) > 0 && string(raw.Tiebreaker) != "null" {
		if raw.Tiebreaker[0] == '"' {
			if err := json.Unmarshal(raw.Tiebreaker, &tiebreaker); err != nil {
				return err
			}
		} else {
			var obj TiebreakerAnswer
			if err := json.Unmarshal(raw.Tiebreaker, &obj); err != nil {
				return err
			}
			tiebreaker = obj.Value
		}
	}
	*p = PicksPayload{
		Matches:      raw.Matches,
		EventAnswers: eventAnswers,
		Tiebreaker:   tiebreaker,
	}
	return nil
}

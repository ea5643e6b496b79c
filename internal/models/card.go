package models

// ValueType describes how a question's answers are interpreted.
type ValueType string

const (
	ValueTypeText      ValueType = "text"
	ValueTypeNumerical ValueType = "numerical"
	ValueTypeTime      ValueType = "time"
)

// GradingRule is the comparison policy for a question. Closest, at-or-above
// and at-or-below only apply to numerical and time value types.
type GradingRule string

const (
	RuleExact     GradingRule = "exact"
	RuleClosest   GradingRule = "closest"
	RuleAtOrAbove GradingRule = "atOrAbove"
	RuleAtOrBelow GradingRule = "atOrBelow"
)

// QuestionType distinguishes threshold (over/under) questions from standard
// ones.
type QuestionType string

const (
	QuestionStandard  QuestionType = "standard"
	QuestionThreshold QuestionType = "threshold"
)

// Question is one bonus question on a card, either per match or event level.
type Question struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Type      QuestionType `json:"type,omitempty"`
	ValueType ValueType    `json:"valueType,omitempty"`
	Rule      GradingRule  `json:"rule,omitempty"`
	// Points overrides the card default when greater than zero.
	Points int `json:"points,omitempty"`
	// Threshold holds the over/under cutoff for threshold questions, in the
	// question's value units (seconds for time questions).
	Threshold  float64 `json:"threshold,omitempty"`
	OverLabel  string  `json:"overLabel,omitempty"`
	UnderLabel string  `json:"underLabel,omitempty"`
	// TimeBased marks questions whose answer is measured with a stopwatch;
	// recording an answer for one attaches a timer to it.
	TimeBased bool `json:"timeBased,omitempty"`
}

// EffectiveRule resolves the grading rule, defaulting to exact. The
// numeric-only rules degrade to exact for text questions.
func (q Question) EffectiveRule() GradingRule {
	if q.ValueType != ValueTypeNumerical && q.ValueType != ValueTypeTime {
		return RuleExact
	}
	if q.Rule == "" {
		return RuleExact
	}
	return q.Rule
}

// EffectivePoints resolves the question's point value against the card
// default.
func (q Question) EffectivePoints(defaultPoints int) int {
	if q.Points > 0 {
		return q.Points
	}
	return defaultPoints
}

// Labels returns the over/under labels for a threshold question, falling
// back to the defaults.
func (q Question) Labels() (over, under string) {
	over, under = q.OverLabel, q.UnderLabel
	if over == "" {
		over = "Over"
	}
	if under == "" {
		under = "Under"
	}
	return over, under
}

// Match is one contest on a card.
type Match struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Competitors []string `json:"competitors,omitempty"`
	// WinnerPoints overrides the card default when greater than zero.
	WinnerPoints  int  `json:"winnerPoints,omitempty"`
	IsBattleRoyal bool `json:"isBattleRoyal,omitempty"`
	// SurprisePoints is awarded per correctly predicted surprise entrant in
	// a battle royal.
	SurprisePoints int        `json:"surprisePoints,omitempty"`
	Questions      []Question `json:"questions,omitempty"`
}

// Card is the reference data a game is played against: its matches and
// bonus questions. Cards are authored elsewhere; this engine only reads them.
type Card struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	DefaultPoints  int        `json:"defaultPoints"`
	Matches        []Match    `json:"matches"`
	EventQuestions []Question `json:"eventQuestions,omitempty"`
	Tiebreaker     *Question  `json:"tiebreaker,omitempty"`
}

// MatchByID finds a match on the card.
func (c *Card) MatchByID(id string) *Match {
	for i := range c.Matches {
		if c.Matches[i].ID == id {
			return &c.Matches[i]
		}
	}
	return nil
}

// QuestionByID finds a question anywhere on the card: match level, event
// level or the tiebreaker.
func (c *Card) QuestionByID(id string) *Question {
	for i := range c.Matches {
		for j := range c.Matches[i].Questions {
			if c.Matches[i].Questions[j].ID == id {
				return &c.Matches[i].Questions[j]
			}
		}
	}
	for i := range c.EventQuestions {
		if c.EventQuestions[i].ID == id {
			return &c.EventQuestions[i]
		}
	}
	if c.Tiebreaker != nil && c.Tiebreaker.ID == id {
		return c.Tiebreaker
	}
	return nil
}

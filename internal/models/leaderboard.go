package models

import "time"

// ScoreBreakdown splits a guest's total into its sources.
type ScoreBreakdown struct {
	WinnerPoints   int `json:"winnerPoints"`
	BonusPoints    int `json:"bonusPoints"`
	SurprisePoints int `json:"surprisePoints"`
}

// LeaderboardEntry is one ranked row. Entries are derived on demand from the
// current key payload and picks payloads and are never persisted.
type LeaderboardEntry struct {
	Rank        int            `json:"rank"`
	PlayerID    int64          `json:"playerId"`
	Nickname    string         `json:"nickname"`
	Total       int            `json:"total"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Submitted   bool           `json:"submitted"`
	LastUpdated time.Time      `json:"lastUpdated"`
	LastSeen    time.Time      `json:"lastSeen"`
}

package domain

import (
	"sort"
	"time"
)

// PlayerRecord is the stored state of a single player
type PlayerRecord struct {
	ID           string    `json:"id"`
	PlayerName   string    `json:"playerName"`
	PasswordHash string    `json:"-"`
	Score        int64     `json:"score"`
	TimeTaken    float64   `json:"timeTaken"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// PlayerScore is the public view returned by the show-score endpoint
type PlayerScore struct {
	PlayerName string  `json:"playerName"`
	Score      int64   `json:"score"`
	TimeTaken  float64 `json:"timeTaken"`
}

// ScoreView returns the public score view of the record
func (r *PlayerRecord) ScoreView() PlayerScore {
	return PlayerScore{
		PlayerName: r.PlayerName,
		Score:      r.Score,
		TimeTaken:  r.TimeTaken,
	}
}

// Ranks reports whether a ranks ahead of b: higher score first, then name ascending.
func Ranks(a, b PlayerRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.PlayerName < b.PlayerName
}

// SortRanking orders records in leaderboard order
func SortRanking(records []PlayerRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return Ranks(records[i], records[j])
	})
}

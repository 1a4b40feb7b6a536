package domain

// ScoreSubmission is the body of the update endpoint and the Kafka message format.
// Password is accepted for compatibility with existing clients but is not checked.
type ScoreSubmission struct {
	PlayerName string  `json:"playerName"`
	Password   string  `json:"password,omitempty"`
	Score      int64   `json:"score"`
	TimeTaken  float64 `json:"timeTaken"`
}

// BatchScoreSubmission represents multiple score updates
type BatchScoreSubmission struct {
	Scores []ScoreSubmission `json:"scores"`
}

// SignupRequest creates a player. Score and TimeTaken default to zero.
type SignupRequest struct {
	PlayerName string  `json:"playerName"`
	Password   string  `json:"password"`
	Score      int64   `json:"score"`
	TimeTaken  float64 `json:"timeTaken"`
}

// LoginRequest carries player credentials
type LoginRequest struct {
	PlayerName string `json:"playerName"`
	Password   string `json:"password"`
}

// MessageResponse is the body returned by mutating endpoints
type MessageResponse struct {
	Message string `json:"message"`
}

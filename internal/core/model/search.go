package model

// Match is a candidate string that cleared a similarity threshold.
type Match struct {
	Text  string  `json:"match"`
	Score float64 `json:"score"`
}

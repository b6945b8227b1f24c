package model

// Keyword is a search term that tags one or more answers.
type Keyword struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// KeywordPair is two distinct keywords whose texts contain one another and
// which tag at least one common answer.
type KeywordPair struct {
	First         Keyword `json:"first"`
	Second        Keyword `json:"second"`
	SharedAnswers int     `json:"shared_answers"`
}

type Stats struct {
	TotalKeywords        int     `json:"total_keywords"`
	LinkedAnswers        int     `json:"linked_answers"`
	OrphanedKeywords     int     `json:"orphaned_keywords"`
	AvgAnswersPerKeyword float64 `json:"avg_answers_per_keyword"`
}

type CleanupResult struct {
	Deleted []Keyword `json:"deleted"`
}

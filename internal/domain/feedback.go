package domain

import "time"

// Feedback is a user verdict on a generated answer.
type Feedback struct {
	User      string    `json:"user,omitempty"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Helpful   bool      `json:"helpful"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Analytics aggregates usage and feedback counters.
type Analytics struct {
	QueriesToday      int64 `json:"queries_today"`
	QueriesTotal      int64 `json:"queries_total"`
	FeedbackHelpful   int64 `json:"feedback_helpful"`
	FeedbackUnhelpful int64 `json:"feedback_unhelpful"`
	FeedbackTotal     int64 `json:"feedback_total"`
}

// ChatMessage is one completed exchange in a user's history.
type ChatMessage struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
